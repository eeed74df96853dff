package testhelpers

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Must is a generic helper function that panics if err is not nil,
// otherwise returns the value. This is useful for test setup code
// where errors are not expected and should halt execution immediately.
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// ExpectDeployed asserts that the deployed checkout is at the origin's HEAD.
func ExpectDeployed(t *testing.T, deploy *DeployTarget) {
	t.Helper()

	want, err := deploy.Origin.GetCurrentSHA()
	require.NoError(t, err, "Failed to read origin HEAD")
	got, err := deploy.Target.GetCurrentSHA()
	require.NoError(t, err, "Failed to read target HEAD")

	require.Equal(t, want, got, "Deployed checkout is not at origin HEAD")
}

// ExpectNoUntrackedFiles asserts that the working tree has no untracked files.
func ExpectNoUntrackedFiles(t *testing.T, repo *GitRepo) {
	t.Helper()

	untracked, err := repo.HasUntrackedFiles()
	require.NoError(t, err, "Failed to list untracked files")
	require.False(t, untracked, "Working tree has untracked files")
}
