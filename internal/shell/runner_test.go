package shell_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	deployerrors "deployit.dev/deployit/internal/errors"
	"deployit.dev/deployit/internal/shell"
)

func TestCommandRunnerExecute(t *testing.T) {
	t.Run("captures stdout", func(t *testing.T) {
		runner := shell.NewCommandRunner("")
		out, err := runner.Execute(context.Background(), `echo "hello world"`)
		require.NoError(t, err)
		require.Equal(t, "hello world\n", out.String())
		require.Equal(t, []string{"hello world"}, out.Lines())
	})

	t.Run("runs in the working directory", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "marker.txt"), []byte("x"), 0600))

		runner := shell.NewCommandRunner(dir)
		out, err := runner.Execute(context.Background(), "ls")
		require.NoError(t, err)
		require.Contains(t, out.Lines(), "marker.txt")
	})

	t.Run("non-zero exit returns ProcessError with exit code", func(t *testing.T) {
		runner := shell.NewCommandRunner("")
		_, err := runner.Execute(context.Background(), `sh -c "echo oops >&2; exit 3"`)
		require.Error(t, err)
		require.ErrorIs(t, err, deployerrors.ErrProcess)

		var procErr *deployerrors.ProcessError
		require.True(t, errors.As(err, &procErr))
		require.Equal(t, 3, procErr.ExitCode)
		require.Contains(t, procErr.Stderr, "oops")
	})

	t.Run("exceeding the timeout returns TimeoutError", func(t *testing.T) {
		runner := shell.NewCommandRunner("", shell.WithTimeout(50*time.Millisecond))
		_, err := runner.Execute(context.Background(), "sleep 5")
		require.Error(t, err)
		require.ErrorIs(t, err, deployerrors.ErrTimeout)
		require.NotErrorIs(t, err, deployerrors.ErrProcess)
	})

	t.Run("timeout kills grandchildren holding the output pipes", func(t *testing.T) {
		runner := shell.NewCommandRunner("", shell.WithTimeout(200*time.Millisecond))
		start := time.Now()
		_, err := runner.Execute(context.Background(), `sh -c "sleep 5; echo done"`)
		require.ErrorIs(t, err, deployerrors.ErrTimeout)
		require.Less(t, time.Since(start), 3*time.Second)
	})

	t.Run("dry run prints instead of executing", func(t *testing.T) {
		var buf bytes.Buffer
		runner := shell.NewCommandRunner("", shell.WithDryRun(&buf))
		out, err := runner.Execute(context.Background(), "rm -rf /definitely/not/here")
		require.NoError(t, err)
		require.True(t, out.DryRun)
		require.Equal(t, "[dry-run] rm -rf /definitely/not/here\n", buf.String())
	})

	t.Run("rejects empty and malformed command lines", func(t *testing.T) {
		runner := shell.NewCommandRunner("")
		_, err := runner.Execute(context.Background(), "   ")
		require.Error(t, err)
		_, err = runner.Execute(context.Background(), `echo "unterminated`)
		require.Error(t, err)
	})
}

func TestOutputFormatting(t *testing.T) {
	out := &shell.Output{Stdout: "a\n\nb\n\n"}
	require.Equal(t, []string{"a", "b"}, out.Lines())
	require.Equal(t, "a\n\nb\n", out.String())

	var nilOut *shell.Output
	require.Empty(t, nilOut.String())
	require.Empty(t, (&shell.Output{}).String())
}

func TestFakeRunner(t *testing.T) {
	fake := shell.NewFakeRunner().
		On("git log", "abc", nil).
		On("composer", "", deployerrors.NewProcessError("composer update", 1, "", "", nil))

	out, err := fake.Execute(context.Background(), "git log -1")
	require.NoError(t, err)
	require.Equal(t, "abc", out.Stdout)

	_, err = fake.Execute(context.Background(), "composer update")
	require.ErrorIs(t, err, deployerrors.ErrProcess)

	require.Equal(t, []string{"git log -1", "composer update"}, fake.Commands())
}
