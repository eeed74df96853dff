package notify_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"deployit.dev/deployit/internal/notify"
	"deployit.dev/deployit/testhelpers"
)

const headHash = "0123456789abcdef0123456789abcdef01234567"

func TestNotifyCreatesDeploymentAndStatus(t *testing.T) {
	mock := testhelpers.NewMockGitHubServerConfig()
	client, _ := testhelpers.NewMockGitHubClient(t, mock)

	deployer := notify.NewDeployer(client, "owner", "repo", "")
	require.Equal(t, "production", deployer.Environment())

	deployment, err := deployer.Notify(context.Background(), headHash, notify.StateSuccess, "deployit release")
	require.NoError(t, err)

	require.Equal(t, int64(1001), deployment.ID)
	require.Equal(t, notify.StateSuccess, deployment.State)
	require.Equal(t, "production", deployment.Environment)
	require.Equal(t, "Deployment 1001 of 0123456 to production marked success", deployment.String())

	require.Len(t, mock.Deployments, 1)
	req := mock.Deployments[0]
	require.Equal(t, headHash, req.GetRef())
	require.Equal(t, "production", req.GetEnvironment())
	require.False(t, req.GetAutoMerge())
	require.NotNil(t, req.RequiredContexts)
	require.Empty(t, *req.RequiredContexts)

	statuses := mock.Statuses[1001]
	require.Len(t, statuses, 1)
	require.Equal(t, "success", statuses[0].GetState())
	require.Equal(t, "deployit release", statuses[0].GetDescription())
}

func TestNotifyFailures(t *testing.T) {
	t.Run("empty ref", func(t *testing.T) {
		client, _ := testhelpers.NewMockGitHubClient(t, testhelpers.NewMockGitHubServerConfig())
		_, err := notify.NewDeployer(client, "owner", "repo", "staging").Notify(context.Background(), "", notify.StateSuccess, "")
		require.ErrorContains(t, err, "ref is required")
	})

	t.Run("deployment rejected", func(t *testing.T) {
		mock := testhelpers.NewMockGitHubServerConfig()
		mock.FailDeployments = true
		client, _ := testhelpers.NewMockGitHubClient(t, mock)

		_, err := notify.NewDeployer(client, "owner", "repo", "staging").Notify(context.Background(), "main", notify.StateSuccess, "")
		require.ErrorContains(t, err, "failed to create deployment for main")
		require.Empty(t, mock.Statuses)
	})

	t.Run("unknown repository", func(t *testing.T) {
		client, _ := testhelpers.NewMockGitHubClient(t, testhelpers.NewMockGitHubServerConfig())
		_, err := notify.NewDeployer(client, "someone", "else", "").Notify(context.Background(), "main", notify.StateSuccess, "")
		require.Error(t, err)
	})
}

func TestNewClientSendsToken(t *testing.T) {
	mock := testhelpers.NewMockGitHubServerConfig()
	server := testhelpers.NewMockGitHubServer(t, mock)

	client, err := notify.NewClient(context.Background(), "s3cret", server.URL)
	require.NoError(t, err)
	require.Equal(t, server.URL+"/", client.BaseURL.String())

	_, err = notify.NewDeployer(client, "owner", "repo", "staging").Notify(context.Background(), "release/1.2", notify.StateFailure, "")
	require.NoError(t, err)

	require.NotEmpty(t, mock.AuthHeaders)
	require.Equal(t, "Bearer s3cret", mock.AuthHeaders[0])
	require.Equal(t, "failure", mock.Statuses[1001][0].GetState())
}
