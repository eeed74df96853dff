package errors_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	deployerrors "deployit.dev/deployit/internal/errors"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"empty name", &deployerrors.EmptyNameError{}, deployerrors.ErrEmptyActionName},
		{"duplicate", deployerrors.NewDuplicateActionError("up"), deployerrors.ErrDuplicateAction},
		{"nil body", deployerrors.NewNilBodyError("up"), deployerrors.ErrNilBody},
		{"unknown", deployerrors.NewUnknownActionError("up"), deployerrors.ErrUnknownAction},
		{"process", deployerrors.NewProcessError("false", 1, "", "", nil), deployerrors.ErrProcess},
		{"timeout", deployerrors.NewTimeoutError("sleep 5", time.Second, "", ""), deployerrors.ErrTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("wrapped: %w", tt.err)
			require.ErrorIs(t, wrapped, tt.sentinel)
		})
	}
}

func TestProcessErrorCarriesExitCode(t *testing.T) {
	err := fmt.Errorf("composer: %w", deployerrors.NewProcessError("composer update", 2, "out", "boom", nil))

	var procErr *deployerrors.ProcessError
	require.True(t, errors.As(err, &procErr))
	require.Equal(t, 2, procErr.ExitCode)
	require.Contains(t, procErr.Error(), "stderr: boom")
	require.NotErrorIs(t, err, deployerrors.ErrTimeout)
}

func TestDuplicateActionErrorMessage(t *testing.T) {
	require.Equal(t, "action 'git_pull' already exists", deployerrors.NewDuplicateActionError("git_pull").Error())
}
