// Package errors provides sentinel errors and custom error types for deployit.
// Use errors.Is() and errors.As() to check for specific error types.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors for common conditions
var (
	// ErrEmptyActionName indicates an attempt to register an action without a name
	ErrEmptyActionName = errors.New("action name can't be empty")

	// ErrDuplicateAction indicates that an action with the same name is already registered
	ErrDuplicateAction = errors.New("action already exists")

	// ErrNilBody indicates an attempt to register an action without a body
	ErrNilBody = errors.New("action has no body")

	// ErrUnknownAction indicates that no action is registered under a name
	ErrUnknownAction = errors.New("action does not exist")

	// ErrProcess indicates that an external command exited with a non-zero status
	ErrProcess = errors.New("process failed")

	// ErrTimeout indicates that an external command exceeded its time bound
	ErrTimeout = errors.New("process timed out")

	// ErrNoCommits indicates that the repository log is empty
	ErrNoCommits = errors.New("no commits found")

	// ErrCommitNotFound indicates that a commit search found nothing within the lookback depth
	ErrCommitNotFound = errors.New("commit not found")
)

// EmptyNameError is returned when registering an action with an empty name
type EmptyNameError struct{}

func (e *EmptyNameError) Error() string {
	return ErrEmptyActionName.Error()
}

// Is returns true if the target error is ErrEmptyActionName
func (e *EmptyNameError) Is(target error) bool {
	return target == ErrEmptyActionName
}

// DuplicateActionError represents an attempt to register an existing action
type DuplicateActionError struct {
	Name string
}

func (e *DuplicateActionError) Error() string {
	return fmt.Sprintf("action '%s' already exists", e.Name)
}

// Is returns true if the target error is ErrDuplicateAction
func (e *DuplicateActionError) Is(target error) bool {
	return target == ErrDuplicateAction
}

// NewDuplicateActionError creates a new DuplicateActionError
func NewDuplicateActionError(name string) *DuplicateActionError {
	return &DuplicateActionError{Name: name}
}

// NilBodyError represents an attempt to register an action without a body
type NilBodyError struct {
	Name string
}

func (e *NilBodyError) Error() string {
	return fmt.Sprintf("action '%s' has no body", e.Name)
}

// Is returns true if the target error is ErrNilBody
func (e *NilBodyError) Is(target error) bool {
	return target == ErrNilBody
}

// NewNilBodyError creates a new NilBodyError
func NewNilBodyError(name string) *NilBodyError {
	return &NilBodyError{Name: name}
}

// UnknownActionError represents an invocation of an action that is not registered
type UnknownActionError struct {
	Name string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("action '%s' does not exist", e.Name)
}

// Is returns true if the target error is ErrUnknownAction
func (e *UnknownActionError) Is(target error) bool {
	return target == ErrUnknownAction
}

// NewUnknownActionError creates a new UnknownActionError
func NewUnknownActionError(name string) *UnknownActionError {
	return &UnknownActionError{Name: name}
}

// ProcessError represents an external command that exited with a non-zero status
type ProcessError struct {
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	msg := fmt.Sprintf("command failed with exit code %d: %s", e.ExitCode, e.Command)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += fmt.Sprintf("\nstderr: %s", stderr)
	}
	if stdout := strings.TrimSpace(e.Stdout); stdout != "" {
		msg += fmt.Sprintf("\nstdout: %s", stdout)
	}
	return msg
}

// Is returns true if the target error is ErrProcess
func (e *ProcessError) Is(target error) bool {
	return target == ErrProcess
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// NewProcessError creates a new ProcessError
func NewProcessError(command string, exitCode int, stdout, stderr string, err error) *ProcessError {
	return &ProcessError{
		Command:  command,
		ExitCode: exitCode,
		Stdout:   stdout,
		Stderr:   stderr,
		Err:      err,
	}
}

// TimeoutError represents an external command that ran longer than allowed
type TimeoutError struct {
	Command string
	Timeout time.Duration
	Stdout  string
	Stderr  string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("command timed out after %s: %s", e.Timeout, e.Command)
}

// Is returns true if the target error is ErrTimeout
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// NewTimeoutError creates a new TimeoutError
func NewTimeoutError(command string, timeout time.Duration, stdout, stderr string) *TimeoutError {
	return &TimeoutError{
		Command: command,
		Timeout: timeout,
		Stdout:  stdout,
		Stderr:  stderr,
	}
}
