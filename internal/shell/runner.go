// Package shell executes external commands for pipeline actions.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"

	deployerrors "deployit.dev/deployit/internal/errors"
)

// DefaultCommandTimeout is the default timeout for external commands
const DefaultCommandTimeout = 5 * time.Minute

// pipeWaitDelay bounds how long Execute waits for output pipes after the
// process was killed
const pipeWaitDelay = 2 * time.Second

// Runner is an interface for executing commands. It allows tests to inject
// fake implementations without running real processes.
type Runner interface {
	Execute(ctx context.Context, commandLine string) (*Output, error)
}

// Output is the captured result of a command
type Output struct {
	Command string
	Stdout  string
	Stderr  string
	DryRun  bool
}

// Lines returns the non-empty lines of stdout
func (o *Output) Lines() []string {
	if o == nil {
		return nil
	}
	var lines []string
	for _, line := range strings.Split(o.Stdout, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// String returns stdout with trailing newlines collapsed into one
func (o *Output) String() string {
	if o == nil {
		return ""
	}
	trimmed := strings.TrimRight(o.Stdout, "\r\n")
	if trimmed == "" {
		return ""
	}
	return trimmed + "\n"
}

// CommandRunner handles execution of command lines
type CommandRunner struct {
	workingDir string
	timeout    time.Duration
	env        []string
	dryRun     bool
	dryRunOut  io.Writer
}

// Option configures a CommandRunner
type Option func(*CommandRunner)

// WithTimeout bounds every command run by the runner. Non-positive values keep the default.
func WithTimeout(timeout time.Duration) Option {
	return func(r *CommandRunner) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

// WithEnv appends KEY=VALUE pairs to the environment of every command
func WithEnv(env ...string) Option {
	return func(r *CommandRunner) {
		r.env = append(r.env, env...)
	}
}

// WithDryRun makes the runner print commands to w instead of executing them
func WithDryRun(w io.Writer) Option {
	return func(r *CommandRunner) {
		r.dryRun = true
		r.dryRunOut = w
	}
}

// NewCommandRunner creates a new CommandRunner
func NewCommandRunner(workingDir string, opts ...Option) *CommandRunner {
	r := &CommandRunner{
		workingDir: workingDir,
		timeout:    DefaultCommandTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WorkingDir returns the directory commands run in
func (r *CommandRunner) WorkingDir() string {
	return r.workingDir
}

// Timeout returns the per-command time bound
func (r *CommandRunner) Timeout() time.Duration {
	return r.timeout
}

// Execute splits commandLine with shell quoting rules and runs it without a shell.
// A non-zero exit returns *errors.ProcessError; exceeding the timeout returns *errors.TimeoutError.
func (r *CommandRunner) Execute(ctx context.Context, commandLine string) (*Output, error) {
	args, err := shellquote.Split(commandLine)
	if err != nil {
		return nil, fmt.Errorf("failed to parse command %q: %w", commandLine, err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	if r.dryRun {
		if r.dryRunOut != nil {
			_, _ = fmt.Fprintf(r.dryRunOut, "[dry-run] %s\n", commandLine)
		}
		return &Output{Command: commandLine, DryRun: true}, nil
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	setProcessGroup(cmd)
	cmd.WaitDelay = pipeWaitDelay
	if r.workingDir != "" {
		cmd.Dir = r.workingDir
	}
	if len(r.env) > 0 {
		cmd.Env = append(os.Environ(), r.env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, deployerrors.NewTimeoutError(commandLine, r.timeout, stdout.String(), stderr.String())
		}
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return nil, deployerrors.NewProcessError(commandLine, exitCode, stdout.String(), stderr.String(), err)
	}

	return &Output{
		Command: commandLine,
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
	}, nil
}
