package git

import (
	"context"
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"

	"deployit.dev/deployit/internal/shell"
)

// Default remote and branch used when the configuration names none
const (
	DefaultRemote = "origin"
	DefaultBranch = "master"
)

// VCS is the set of version-control operations release actions depend on.
type VCS interface {
	Log(ctx context.Context, depth int, fields ...LogField) ([]Commit, error)
	Diff(ctx context.Context, fromHash, toHash string) ([]DiffEntry, error)
	Clean(ctx context.Context) (string, error)
	Reset(ctx context.Context) (string, error)
	Checkout(ctx context.Context, branch string) (string, error)
	Pull(ctx context.Context, remote, branch string) (string, error)
}

// Client implements VCS for a working copy on disk
type Client struct {
	runner shell.Runner
	reader shell.Runner
	dir    string
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithReadRunner runs read-only commands such as diff through r instead of
// the main runner, so a dry-run client still sees real changes
func WithReadRunner(r shell.Runner) ClientOption {
	return func(c *Client) {
		c.reader = r
	}
}

var _ VCS = (*Client)(nil)

// NewClient creates a Client for the repository containing dir.
// Command lines are executed through runner, which should run in dir.
func NewClient(runner shell.Runner, dir string, opts ...ClientOption) *Client {
	c := &Client{runner: runner, reader: runner, dir: dir}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dir returns the directory the client was opened for
func (c *Client) Dir() string {
	return c.dir
}

// runGit executes a git command line and returns its raw output
func (c *Client) runGit(ctx context.Context, args ...string) (*shell.Output, error) {
	return c.execGit(ctx, c.runner, args...)
}

// readGit executes a read-only git command line
func (c *Client) readGit(ctx context.Context, args ...string) (*shell.Output, error) {
	return c.execGit(ctx, c.reader, args...)
}

func (c *Client) execGit(ctx context.Context, runner shell.Runner, args ...string) (*shell.Output, error) {
	commandLine := shellquote.Join(append([]string{"git"}, args...)...)
	out, err := runner.Execute(ctx, commandLine)
	if err != nil {
		return nil, fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return out, nil
}
