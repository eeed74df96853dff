package runtime

import (
	"context"
	"fmt"
	"io"
	"os"

	"deployit.dev/deployit/internal/changes"
	"deployit.dev/deployit/internal/config"
	"deployit.dev/deployit/internal/git"
	"deployit.dev/deployit/internal/history"
	"deployit.dev/deployit/internal/notify"
	"deployit.dev/deployit/internal/output"
	"deployit.dev/deployit/internal/shell"
)

// Options controls how a Context is built
type Options struct {
	// Dir is any directory inside the repository; defaults to the working directory
	Dir string
	// ConfigPath overrides the config file location
	ConfigPath string
	// DryRun prints mutating commands instead of running them
	DryRun bool
	// Out receives console output; nil means stdout plus the log file
	Out io.Writer
	// SkipHistory leaves the history store closed
	SkipHistory bool
	// Quiet silences the console; the log file still receives every line
	Quiet bool
}

// Context provides access to configuration, output and collaborators for commands
type Context struct {
	Config   *config.Config
	Splog    *output.Splog
	RepoRoot string
	DryRun   bool

	// Runner executes tool commands (artisan, composer, npm)
	Runner shell.Runner
	Git    *git.Client
	// Tracker is fresh per context; one context serves one pipeline run
	Tracker  *changes.Tracker
	Deployer *notify.Deployer
	History  *history.Store
}

// NewContext assembles a context from already-built parts. The tracker is
// created over client.
func NewContext(cfg *config.Config, splog *output.Splog, repoRoot string, runner shell.Runner, client *git.Client) *Context {
	return &Context{
		Config:   cfg,
		Splog:    splog,
		RepoRoot: repoRoot,
		Runner:   runner,
		Git:      client,
		Tracker:  changes.NewTracker(client),
	}
}

// GetContext builds the context for the repository containing opts.Dir
func GetContext(ctx context.Context, opts Options) (*Context, error) {
	dir := opts.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = wd
	}

	repoRoot, err := git.GetRepoRoot(dir)
	if err != nil {
		return nil, err
	}

	var cfg *config.Config
	if opts.ConfigPath != "" {
		cfg, err = config.LoadFile(opts.ConfigPath)
	} else {
		cfg, err = config.Load(repoRoot)
	}
	if err != nil {
		return nil, err
	}

	mode, err := changes.ParseMatchMode(cfg.MatchMode)
	if err != nil {
		return nil, err
	}

	splog, err := newSplog(opts.Out)
	if err != nil {
		return nil, err
	}
	splog.SetQuiet(opts.Quiet)

	runnerOpts := []shell.Option{shell.WithTimeout(cfg.Timeout.Std())}
	reader := shell.NewCommandRunner(repoRoot, runnerOpts...)
	runner := shell.Runner(reader)
	if opts.DryRun {
		runner = shell.NewCommandRunner(repoRoot, append(runnerOpts, shell.WithDryRun(splog.Writer()))...)
	}

	client := git.NewClient(runner, repoRoot, git.WithReadRunner(reader))
	c := NewContext(cfg, splog, repoRoot, runner, client)
	c.DryRun = opts.DryRun

	c.Tracker.SetMatchMode(mode)

	if cfg.GitHub.Enabled() {
		token := cfg.GitHub.Token()
		switch {
		case token == "":
			splog.Warn("GitHub deployments are configured but %s is empty, skipping notification", cfg.GitHub.TokenEnvName())
		case opts.DryRun:
			splog.Debug("Dry run: GitHub deployment notification disabled")
		default:
			gh, err := notify.NewClient(ctx, token, cfg.GitHub.BaseURL)
			if err != nil {
				_ = splog.Close()
				return nil, err
			}
			c.Deployer = notify.NewDeployer(gh, cfg.GitHub.Owner, cfg.GitHub.Repo, cfg.GitHub.Environment)
		}
	}

	if !opts.SkipHistory && !cfg.History.Disabled {
		store, err := history.Open(config.ResolvePath(repoRoot, cfg.History.Path))
		if err != nil {
			splog.Warn("Run history unavailable: %v", err)
		} else {
			c.History = store
		}
	}

	return c, nil
}

func newSplog(out io.Writer) (*output.Splog, error) {
	if out != nil {
		return output.NewSplogWithWriter(out, os.Getenv("DEBUG") != ""), nil
	}
	return output.NewSplogWithConfig(output.GetLogFilePath())
}

// Close releases the history store and log file
func (c *Context) Close() error {
	var firstErr error
	if c.History != nil {
		if err := c.History.Close(); err != nil {
			firstErr = err
		}
	}
	if c.Splog != nil {
		if err := c.Splog.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
