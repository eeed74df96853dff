// Package release builds the action registries for the release and build presets.
package release

import (
	"context"
	"fmt"
	"strings"

	"deployit.dev/deployit/internal/actions"
	"deployit.dev/deployit/internal/changes"
	"deployit.dev/deployit/internal/config"
	"deployit.dev/deployit/internal/git"
	"deployit.dev/deployit/internal/notify"
	"deployit.dev/deployit/internal/shell"
)

// Preset names
const (
	PresetRelease = "release"
	PresetBuild   = "build"
)

// Built-in action names
const (
	ActionDown             = "down"
	ActionRecordBaseline   = "record_baseline"
	ActionGitClean         = "git_clean"
	ActionGitReset         = "git_reset"
	ActionGitCheckout      = "git_checkout"
	ActionGitPull          = "git_pull"
	ActionMigrations       = "migrations"
	ActionComposerUpdate   = "composer_update"
	ActionNPMInstall       = "npm_install"
	ActionNPMBuild         = "npm_build"
	ActionUp               = "up"
	ActionGitHubDeployment = "github_deployment"
)

// Presets lists the preset names in display order
func Presets() []string {
	return []string{PresetRelease, PresetBuild}
}

// DefaultWatch returns the built-in watch rules
func DefaultWatch() map[string][]string {
	return map[string][]string{
		ActionComposerUpdate: {"composer.json", "composer.lock"},
		ActionNPMInstall:     {"package.json", "package-lock.json", "npm-shrinkwrap.json"},
	}
}

// Deps are the collaborators preset actions close over
type Deps struct {
	Config  *config.Config
	Runner  shell.Runner
	Git     git.VCS
	Tracker *changes.Tracker
	// Deployer is nil when GitHub notification is not configured
	Deployer *notify.Deployer
}

type builtin struct {
	name    string
	message string
	body    actions.Body
}

// Build creates the registry for preset: built-in actions in order, then the
// configured steps, then watch rules (built-in defaults overridden per action
// by the config, plus step rules).
func Build(preset string, deps Deps) (*actions.Registry, error) {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if deps.Runner == nil || deps.Git == nil || deps.Tracker == nil {
		return nil, fmt.Errorf("preset %s needs a runner, a git client and a change tracker", preset)
	}

	registry := actions.NewRegistry(deps.Tracker)

	var list []builtin
	switch preset {
	case PresetRelease:
		list = releaseActions(cfg, deps, registry)
	case PresetBuild:
		list = buildActions(cfg, deps)
	default:
		return nil, fmt.Errorf("unknown preset %q (expected one of %v)", preset, Presets())
	}

	for _, b := range list {
		if err := registry.Register(b.name, b.body, b.message); err != nil {
			return nil, err
		}
	}

	// an empty config rule removes the default and leaves the action unwatched
	watch := DefaultWatch()
	for name, patterns := range cfg.WatchRules() {
		if len(patterns) == 0 {
			delete(watch, name)
			continue
		}
		watch[name] = patterns
	}

	for _, step := range cfg.Steps {
		if !step.AppliesTo(preset) {
			continue
		}
		switch {
		case step.After != "":
			registry.After(step.After)
		case step.Before != "":
			registry.Before(step.Before)
		}
		if err := registry.Register(step.Name, Command{Runner: deps.Runner, Line: step.Run}, step.Message); err != nil {
			return nil, fmt.Errorf("step %s: %w", step.Name, err)
		}
		if len(step.Watch) > 0 {
			watch[step.Name] = step.Watch
		}
	}

	registry.SetWatch(watch)
	return registry, nil
}

func releaseActions(cfg *config.Config, deps Deps, registry *actions.Registry) []builtin {
	list := []builtin{
		{ActionDown, "Putting the application into maintenance mode...", Command{Runner: deps.Runner, Line: joinCommand(cfg.Artisan, "down")}},
		{ActionRecordBaseline, "Recording the current commit before pull...", recordBaseline(deps.Tracker)},
		{ActionGitClean, "Removing untracked files...", actions.Func(func(ctx context.Context, _ ...any) (any, error) {
			return deps.Git.Clean(ctx)
		})},
		{ActionGitReset, "Resetting git local changes...", actions.Func(func(ctx context.Context, _ ...any) (any, error) {
			return deps.Git.Reset(ctx)
		})},
		{ActionGitCheckout, fmt.Sprintf("Checking out branch %s...", cfg.Branch), actions.Func(func(ctx context.Context, _ ...any) (any, error) {
			return deps.Git.Checkout(ctx, cfg.Branch)
		})},
		gitPull(cfg, deps),
		{ActionMigrations, "Running migrations...", Command{Runner: deps.Runner, Line: joinCommand(cfg.Artisan, "migrate", "--force")}},
		composerUpdate(cfg, deps),
		npmInstall(cfg, deps),
		{ActionUp, "Bringing the application out of maintenance mode!", Command{Runner: deps.Runner, Line: joinCommand(cfg.Artisan, "up")}},
	}
	if deps.Deployer != nil {
		list = append(list, builtin{ActionGitHubDeployment, "Recording the deployment on GitHub...", githubDeployment(deps, registry)})
	}
	return list
}

func buildActions(cfg *config.Config, deps Deps) []builtin {
	return []builtin{
		{ActionRecordBaseline, "Recording the current commit before pull...", recordBaseline(deps.Tracker)},
		gitPull(cfg, deps),
		composerUpdate(cfg, deps),
		npmInstall(cfg, deps),
		{ActionNPMBuild, "Building front-end assets...", Command{Runner: deps.Runner, Line: joinCommand(cfg.NPM, "run", "build")}},
	}
}

func gitPull(cfg *config.Config, deps Deps) builtin {
	return builtin{ActionGitPull, "Pulling latest changes...", actions.Func(func(ctx context.Context, _ ...any) (any, error) {
		return deps.Git.Pull(ctx, cfg.Remote, cfg.Branch)
	})}
}

func composerUpdate(cfg *config.Config, deps Deps) builtin {
	return builtin{ActionComposerUpdate, "Updating composer dependencies...", Command{Runner: deps.Runner, Line: joinCommand(cfg.Composer, "update", "--no-interaction")}}
}

func npmInstall(cfg *config.Config, deps Deps) builtin {
	return builtin{ActionNPMInstall, "Installing npm packages...", Command{Runner: deps.Runner, Line: joinCommand(cfg.NPM, "install")}}
}

// recordBaseline keeps a baseline chosen before the run (--baseline,
// --since-message) and otherwise records HEAD
func recordBaseline(tracker *changes.Tracker) actions.Func {
	return func(ctx context.Context, _ ...any) (any, error) {
		if baseline := tracker.Baseline(); baseline != "" {
			return fmt.Sprintf("Using baseline %s", short(baseline)), nil
		}
		hash, err := tracker.RecordBaseline(ctx)
		if err != nil {
			return nil, err
		}
		return fmt.Sprintf("Baseline %s", short(hash)), nil
	}
}

// githubDeployment reports HEAD as deployed, or as failed when the
// orchestrator recorded an earlier failure in the run options
func githubDeployment(deps Deps, registry *actions.Registry) actions.Func {
	return func(ctx context.Context, _ ...any) (any, error) {
		commits, err := deps.Git.Log(ctx, 1)
		if err != nil {
			return nil, err
		}
		if len(commits) == 0 {
			return nil, fmt.Errorf("no commit to deploy")
		}

		state, description := notify.StateSuccess, "Released by deployit"
		if failed := failedActions(registry); len(failed) > 0 {
			state = notify.StateFailure
			description = fmt.Sprintf("Release failed at %s", strings.Join(failed, ", "))
		}

		deployment, err := deps.Deployer.Notify(ctx, commits[0].Hash, state, description)
		if err != nil {
			return nil, err
		}
		return deployment.String(), nil
	}
}

func failedActions(registry *actions.Registry) []string {
	v, ok := registry.Option(actions.OptionFailedActions)
	if !ok {
		return nil
	}
	failed, _ := v.([]string)
	return failed
}

func short(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}
