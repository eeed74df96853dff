package release_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deployit.dev/deployit/internal/actions"
	"deployit.dev/deployit/internal/changes"
	"deployit.dev/deployit/internal/config"
	"deployit.dev/deployit/internal/git"
	"deployit.dev/deployit/internal/notify"
	"deployit.dev/deployit/internal/release"
	"deployit.dev/deployit/internal/shell"
	"deployit.dev/deployit/testhelpers"
)

// fakeGit records mutating calls and serves a fixed HEAD and diff
type fakeGit struct {
	head  string
	lines []string
	calls []string
}

var _ git.VCS = (*fakeGit)(nil)

func (f *fakeGit) Log(_ context.Context, _ int, _ ...git.LogField) ([]git.Commit, error) {
	return []git.Commit{{Hash: f.head}}, nil
}

func (f *fakeGit) Diff(_ context.Context, _, _ string) ([]git.DiffEntry, error) {
	return git.ParseNameStatus(f.lines), nil
}

func (f *fakeGit) Clean(_ context.Context) (string, error) {
	f.calls = append(f.calls, "clean")
	return "", nil
}

func (f *fakeGit) Reset(_ context.Context) (string, error) {
	f.calls = append(f.calls, "reset")
	return "HEAD is now at abc1234\n", nil
}

func (f *fakeGit) Checkout(_ context.Context, branch string) (string, error) {
	f.calls = append(f.calls, "checkout "+branch)
	return "", nil
}

func (f *fakeGit) Pull(_ context.Context, remote, branch string) (string, error) {
	f.calls = append(f.calls, "pull "+remote+" "+branch)
	f.head = "H1"
	return "Fast-forward\n", nil
}

type fixture struct {
	cfg     *config.Config
	runner  *shell.FakeRunner
	git     *fakeGit
	tracker *changes.Tracker
}

func newFixture(lines ...string) *fixture {
	g := &fakeGit{head: "H0", lines: lines}
	return &fixture{
		cfg:     config.Default(),
		runner:  shell.NewFakeRunner(),
		git:     g,
		tracker: changes.NewTracker(g),
	}
}

func (f *fixture) deps() release.Deps {
	return release.Deps{Config: f.cfg, Runner: f.runner, Git: f.git, Tracker: f.tracker}
}

func invokeAll(t *testing.T, registry *actions.Registry) map[string]actions.Outcome {
	t.Helper()
	outcomes := make(map[string]actions.Outcome)
	for _, name := range registry.List() {
		out, err := registry.Invoke(context.Background(), name)
		require.NoError(t, err, name)
		outcomes[name] = out
	}
	return outcomes
}

func TestPresetOrder(t *testing.T) {
	f := newFixture()

	registry, err := release.Build(release.PresetRelease, f.deps())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"down", "record_baseline", "git_clean", "git_reset", "git_checkout",
		"git_pull", "migrations", "composer_update", "npm_install", "up",
	}, registry.List())
	assert.Equal(t, "Putting the application into maintenance mode...", registry.Message("down"))

	registry, err = release.Build(release.PresetBuild, f.deps())
	require.NoError(t, err)
	assert.Equal(t, []string{"record_baseline", "git_pull", "composer_update", "npm_install", "npm_build"}, registry.List())
}

func TestBuildErrors(t *testing.T) {
	f := newFixture()
	_, err := release.Build("rollback", f.deps())
	require.ErrorContains(t, err, `unknown preset "rollback"`)

	_, err = release.Build(release.PresetBuild, release.Deps{Config: f.cfg})
	require.ErrorContains(t, err, "needs a runner")
}

func TestReleaseRunsCommands(t *testing.T) {
	f := newFixture("M  composer.lock", "M  resources/js/app.js")
	f.cfg.Branch = "production"
	f.runner.On("php artisan down", "Application is now in maintenance mode.\n", nil)

	registry, err := release.Build(release.PresetRelease, f.deps())
	require.NoError(t, err)
	outcomes := invokeAll(t, registry)

	assert.Equal(t, []string{
		"php artisan down",
		"php artisan migrate --force",
		"composer update --no-interaction",
		"php artisan up",
	}, f.runner.Commands())
	assert.Equal(t, []string{"clean", "reset", "checkout production", "pull origin production"}, f.git.calls)

	assert.Equal(t, "Application is now in maintenance mode.\n", outcomes["down"].Value)
	assert.Equal(t, "Baseline H0", outcomes["record_baseline"].Value)
	assert.True(t, outcomes["npm_install"].Skipped)
	assert.False(t, outcomes["composer_update"].Skipped)
	assert.Equal(t, "H0", f.tracker.Baseline())
	assert.Equal(t, "H1", f.tracker.Head())
}

func TestRecordBaselineKeepsPresetBaseline(t *testing.T) {
	f := newFixture("M  package.json")
	f.tracker.SetBaseline("0123456789abcdef")

	registry, err := release.Build(release.PresetBuild, f.deps())
	require.NoError(t, err)
	outcomes := invokeAll(t, registry)

	assert.Equal(t, "Using baseline 0123456", outcomes["record_baseline"].Value)
	assert.Equal(t, "0123456789abcdef", f.tracker.Baseline())
	assert.True(t, outcomes["composer_update"].Skipped)
	assert.Equal(t, []string{"npm install", "npm run build"}, f.runner.Commands())
}

func TestForceBypassesWatch(t *testing.T) {
	f := newFixture()

	registry, err := release.Build(release.PresetBuild, f.deps())
	require.NoError(t, err)
	registry.Force(release.ActionComposerUpdate)
	invokeAll(t, registry)

	assert.Equal(t, []string{"composer update --no-interaction", "npm run build"}, f.runner.Commands())
}

func TestConfigStepsAndWatch(t *testing.T) {
	f := newFixture("M  config/cache.php")
	f.cfg.NPM = "pnpm"
	f.cfg.Watch = map[string]config.Patterns{
		"npm_install": {"pnpm-lock.yaml"},
	}
	f.cfg.Steps = []config.Step{
		{Name: "config_cache", Run: "php artisan config:cache", Message: "Caching config...", After: "migrations", Watch: config.Patterns{"config"}},
		{Name: "queue_restart", Run: "php artisan queue:restart", Before: "up"},
		{Name: "opcache_reset", Run: "cachetool opcache:reset", After: "missing_anchor"},
		{Name: "sitemap", Run: "php artisan sitemap:generate", Presets: []string{"build"}},
	}

	registry, err := release.Build(release.PresetRelease, f.deps())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"down", "record_baseline", "git_clean", "git_reset", "git_checkout", "git_pull",
		"migrations", "config_cache", "composer_update", "npm_install", "queue_restart", "up", "opcache_reset",
	}, registry.List())
	assert.Equal(t, "Caching config...", registry.Message("config_cache"))

	rule, ok := registry.WatchRule("npm_install")
	require.True(t, ok)
	assert.Equal(t, []string{"pnpm-lock.yaml"}, rule)
	rule, ok = registry.WatchRule("composer_update")
	require.True(t, ok)
	assert.Equal(t, []string{"composer.json", "composer.lock"}, rule)

	outcomes := invokeAll(t, registry)
	assert.False(t, outcomes["config_cache"].Skipped)
	assert.True(t, outcomes["npm_install"].Skipped)
	assert.Contains(t, f.runner.Commands(), "php artisan config:cache")
	assert.Contains(t, f.runner.Commands(), "cachetool opcache:reset")
	assert.NotContains(t, f.runner.Commands(), "php artisan sitemap:generate")
}

func TestEmptyWatchRuleRemovesDefault(t *testing.T) {
	f := newFixture()
	f.cfg.Watch = map[string]config.Patterns{
		"npm_install":     nil,
		"composer_update": {},
	}

	registry, err := release.Build(release.PresetBuild, f.deps())
	require.NoError(t, err)

	_, ok := registry.WatchRule("npm_install")
	assert.False(t, ok)
	_, ok = registry.WatchRule("composer_update")
	assert.False(t, ok)

	outcomes := invokeAll(t, registry)
	assert.False(t, outcomes["npm_install"].Skipped)
	assert.False(t, outcomes["composer_update"].Skipped)
	assert.Equal(t, []string{"composer update --no-interaction", "npm install", "npm run build"}, f.runner.Commands())
}

func TestStepNameCollision(t *testing.T) {
	f := newFixture()
	f.cfg.Steps = []config.Step{{Name: "git_pull", Run: "true"}}

	_, err := release.Build(release.PresetRelease, f.deps())
	require.ErrorContains(t, err, "step git_pull")
}

func TestCommandBody(t *testing.T) {
	runner := shell.NewFakeRunner().On("php artisan", "done\n\n", nil)
	cmd := release.Command{Runner: runner, Line: "php artisan"}

	out, err := cmd.Invoke(context.Background(), "db:seed", "--class", "Demo Seeder")
	require.NoError(t, err)
	assert.Equal(t, "done\n", out)
	assert.Equal(t, []string{"php artisan db:seed --class 'Demo Seeder'"}, runner.Commands())

	boom := errors.New("exit status 1")
	runner.On("npm", "", boom)
	_, err = release.Command{Runner: runner, Line: "npm ci"}.Invoke(context.Background())
	assert.Same(t, boom, err)
}

func TestGitHubDeploymentAction(t *testing.T) {
	mock := testhelpers.NewMockGitHubServerConfig()
	client, _ := testhelpers.NewMockGitHubClient(t, mock)

	f := newFixture()
	deps := f.deps()
	deps.Deployer = notify.NewDeployer(client, "owner", "repo", "production")

	registry, err := release.Build(release.PresetRelease, deps)
	require.NoError(t, err)
	require.Equal(t, release.ActionGitHubDeployment, registry.List()[registry.Len()-1])

	out, err := registry.Invoke(context.Background(), release.ActionGitHubDeployment)
	require.NoError(t, err)
	assert.Equal(t, "Deployment 1001 of H0 to production marked success", out.Value)

	registry.SetOption(actions.OptionFailedActions, []string{"migrations"})
	out, err = registry.Invoke(context.Background(), release.ActionGitHubDeployment)
	require.NoError(t, err)
	assert.Equal(t, "Deployment 1002 of H0 to production marked failure", out.Value)
	assert.Equal(t, "Release failed at migrations", mock.Statuses[1002][0].GetDescription())
}

func TestReleaseAgainstRepository(t *testing.T) {
	ctx := context.Background()
	scene := testhelpers.NewScene(t, testhelpers.LaravelSceneSetup)
	deploy := testhelpers.NewDeployTarget(t, scene)

	require.NoError(t, deploy.Origin.CommitFiles("bump dependencies", map[string]string{
		"composer.json":       `{"require": {"laravel/framework": "^11.0"}}`,
		"npm-shrinkwrap.json": `{}`,
	}))
	require.NoError(t, deploy.Origin.PushBranch("origin", "main"))
	require.NoError(t, deploy.Target.WriteFile("stray.log", "x"))

	client := git.NewClient(shell.NewCommandRunner(deploy.Target.Dir), deploy.Target.Dir)
	cfg := config.Default()
	cfg.Branch = "main"
	cfg.Watch = map[string]config.Patterns{
		"composer_update": {"composer.json", "composer.lock"},
		"npm_install":     {"package.json"},
	}
	tools := shell.NewFakeRunner()

	registry, err := release.Build(release.PresetRelease, release.Deps{
		Config:  cfg,
		Runner:  tools,
		Git:     client,
		Tracker: changes.NewTracker(client),
	})
	require.NoError(t, err)

	outcomes := make(map[string]actions.Outcome)
	for _, name := range registry.List() {
		out, err := registry.Invoke(ctx, name)
		require.NoError(t, err, name)
		outcomes[name] = out
	}

	assert.False(t, outcomes["composer_update"].Skipped)
	assert.True(t, outcomes["npm_install"].Skipped)
	assert.Contains(t, tools.Commands(), "composer update --no-interaction")
	assert.NotContains(t, tools.Commands(), "npm install")

	testhelpers.ExpectNoUntrackedFiles(t, deploy.Target)

	want, err := deploy.Origin.GetCurrentSHA()
	require.NoError(t, err)
	got, err := client.HeadHash(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
