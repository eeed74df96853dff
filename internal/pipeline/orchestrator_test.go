package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deployit.dev/deployit/internal/actions"
	"deployit.dev/deployit/internal/changes"
	deployerrors "deployit.dev/deployit/internal/errors"
	"deployit.dev/deployit/internal/git"
	"deployit.dev/deployit/internal/history"
	"deployit.dev/deployit/internal/output"
	"deployit.dev/deployit/internal/pipeline"
)

type diffVCS struct {
	head  string
	lines []string
}

func (d *diffVCS) Log(_ context.Context, _ int, _ ...git.LogField) ([]git.Commit, error) {
	return []git.Commit{{Hash: d.head}}, nil
}

func (d *diffVCS) Diff(_ context.Context, _, _ string) ([]git.DiffEntry, error) {
	return git.ParseNameStatus(d.lines), nil
}

type memoryRecorder struct {
	runs []*history.Run
	err  error
}

func (m *memoryRecorder) Record(_ context.Context, run *history.Run) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.runs = append(m.runs, run)
	run.ID = int64(len(m.runs))
	return run.ID, nil
}

func text(s string) actions.Func {
	return func(context.Context, ...any) (any, error) {
		return s, nil
	}
}

func fail(err error) actions.Func {
	return func(context.Context, ...any) (any, error) {
		return nil, err
	}
}

func newRegistry(t *testing.T, lines ...string) (*actions.Registry, *changes.Tracker) {
	t.Helper()
	tracker := changes.NewTracker(&diffVCS{head: "H1", lines: lines})
	tracker.SetBaseline("H0")
	registry := actions.NewRegistry(tracker)
	require.NoError(t, registry.Register("down", text("Application is now in maintenance mode."), "Going down..."))
	require.NoError(t, registry.Register("composer_update", text("Nothing to install"), "Updating composer dependencies..."))
	require.NoError(t, registry.Register("npm_install", text("added 1 package"), ""))
	require.NoError(t, registry.Register("up", text("Application is now live."), "Coming back up!"))
	registry.Watch("composer_update", "composer.json", "composer.lock")
	registry.Watch("npm_install", "package.json")
	return registry, tracker
}

func fixedClock() func() time.Time {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func TestRunVisitsEveryAction(t *testing.T) {
	registry, tracker := newRegistry(t, "M  composer.json")
	var buf bytes.Buffer
	recorder := &memoryRecorder{}

	orch := pipeline.New(registry, tracker, output.NewSplogWithWriter(&buf, false),
		pipeline.WithRecorder(recorder), pipeline.WithClock(fixedClock()))

	report, err := orch.Run(context.Background(), "release", pipeline.Options{})
	require.NoError(t, err)
	require.Len(t, report.Results, 4)

	assert.Equal(t, history.StatusRan, report.Results[0].Status)
	assert.Equal(t, history.StatusRan, report.Results[1].Status)
	assert.Equal(t, history.StatusSkipped, report.Results[2].Status)
	assert.Equal(t, history.StatusRan, report.Results[3].Status)
	assert.Equal(t, time.Second, report.Results[0].Duration)
	assert.True(t, report.Succeeded())
	assert.Equal(t, "H0", report.Baseline)
	assert.Equal(t, "H1", report.Head)

	out := buf.String()
	assert.Contains(t, out, "Going down...")
	assert.Contains(t, out, "Application is now in maintenance mode.\n")
	assert.Contains(t, out, "npm_install")
	assert.Contains(t, out, "Skipped, no watched files changed")
	assert.Contains(t, out, "release: 3 ran, 1 skipped, 0 failed")

	require.Len(t, recorder.runs, 1)
	run := recorder.runs[0]
	assert.Equal(t, "release", run.Preset)
	assert.Equal(t, "H0", run.Baseline)
	require.Len(t, run.Actions, 4)
	assert.Equal(t, "Nothing to install", run.Actions[1].Output)
	assert.Equal(t, history.StatusSkipped, run.Actions[2].Status)
}

func TestRunContinuesAfterFailure(t *testing.T) {
	registry, tracker := newRegistry(t)
	boom := errors.New("SQLSTATE[HY000] connection refused")
	require.NoError(t, registry.RegisterAfter("down", "migrations", fail(boom), "Running migrations..."))

	var seen []string
	require.NoError(t, registry.Register("notify", actions.Func(func(context.Context, ...any) (any, error) {
		v, _ := registry.Option(actions.OptionFailedActions)
		seen, _ = v.([]string)
		return nil, nil
	}), ""))

	var buf bytes.Buffer
	orch := pipeline.New(registry, tracker, output.NewSplogWithWriter(&buf, false))
	report, err := orch.Run(context.Background(), "release", pipeline.Options{})
	require.NoError(t, err)

	assert.False(t, report.Succeeded())
	assert.Equal(t, []string{"migrations"}, report.Failed())
	assert.Equal(t, []string{"migrations"}, seen)
	assert.Same(t, boom, report.Results[1].Err)
	assert.Equal(t, history.StatusRan, report.Results[4].Status, "up still runs after a failure")

	run := report.Run()
	assert.Equal(t, boom.Error(), run.Actions[1].Error)
	assert.Equal(t, 1, run.Count(history.StatusFailed))
	assert.Contains(t, buf.String(), "migrations failed: SQLSTATE[HY000] connection refused")
	assert.Contains(t, buf.String(), "1 failed (migrations)")
}

func TestPlanFilters(t *testing.T) {
	registry, tracker := newRegistry(t)
	orch := pipeline.New(registry, tracker, output.NewSplogWithWriter(&bytes.Buffer{}, false))

	plan, err := orch.Plan(pipeline.Options{Only: []string{"up", "down"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"down", "up"}, plan)

	plan, err = orch.Plan(pipeline.Options{Skip: []string{"npm_install"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"down", "composer_update", "up"}, plan)

	_, err = orch.Plan(pipeline.Options{Skip: []string{"deploy"}})
	require.ErrorIs(t, err, deployerrors.ErrUnknownAction)

	_, err = orch.Run(context.Background(), "release", pipeline.Options{Only: []string{"deploy"}})
	require.ErrorIs(t, err, deployerrors.ErrUnknownAction)
}

func TestRunStopsWhenCancelled(t *testing.T) {
	registry, tracker := newRegistry(t)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, registry.RegisterAfter("down", "cancel", actions.Func(func(context.Context, ...any) (any, error) {
		cancel()
		return nil, nil
	}), ""))

	orch := pipeline.New(registry, tracker, output.NewSplogWithWriter(&bytes.Buffer{}, false))
	report, err := orch.Run(ctx, "release", pipeline.Options{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, report.Results, 2)
}

func TestRunRecordsToHistoryStore(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	registry, tracker := newRegistry(t, "M  package.json")
	orch := pipeline.New(registry, tracker, output.NewSplogWithWriter(&bytes.Buffer{}, false), pipeline.WithRecorder(store))
	report, err := orch.Run(context.Background(), "build", pipeline.Options{DryRun: true})
	require.NoError(t, err)
	require.True(t, report.Succeeded())

	runs, err := store.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "build", runs[0].Preset)
	assert.True(t, runs[0].DryRun)
	assert.Equal(t, 3, runs[0].Count(history.StatusRan))
	assert.Equal(t, history.StatusSkipped, runs[0].Actions[1].Status)
}

func TestRecorderFailureOnlyWarns(t *testing.T) {
	registry, tracker := newRegistry(t)
	var buf bytes.Buffer
	orch := pipeline.New(registry, tracker, output.NewSplogWithWriter(&buf, false),
		pipeline.WithRecorder(&memoryRecorder{err: errors.New("disk full")}))

	report, err := orch.Run(context.Background(), "release", pipeline.Options{})
	require.NoError(t, err)
	assert.True(t, report.Succeeded())
	assert.Contains(t, buf.String(), "Failed to record run history: disk full")
}
