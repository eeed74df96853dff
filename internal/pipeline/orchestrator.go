// Package pipeline runs an action registry in order and reports each outcome.
//
// A failing action is reported and the run continues with the next one, so
// steps such as leaving maintenance mode are still attempted.
package pipeline

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"deployit.dev/deployit/internal/actions"
	"deployit.dev/deployit/internal/changes"
	deployerrors "deployit.dev/deployit/internal/errors"
	"deployit.dev/deployit/internal/history"
	"deployit.dev/deployit/internal/output"
)

// Recorder persists finished runs
type Recorder interface {
	Record(ctx context.Context, run *history.Run) (int64, error)
}

// Options configures a run
type Options struct {
	// Only restricts the run to these actions when non-empty
	Only []string
	// Skip leaves these actions out of the run
	Skip []string
	// DryRun is stored on the report; commands are not run by a dry-run runner
	DryRun bool
}

// Orchestrator runs the actions of one registry
type Orchestrator struct {
	registry *actions.Registry
	tracker  *changes.Tracker
	splog    *output.Splog
	recorder Recorder
	now      func() time.Time
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithRecorder stores every report through r
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		o.recorder = r
	}
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// New creates an orchestrator. tracker supplies the baseline and head for
// the report and may be nil.
func New(registry *actions.Registry, tracker *changes.Tracker, splog *output.Splog, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry: registry,
		tracker:  tracker,
		splog:    splog,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Plan returns the action names a run with opts would visit, in order
func (o *Orchestrator) Plan(opts Options) ([]string, error) {
	for _, name := range slices.Concat(opts.Only, opts.Skip) {
		if !o.registry.Has(name) {
			return nil, deployerrors.NewUnknownActionError(name)
		}
	}

	var plan []string
	for _, name := range o.registry.List() {
		if len(opts.Only) > 0 && !slices.Contains(opts.Only, name) {
			continue
		}
		if slices.Contains(opts.Skip, name) {
			continue
		}
		plan = append(plan, name)
	}
	return plan, nil
}

// Run invokes each planned action in order. Action failures are reported and
// recorded but do not stop the run; the returned error is non-nil only when
// the run could not start or ctx was cancelled.
func (o *Orchestrator) Run(ctx context.Context, preset string, opts Options) (*Report, error) {
	plan, err := o.Plan(opts)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Preset:    preset,
		DryRun:    opts.DryRun,
		StartedAt: o.now(),
	}

	var runErr error
	for _, name := range plan {
		if err := ctx.Err(); err != nil {
			runErr = fmt.Errorf("run interrupted before %s: %w", name, err)
			break
		}
		report.Results = append(report.Results, o.runAction(ctx, name, report.Failed()))
	}

	report.FinishedAt = o.now()
	if o.tracker != nil {
		report.Baseline = o.tracker.Baseline()
		report.Head = o.tracker.Head()
	}

	o.printSummary(report)

	if o.recorder != nil {
		if _, err := o.recorder.Record(ctx, report.Run()); err != nil {
			o.splog.Warn("Failed to record run history: %v", err)
		}
	}

	return report, runErr
}

func (o *Orchestrator) runAction(ctx context.Context, name string, failed []string) Result {
	res := Result{Name: name, Message: o.registry.Message(name)}
	if res.Message != "" {
		o.splog.Info(output.ColorCyan(res.Message))
	} else {
		o.splog.Info(output.ColorCyan(name))
	}

	o.registry.SetOption(actions.OptionFailedActions, failed)

	start := o.now()
	out, err := o.registry.Invoke(ctx, name)
	res.Duration = o.now().Sub(start)
	res.Outcome = out

	switch {
	case err != nil:
		res.Status = history.StatusFailed
		res.Err = err
		o.splog.Error("%s failed: %v", name, err)
	case out.Skipped:
		res.Status = history.StatusSkipped
		o.splog.Info(output.ColorYellow("Skipped, no watched files changed"))
	default:
		res.Status = history.StatusRan
		if text := out.String(); text != "" {
			if !strings.HasSuffix(text, "\n") {
				text += "\n"
			}
			o.splog.Page(text)
		}
	}
	o.splog.Debug("%s finished in %s", name, res.Duration.Round(time.Millisecond))
	o.splog.Newline()

	return res
}

func (o *Orchestrator) printSummary(report *Report) {
	ran := report.Count(history.StatusRan)
	skipped := report.Count(history.StatusSkipped)
	failed := report.Count(history.StatusFailed)

	summary := fmt.Sprintf("%s: %d ran, %d skipped, %d failed", report.Preset, ran, skipped, failed)
	if failed > 0 {
		o.splog.Error("%s (%s)", summary, strings.Join(report.Failed(), ", "))
		return
	}
	o.splog.Info(output.ColorGreen(summary))
}
