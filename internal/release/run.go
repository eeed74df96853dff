package release

import (
	"context"
	"fmt"
	"strings"

	deployerrors "deployit.dev/deployit/internal/errors"
	"deployit.dev/deployit/internal/output"
	"deployit.dev/deployit/internal/pipeline"
	"deployit.dev/deployit/internal/runtime"
)

// RunOptions contains the options for a preset run
type RunOptions struct {
	Preset string
	// Force names actions whose watch rule is ignored
	Force []string
	// Baseline is a revision to diff against instead of HEAD before pull
	Baseline string
	// SinceMessage picks the newest commit whose message contains it as the baseline
	SinceMessage string
	Only         []string
	Skip         []string
	// Confirm asks before a release; nil runs without asking
	Confirm output.Confirmer
}

// RunAction builds the preset registry for ctx and runs it through the orchestrator
func RunAction(ctx context.Context, rctx *runtime.Context, opts RunOptions) (*pipeline.Report, error) {
	splog := rctx.Splog
	cfg := rctx.Config

	if opts.Baseline != "" && opts.SinceMessage != "" {
		return nil, fmt.Errorf("--baseline and --since-message cannot be used together")
	}

	if opts.Baseline != "" {
		rctx.Tracker.SetBaseline(opts.Baseline)
	}
	if opts.SinceMessage != "" {
		commit, err := rctx.Git.FindCommit(ctx, opts.SinceMessage, cfg.LogDepth)
		if err != nil {
			return nil, err
		}
		splog.Info("Using %s (%s) as the baseline", output.Bold(commit.ShortHash()), commit.Subject())
		rctx.Tracker.SetBaseline(commit.Hash)
	}

	registry, err := Build(opts.Preset, Deps{
		Config:   cfg,
		Runner:   rctx.Runner,
		Git:      rctx.Git,
		Tracker:  rctx.Tracker,
		Deployer: rctx.Deployer,
	})
	if err != nil {
		return nil, err
	}

	for _, name := range opts.Force {
		if !registry.Has(name) {
			return nil, deployerrors.NewUnknownActionError(name)
		}
	}
	registry.Force(opts.Force...)

	if opts.Confirm != nil {
		question := fmt.Sprintf("Run %s on %s from %s/%s?", opts.Preset, rctx.RepoRoot, cfg.Remote, cfg.Branch)
		ok, err := opts.Confirm(question, false)
		if err != nil {
			return nil, fmt.Errorf("confirmation failed: %w", err)
		}
		if !ok {
			splog.Info("Aborted.")
			return nil, nil
		}
	}

	if rctx.DryRun {
		splog.Tip("Dry run: commands are printed instead of executed")
	}

	var pipelineOpts []pipeline.Option
	if rctx.History != nil {
		pipelineOpts = append(pipelineOpts, pipeline.WithRecorder(rctx.History))
	}
	orch := pipeline.New(registry, rctx.Tracker, splog, pipelineOpts...)

	report, err := orch.Run(ctx, opts.Preset, pipeline.Options{
		Only:   opts.Only,
		Skip:   opts.Skip,
		DryRun: rctx.DryRun,
	})
	if err != nil {
		return report, err
	}
	if !report.Succeeded() {
		return report, fmt.Errorf("%s finished with failures: %s", opts.Preset, strings.Join(report.Failed(), ", "))
	}
	return report, nil
}
