package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"deployit.dev/deployit/internal/cli/common"
	"deployit.dev/deployit/internal/output"
	"deployit.dev/deployit/internal/release"
	"deployit.dev/deployit/internal/runtime"
)

// confirm is replaced in tests
var confirm output.Confirmer = output.SurveyConfirm

// newPresetCmd creates the release and build commands
func newPresetCmd(global *common.GlobalOptions, preset string) *cobra.Command {
	var (
		opts           release.RunOptions
		composerUpdate bool
		npmInstall     bool
		dryRun         bool
		yes            bool
	)

	short := "Release the latest commit of the configured branch"
	long := `Release the latest commit of the configured branch.

Runs, in order: down, record_baseline, git_clean, git_reset, git_checkout,
git_pull, migrations, composer_update, npm_install, up, and github_deployment
when GitHub deployments are configured. composer_update and npm_install run
only when their watched files changed between the baseline and the new HEAD.

Asks for confirmation on a terminal unless --yes or --dry-run is given.`
	if preset == release.PresetBuild {
		short = "Pull and rebuild dependencies and assets"
		long = `Pull and rebuild dependencies and assets without maintenance mode.

Runs, in order: record_baseline, git_pull, composer_update, npm_install,
npm_build.`
	}

	cmd := &cobra.Command{
		Use:          preset,
		Short:        short,
		Long:         long,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.Preset = preset
			if composerUpdate {
				opts.Force = append(opts.Force, release.ActionComposerUpdate)
			}
			if npmInstall {
				opts.Force = append(opts.Force, release.ActionNPMInstall)
			}
			if preset == release.PresetRelease && !yes && !dryRun && output.IsTTY() {
				opts.Confirm = confirm
			}

			runOpts := global.RuntimeOptions(cmd)
			runOpts.DryRun = dryRun

			return common.Run(cmd, runOpts, func(ctx *runtime.Context) error {
				_, err := release.RunAction(cmd.Context(), ctx, opts)
				return err
			})
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Force, "force", "f", nil, "Run this watched action even if its files did not change (repeatable)")
	cmd.Flags().BoolVar(&composerUpdate, "composer-update", false, fmt.Sprintf("Same as --force %s", release.ActionComposerUpdate))
	cmd.Flags().BoolVar(&npmInstall, "npm-install", false, fmt.Sprintf("Same as --force %s", release.ActionNPMInstall))
	cmd.Flags().StringVar(&opts.Baseline, "baseline", "", "Diff against this revision instead of HEAD before pull")
	cmd.Flags().StringVar(&opts.SinceMessage, "since-message", "", "Use the newest recent commit whose message contains this text as the baseline")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Print commands instead of running them")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	cmd.Flags().StringArrayVar(&opts.Only, "only", nil, "Run only this action (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Skip, "skip", nil, "Leave this action out (repeatable)")
	cmd.MarkFlagsMutuallyExclusive("baseline", "since-message")

	return cmd
}
