package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"deployit.dev/deployit/internal/cli/common"
	"deployit.dev/deployit/internal/output"
	"deployit.dev/deployit/internal/release"
	"deployit.dev/deployit/internal/runtime"
)

// newActionsCmd creates the actions command
func newActionsCmd(global *common.GlobalOptions) *cobra.Command {
	var preset string

	cmd := &cobra.Command{
		Use:   "actions",
		Short: "List the actions of a preset in run order",
		Long: `List the actions of a preset in run order, including steps from the
config file, with their messages and watch rules.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runOpts := global.RuntimeOptions(cmd)
			runOpts.SkipHistory = true

			return common.Run(cmd, runOpts, func(ctx *runtime.Context) error {
				registry, err := release.Build(preset, release.Deps{
					Config:   ctx.Config,
					Runner:   ctx.Runner,
					Git:      ctx.Git,
					Tracker:  ctx.Tracker,
					Deployer: ctx.Deployer,
				})
				if err != nil {
					return err
				}

				for i, name := range registry.List() {
					line := fmt.Sprintf("%2d. %s", i+1, output.Bold(name))
					if msg := registry.Message(name); msg != "" {
						line += "  " + output.ColorDim(msg)
					}
					ctx.Splog.Info(line)
					if patterns, ok := registry.WatchRule(name); ok {
						ctx.Splog.Info("    watches: %s", strings.Join(patterns, ", "))
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&preset, "preset", "p", release.PresetRelease, fmt.Sprintf("Preset to list (%s)", strings.Join(release.Presets(), ", ")))

	return cmd
}
