package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"deployit.dev/deployit/internal/cli/common"
	"deployit.dev/deployit/internal/history"
	"deployit.dev/deployit/internal/output"
	"deployit.dev/deployit/internal/runtime"
)

// newHistoryCmd creates the history command
func newHistoryCmd(global *common.GlobalOptions) *cobra.Command {
	var (
		limit int
		prune int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent release and build runs",
		Long: `Show recent release and build runs recorded in the history database.

Examples:
  deployit history
  deployit history --limit 3
  deployit history show 12
  deployit history --prune 50`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHistory(cmd, global, func(ctx *runtime.Context) error {
				if cmd.Flags().Changed("prune") {
					removed, err := ctx.History.Prune(cmd.Context(), prune)
					if err != nil {
						return err
					}
					ctx.Splog.Info("Removed %d old runs.", removed)
					return nil
				}

				runs, err := ctx.History.Recent(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					ctx.Splog.Info("No runs recorded yet.")
					return nil
				}
				for i := range runs {
					ctx.Splog.Info(runSummary(&runs[i]))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 10, "Number of runs to show")
	cmd.Flags().IntVar(&prune, "prune", 0, "Delete all but the newest N runs")

	cmd.AddCommand(newHistoryShowCmd(global))

	return cmd
}

// newHistoryShowCmd creates the history show command
func newHistoryShowCmd(global *common.GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "show <id>",
		Short:        "Show the actions of one run",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid run id %q", args[0])
			}

			return withHistory(cmd, global, func(ctx *runtime.Context) error {
				run, err := ctx.History.Get(cmd.Context(), id)
				if err != nil {
					return err
				}

				ctx.Splog.Info(runSummary(run))
				for _, action := range run.Actions {
					ctx.Splog.Info("  %s %s %s", statusMark(action.Status), action.Name, output.ColorDim(action.Duration.Round(time.Millisecond).String()))
					if action.Error != "" {
						ctx.Splog.Info("    %s", output.ColorRed(action.Error))
					}
				}
				return nil
			})
		},
	}
}

func withHistory(cmd *cobra.Command, global *common.GlobalOptions, fn func(ctx *runtime.Context) error) error {
	return common.Run(cmd, global.RuntimeOptions(cmd), func(ctx *runtime.Context) error {
		if ctx.History == nil {
			return fmt.Errorf("run history is disabled or unavailable")
		}
		return fn(ctx)
	})
}

func runSummary(run *history.Run) string {
	status := output.ColorGreen("ok")
	if !run.Succeeded() {
		status = output.ColorRed("failed")
	}
	mode := ""
	if run.DryRun {
		mode = output.ColorDim(" (dry run)")
	}
	return fmt.Sprintf("#%d %s %s %s..%s %s: %d ran, %d skipped, %d failed%s",
		run.ID,
		run.StartedAt.Local().Format("2006-01-02 15:04:05"),
		output.Bold(run.Preset),
		shortHash(run.Baseline),
		shortHash(run.Head),
		status,
		run.Count(history.StatusRan),
		run.Count(history.StatusSkipped),
		run.Count(history.StatusFailed),
		mode,
	)
}

func statusMark(status history.Status) string {
	switch status {
	case history.StatusFailed:
		return output.ColorRed("✗")
	case history.StatusSkipped:
		return output.ColorYellow("-")
	default:
		return output.ColorGreen("✓")
	}
}

func shortHash(hash string) string {
	if hash == "" {
		return "?"
	}
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}
