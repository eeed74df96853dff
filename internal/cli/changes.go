package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"deployit.dev/deployit/internal/cli/common"
	"deployit.dev/deployit/internal/git"
	"deployit.dev/deployit/internal/output"
	"deployit.dev/deployit/internal/runtime"
)

// newChangesCmd creates the changes command
func newChangesCmd(global *common.GlobalOptions) *cobra.Command {
	var (
		baseline     string
		sinceMessage string
	)

	cmd := &cobra.Command{
		Use:   "changes",
		Short: "Show the files changed between a baseline and HEAD",
		Long: `Show the files changed between a baseline and HEAD, as the watch rules
see them.

Examples:
  deployit changes --baseline HEAD~3
  deployit changes --since-message "Release 2.4"`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if baseline == "" && sinceMessage == "" {
				return fmt.Errorf("one of --baseline or --since-message is required")
			}

			runOpts := global.RuntimeOptions(cmd)
			runOpts.SkipHistory = true

			return common.Run(cmd, runOpts, func(ctx *runtime.Context) error {
				if sinceMessage != "" {
					commit, err := ctx.Git.FindCommit(cmd.Context(), sinceMessage, ctx.Config.LogDepth)
					if err != nil {
						return err
					}
					baseline = commit.Hash
				}
				ctx.Tracker.SetBaseline(baseline)

				entries, err := ctx.Tracker.Entries(cmd.Context())
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					ctx.Splog.Info("No changes since %s.", baseline)
					return nil
				}

				for _, entry := range entries {
					ctx.Splog.Info("%s %s", statusLabel(entry.Status), entry.Path)
				}

				dirs, err := ctx.Tracker.TouchedDirectories(cmd.Context())
				if err != nil {
					return err
				}
				if len(dirs) > 0 {
					ctx.Splog.Newline()
					ctx.Splog.Info(output.ColorDim("Touched directories:"))
					for _, dir := range dirs {
						ctx.Splog.Info("  %s", dir)
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&baseline, "baseline", "", "Revision to compare HEAD against")
	cmd.Flags().StringVar(&sinceMessage, "since-message", "", "Compare against the newest recent commit whose message contains this text")
	cmd.MarkFlagsMutuallyExclusive("baseline", "since-message")

	return cmd
}

func statusLabel(status git.Status) string {
	switch status {
	case git.StatusAdded:
		return output.ColorGreen("A")
	case git.StatusDeleted:
		return output.ColorRed("D")
	default:
		return output.ColorYellow("M")
	}
}
