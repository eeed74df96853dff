package cli

import (
	"github.com/spf13/cobra"

	"deployit.dev/deployit/internal/cli/common"
	"deployit.dev/deployit/internal/output"
)

// NewRootCmd creates the root cobra command
func NewRootCmd(version, commit, date string) *cobra.Command {
	global := &common.GlobalOptions{}

	rootCmd := &cobra.Command{
		Use:   "deployit",
		Short: "Deployit runs the release and build steps of a web application checkout",
		Long: `Deployit runs the release and build steps of a web application checkout.

A release puts the application into maintenance mode, resets and pulls the
working copy, runs migrations, reinstalls dependencies only when their
manifests changed since the previous HEAD, and brings the application back up.`,
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			output.ConfigureColors()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&global.Dir, "dir", "C", "", "Run as if started in this directory")
	rootCmd.PersistentFlags().StringVar(&global.ConfigPath, "config", "", "Path to the config file (default: <repo>/.deployit.yml)")
	rootCmd.PersistentFlags().BoolVarP(&global.Quiet, "quiet", "q", false, "Only write to the log file")

	// Add subcommands
	rootCmd.AddCommand(newPresetCmd(global, "release"))
	rootCmd.AddCommand(newPresetCmd(global, "build"))
	rootCmd.AddCommand(newActionsCmd(global))
	rootCmd.AddCommand(newChangesCmd(global))
	rootCmd.AddCommand(newHistoryCmd(global))
	rootCmd.AddCommand(newConfigCmd(global))
	rootCmd.AddCommand(newVersionCmd(version, commit, date))

	return rootCmd
}
