package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"deployit.dev/deployit/internal/cli/common"
	"deployit.dev/deployit/internal/config"
	"deployit.dev/deployit/internal/runtime"
)

// newConfigCmd creates the config command
func newConfigCmd(global *common.GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: fmt.Sprintf(`Print the effective configuration as YAML: the defaults merged with
%s at the repository root, or the file given with --config.`, config.FileName),
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runOpts := global.RuntimeOptions(cmd)
			runOpts.SkipHistory = true

			return common.Run(cmd, runOpts, func(ctx *runtime.Context) error {
				data, err := yaml.Marshal(ctx.Config)
				if err != nil {
					return fmt.Errorf("failed to encode config: %w", err)
				}
				ctx.Splog.Page(string(data))
				return nil
			})
		},
	}
}
