// Package common provides shared helper functions for CLI commands.
package common

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"deployit.dev/deployit/internal/runtime"
)

// GlobalOptions are the persistent flags of the root command
type GlobalOptions struct {
	Dir        string
	ConfigPath string
	Quiet      bool
}

// RuntimeOptions converts the global flags into runtime options for cmd.
// Console output goes to the command's writer when one was set (tests).
func (g *GlobalOptions) RuntimeOptions(cmd *cobra.Command) runtime.Options {
	opts := runtime.Options{
		Dir:        g.Dir,
		ConfigPath: g.ConfigPath,
		Quiet:      g.Quiet,
	}
	if w := cmd.OutOrStdout(); w != io.Writer(os.Stdout) {
		opts.Out = w
	}
	return opts
}

// Run is a helper that provides a runtime context to a command's execution
// function and closes it afterwards
func Run(cmd *cobra.Command, opts runtime.Options, fn func(ctx *runtime.Context) error) error {
	ctx, err := runtime.GetContext(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer func() {
		_ = ctx.Close()
	}()
	return fn(ctx)
}
