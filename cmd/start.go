package cmd

import (
	"github.com/spf13/cobra"
	"go.olrik.dev/wrapperctl/internal/core"
	"go.olrik.dev/wrapperctl/internal/launcher"
)

// runStart is the root command: launch a new instance unless one is running
func runStart(cmd *cobra.Command, args []string) error {
	cfg := core.Config
	con := newConsole()
	ctx := cmd.Context()

	if newController(cfg).IsRunning(ctx) {
		con.AlreadyRunning()
		return &ExitError{Code: 1}
	}

	err := launcher.New(cfg, con).Run(ctx)
	switch {
	case err == nil:
		return nil
	case launcher.IsReported(err):
		return &ExitError{Code: 1}
	case launcher.IsEnvironmentError(err):
		con.Error(err)
		return &ExitError{Code: 1}
	default:
		return err
	}
}
