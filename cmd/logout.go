package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"
	"go.olrik.dev/wrapperctl/internal/console"
	"go.olrik.dev/wrapperctl/internal/core"
	"go.olrik.dev/wrapperctl/internal/instance"
)

func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Terminates all running wrapper instances",
		Long: `Terminates all running wrapper instances.

Each instance gets SIGTERM and a short grace period before SIGKILL. Instances
owned by another user are reported; run the command with sudo to stop them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			con := newConsole()
			report := newController(core.Config).Logout(cmd.Context())
			printLogoutReport(con, report)
			return nil
		},
	}
}

func printLogoutReport(con *console.Console, report instance.LogoutReport) {
	if report.Found == 0 {
		con.NoInstances()
		return
	}

	con.Terminating()
	for _, t := range report.Terminations {
		switch t.Result {
		case instance.ResultDead:
			con.Terminated(t.PID)
		case instance.ResultPermissionDenied:
			con.PermissionDenied(t.PID)
		case instance.ResultFailed:
			con.TerminateFailed(t.PID, t.Err)
		default:
			slog.Debug("Instance was already gone", "pid", t.PID)
		}
	}

	if report.PermissionDenied > 0 {
		con.ElevationHint()
	}
	con.LogoutSummary(report.Killed)
}
