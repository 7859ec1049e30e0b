package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"go.olrik.dev/wrapperctl/internal/console"
	"go.olrik.dev/wrapperctl/internal/core"
	"go.olrik.dev/wrapperctl/internal/instance"
)

func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Shows the running wrapper instances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			con := newConsole()

			instances, running := newController(core.Config).Status(cmd.Context())
			if !running {
				con.NotRunning()
				return nil
			}

			con.Running(statusEntries(instances))
			return nil
		},
	}
}

func statusEntries(instances []instance.Instance) []console.StatusEntry {
	entries := make([]console.StatusEntry, 0, len(instances))
	for _, inst := range instances {
		entries = append(entries, console.StatusEntry{
			PID:     inst.PID,
			Started: formatStarted(inst.StartTime),
		})
	}
	return entries
}

func formatStarted(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Local().Format(time.DateTime)
}
