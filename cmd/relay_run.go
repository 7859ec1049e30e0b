package cmd

import (
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.olrik.dev/wrapperctl/internal/supervisor"
)

// NewRelayRunCommand is the detached half of a handoff. main selects it when
// the relay environment is present; it is never typed by the operator.
func NewRelayRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:    "relay-run",
		Short:  "Drain a detached wrapper's output into its log file",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logPath, pid, ok := supervisor.RelayEnv()
			if !ok {
				return errors.New("relay-run is started by wrapperctl itself")
			}

			// The operator's terminal may be long gone
			signal.Ignore(syscall.SIGHUP, syscall.SIGPIPE)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
			defer stop()

			_, err := supervisor.RunRelay(ctx, supervisor.RelayConfig{
				LogPath: logPath,
				PID:     pid,
				Input:   supervisor.InheritedOutput(),
			})
			return err
		},
	}
}
