package cmd

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.olrik.dev/wrapperctl/internal/console"
	"go.olrik.dev/wrapperctl/internal/core"
	"go.olrik.dev/wrapperctl/internal/instance"
)

// ExitError tells main to exit with Code without printing anything; the
// command has already reported the problem to the operator.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return "exit status " + strconv.Itoa(e.Code)
}

func NewRootCommand() *cobra.Command {
	var verbose int

	rootCmd := &cobra.Command{
		Use:   "wrapperctl",
		Short: "wrapperctl - login relay and supervisor for the wrapper service",
		Long: `wrapperctl starts the wrapper service, relays its Apple ID login and
two-factor prompts, and moves the authenticated service to the background.

Run without arguments to start a new instance. Use 'status' to list running
instances and 'logout' to terminate them.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := core.InitializeConfig(); err != nil {
				return err
			}
			if cmd.Flags().Changed("verbose") {
				core.Config.Verbose = verbose
			}
			core.SetupLogging(os.Stderr, core.Config.Verbose)
			return nil
		},
		RunE: runStart,
	}
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "more output, repeat for even more")

	// Only start, status and logout are accepted
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})

	rootCmd.AddCommand(
		NewStatusCommand(),
		NewLogoutCommand(),
		NewRelayRunCommand(),
	)

	return rootCmd
}

func newConsole() *console.Console {
	return console.NewStdio(core.Config.ControllerName)
}

func newController(cfg *core.Configuration) *instance.Controller {
	enumerator := instance.NewEnumerator(cfg.Signature(), cfg.ControllerName)
	return instance.NewController(enumerator, cfg.Timing.GracePeriod, cfg.CleanupPattern())
}
