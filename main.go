package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.olrik.dev/wrapperctl/cmd"
	"go.olrik.dev/wrapperctl/internal/supervisor"
)

func main() {
	// If started as a detached relay, inject "relay-run" argument
	if os.Getenv(supervisor.EnvRelayLog) != "" {
		os.Args = []string{os.Args[0], "relay-run"}
	}

	root := cmd.NewRootCommand()
	if err := root.ExecuteContext(context.Background()); err != nil {
		var exitErr *cmd.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
