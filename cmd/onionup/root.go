package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for onionup.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "onionup",
		Short: "Bring a Tor v3 hidden service online",
		Long: `onionup publishes a local TCP port as a Tor v3 hidden service.

It prepares the tor environment (torrc, data directory, cookie
authentication), starts or adopts a tor daemon, waits for bootstrap,
and publishes the service through the control port. The service stays
up until the process is interrupted.

Use --simulate to run the full lifecycle without a tor daemon and get
a deterministic address for testing.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewUpCmd())
	cmd.AddCommand(NewCheckCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its
// parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}
