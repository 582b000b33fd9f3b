// Package main provides the entry point for the password-alert CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for password-alert.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password-alert",
		Short: "Detect corporate password reuse on untrusted pages",
		Long: `password-alert detects when a corporate password is typed into a page
that is not the corporate sign-in page. It keeps salted, truncated
fingerprints of confirmed passwords, never the passwords themselves,
and checks typed input against them as pages report keystrokes.

Run "password-alert serve" to start the detection daemon. In-page
scripts connect to it over a local websocket and report what is typed;
the daemon answers with match results and pushes watched-length state.

In enterprise mode (configured via the policy file or flags), matches
are also reported to the fleet's alert backend.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewStatusCmd())
	cmd.AddCommand(NewInitCmd())
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
