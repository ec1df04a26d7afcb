// Package commands implements the kratos-gateway command line.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCommand creates the kratos-gateway root command with all subcommands.
func NewRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "kratos-gateway",
		Short: "Resilient gateway in front of the Ory Kratos APIs",
		Long: `Reverse proxy for the Kratos admin and public APIs.

Requests are forwarded through a client with per-attempt timeouts and
exponential backoff with jitter. Failures are returned as JSON errors.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		NewServeCommand(),
		NewProbeCommand(),
		NewVersionCommand(version),
	)
	return rootCmd
}
