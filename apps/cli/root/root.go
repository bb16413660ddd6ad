package root

import (
	"github.com/spf13/cobra"
)

// rootCmd is the base command for the Pencilbook admin CLI. Subcommands
// (bootstrap, tenant, sweep) are attached here.
var rootCmd = &cobra.Command{
	Use:           "pencilbook",
	Short:         "Pencilbook admin CLI",
	Long:          "Administrative utilities for Pencilbook (schema bootstrap, tenant management, hold sweeps).",
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

// Root returns the mutable root command for wiring from subpackages.
func Root() *cobra.Command {
	return rootCmd
}
