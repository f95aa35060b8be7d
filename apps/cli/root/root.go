package root

import (
	"github.com/spf13/cobra"
)

// rootCmd is the base command for the PhotoHub operator CLI. Subcommands are attached in wire.go.
var rootCmd = &cobra.Command{
	Use:           "photohub",
	Short:         "PhotoHub operator CLI",
	Long:          "Operator utilities for PhotoHub (dev tokens, schema migration, fixture seeding, calendar export).",
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
