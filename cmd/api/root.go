package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for the API binary.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "magiclink",
		Short:         "Passwordless magic-link authentication API",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewPurgeCodesCmd())

	return cmd
}
