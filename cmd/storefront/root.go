package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for the storefront CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "storefront",
		Short: "Storefront e-commerce API",
		Long: `Storefront serves the product catalog, product image uploads and
email/password authentication. Configuration is read from the environment
and an optional .env file.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
