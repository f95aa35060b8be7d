// Package db groups schema maintenance commands.
package db

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/photohub/photohub-saas/apps/cli/internal/cliutil"
	"github.com/photohub/photohub-saas/platform/go/persistence"
)

func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database maintenance",
	}
	cmd.AddCommand(migrateCommand())
	return cmd
}

func migrateCommand() *cobra.Command {
	var databaseURL string

	c := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update tables, indexes and row-level security policies",
		Long:  "Apply the embedded schema. Statements are idempotent, so running it twice is safe.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			tenantDB, closeDB, err := cliutil.OpenDB(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer closeDB()

			if err := persistence.ApplySchema(ctx, tenantDB); err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema applied.")
			return nil
		},
	}
	cliutil.DatabaseURLFlag(c, &databaseURL)
	return c
}
