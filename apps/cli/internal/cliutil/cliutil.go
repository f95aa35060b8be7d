// Package cliutil holds wiring shared by the CLI commands.
package cliutil

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	platformlogging "github.com/photohub/photohub-saas/platform/go/logging"
	"github.com/photohub/photohub-saas/platform/go/persistence"
)

// DatabaseURLFlag registers --database-url defaulting to $DATABASE_URL.
func DatabaseURLFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVar(target, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string (defaults to $DATABASE_URL)")
}

// OpenDB connects to PostgreSQL and returns the tenant-aware handle with its closer.
func OpenDB(ctx context.Context, databaseURL string) (*persistence.TenantDB, func(), error) {
	if databaseURL == "" {
		return nil, nil, fmt.Errorf("database url is required (--database-url or DATABASE_URL)")
	}
	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{
		ConnString:      databaseURL,
		MaxConns:        4,
		ApplicationName: "photohub-cli",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init pool: %w", err)
	}
	db := persistence.NewTenantDB(persistence.TenantDBConfig{Pool: pool})
	return db, func() { persistence.ClosePool(pool) }, nil
}

// Logger builds the CLI logger writing to stderr so stdout stays machine readable.
func Logger(verbose bool) *zap.Logger {
	level := "warn"
	if verbose {
		level = "debug"
	}
	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "cli",
		Level:     level,
		Format:    platformlogging.FormatConsole,
		Output:    os.Stderr,
	})
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
