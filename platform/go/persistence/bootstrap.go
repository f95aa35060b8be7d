package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	sqlassets "github.com/photohub/photohub-saas/database"
)

// ApplySchema applies the embedded DDL in file order inside a single transaction.
// Every statement is idempotent, so the helper is safe to run on every deploy,
// from the CLI and from tests.
func ApplySchema(ctx context.Context, db *TenantDB) error {
	if db == nil {
		return fmt.Errorf("apply schema: db is required")
	}

	files, err := sqlassets.SchemaFiles()
	if err != nil {
		return fmt.Errorf("list schema files: %w", err)
	}

	var statements []string
	for _, name := range files {
		contents, err := sqlassets.ReadSchema(name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		statements = append(statements, splitStatements(contents)...)
	}

	return db.WithAdmin(ctx, func(tx pgx.Tx) error {
		// Serialize concurrent migrators (several api replicas starting at once).
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('photohub.schema'))`); err != nil {
			return fmt.Errorf("lock schema: %w", err)
		}
		for _, stmt := range statements {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply ddl: %w", err)
			}
		}
		return nil
	})
}

func splitStatements(sql string) []string {
	raw := strings.Split(sql, ";")
	statements := make([]string, 0, len(raw))
	for _, part := range raw {
		stmt := strings.TrimSpace(part)
		if stmt == "" {
			continue
		}
		statements = append(statements, stmt)
	}
	return statements
}
