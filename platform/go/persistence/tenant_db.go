package persistence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/photohub/photohub-saas/platform/go/tenant"
)

// ErrScopeRequired is returned when a tenant-bound operation runs without an identity.
var ErrScopeRequired = errors.New("tenant scope is required")

type txBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// TenantDB runs every logical operation inside exactly one transaction.
type TenantDB struct {
	pool             txBeginner
	statementTimeout time.Duration
}

type TenantDBConfig struct {
	Pool *pgxpool.Pool
	// StatementTimeout bounds each statement in the transaction; zero keeps the server default.
	StatementTimeout time.Duration
}

func NewTenantDB(cfg TenantDBConfig) *TenantDB {
	if cfg.Pool == nil {
		panic("TenantDB requires pool")
	}
	return &TenantDB{pool: cfg.Pool, statementTimeout: cfg.StatementTimeout}
}

// WithAdmin executes fn inside a read-write transaction that is not bound to a tenant.
// Used for account management and schema migrations.
func (db *TenantDB) WithAdmin(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return db.run(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, nil, fn)
}

// WithTenant executes fn inside a read-committed transaction tagged with the tenant scope.
func (db *TenantDB) WithTenant(ctx context.Context, scope tenant.Scope, fn func(tx pgx.Tx) error) error {
	if !scope.Valid() {
		return ErrScopeRequired
	}
	return db.run(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, &scope, fn)
}

// ReadTenant executes fn inside a read-only repeatable-read transaction so multi-statement
// reads observe one consistent snapshot.
func (db *TenantDB) ReadTenant(ctx context.Context, scope tenant.Scope, fn func(tx pgx.Tx) error) error {
	if !scope.Valid() {
		return ErrScopeRequired
	}
	return db.run(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, &scope, fn)
}

func (db *TenantDB) run(ctx context.Context, opts pgx.TxOptions, scope *tenant.Scope, fn func(tx pgx.Tx) error) error {
	tx, err := db.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if db.statementTimeout > 0 {
		ms := strconv.FormatInt(db.statementTimeout.Milliseconds(), 10)
		if _, err := tx.Exec(ctx, `SELECT set_config('statement_timeout', $1, true)`, ms); err != nil {
			return fmt.Errorf("set statement_timeout: %w", err)
		}
	}

	if scope != nil {
		if _, err := tx.Exec(ctx, `SELECT set_config('application_name', $1, true)`, applicationName(*scope)); err != nil {
			return fmt.Errorf("tag tenant: %w", err)
		}
	}

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// applicationName shows up in pg_stat_activity so slow queries can be traced to a tenant.
func applicationName(scope tenant.Scope) string {
	if scope.Privileged {
		return "photohub:admin:" + tenant.ShortID(scope.TenantID)
	}
	return "photohub:" + tenant.ShortID(scope.TenantID)
}
