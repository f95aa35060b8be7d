package persistence

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/photohub/photohub-saas/platform/go/tenant"
)

// fakeTx satisfies pgx.Tx and records Exec statements invoked.
type fakeTx struct {
	stmts      []string
	args       [][]any
	committed  bool
	rolledBack bool
}

func (f *fakeTx) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeTx) Commit(ctx context.Context) error   { f.committed = true; return nil }
func (f *fakeTx) Rollback(ctx context.Context) error { f.rolledBack = true; return nil }
func (f *fakeTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, errors.New("not implemented")
}
func (f *fakeTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (f *fakeTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (f *fakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return &pgconn.StatementDescription{}, errors.New("not implemented")
}
func (f *fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeTx) QueryRow(context.Context, string, ...any) pgx.Row { return nil }
func (f *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.stmts = append(f.stmts, sql)
	f.args = append(f.args, args)
	return pgconn.CommandTag{}, nil
}
func (f *fakeTx) Conn() *pgx.Conn { return nil }

// fakePool returns a preconstructed transaction and records the options used.
type fakePool struct {
	tx   *fakeTx
	opts pgx.TxOptions
}

func (p *fakePool) BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error) {
	p.opts = txOptions
	return p.tx, nil
}

func TestTenantDBWithAdminRunsWithoutTenantTag(t *testing.T) {
	ftx := &fakeTx{}
	db := &TenantDB{pool: &fakePool{tx: ftx}}

	err := db.WithAdmin(context.Background(), func(tx pgx.Tx) error { return nil })
	require.NoError(t, err)
	require.Empty(t, ftx.stmts)
	require.True(t, ftx.committed)
}

func TestTenantDBWithTenantTagsTransaction(t *testing.T) {
	ftx := &fakeTx{}
	pool := &fakePool{tx: ftx}
	db := &TenantDB{pool: pool, statementTimeout: 2 * time.Second}
	scope := tenant.For(uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e"))

	err := db.WithTenant(context.Background(), scope, func(tx pgx.Tx) error { return nil })
	require.NoError(t, err)
	require.Equal(t, pgx.ReadCommitted, pool.opts.IsoLevel)
	require.Len(t, ftx.stmts, 2)
	require.Contains(t, strings.ToLower(ftx.stmts[0]), "statement_timeout")
	require.Equal(t, []any{"2000"}, ftx.args[0])
	require.Contains(t, ftx.stmts[1], "application_name")
	require.Equal(t, []any{"photohub:0f8fad5b"}, ftx.args[1])
	require.True(t, ftx.committed)
}

func TestTenantDBReadTenantIsReadOnlySnapshot(t *testing.T) {
	pool := &fakePool{tx: &fakeTx{}}
	db := &TenantDB{pool: pool}

	err := db.ReadTenant(context.Background(), tenant.Admin(uuid.New()), func(tx pgx.Tx) error { return nil })
	require.NoError(t, err)
	require.Equal(t, pgx.RepeatableRead, pool.opts.IsoLevel)
	require.Equal(t, pgx.ReadOnly, pool.opts.AccessMode)
}

func TestTenantDBWithTenantMissingScope(t *testing.T) {
	db := &TenantDB{pool: &fakePool{tx: &fakeTx{}}}
	err := db.WithTenant(context.Background(), tenant.Scope{}, func(tx pgx.Tx) error { return nil })
	require.ErrorIs(t, err, ErrScopeRequired)
}

func TestTenantDBRollsBackOnError(t *testing.T) {
	ftx := &fakeTx{}
	db := &TenantDB{pool: &fakePool{tx: ftx}}
	boom := errors.New("boom")

	err := db.WithTenant(context.Background(), tenant.For(uuid.New()), func(tx pgx.Tx) error { return boom })
	require.ErrorIs(t, err, boom)
	require.False(t, ftx.committed)
	require.True(t, ftx.rolledBack)
}
