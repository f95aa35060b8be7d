package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// newIntegrationDB starts a disposable Postgres, applies the embedded schema and returns a TenantDB.
func newIntegrationDB(t *testing.T) *TenantDB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("photohub"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("5432/tcp").WithStartupTimeout(2*time.Minute)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pgContainer.Terminate(context.Background())
	})

	connString, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := NewPool(ctx, PoolConfig{ConnString: connString, MaxConns: 8, ApplicationName: "photohub-test"})
	require.NoError(t, err)
	t.Cleanup(func() { ClosePool(pool) })

	db := NewTenantDB(TenantDBConfig{Pool: pool, StatementTimeout: 5 * time.Second})
	require.NoError(t, ApplySchema(ctx, db))
	// Applying twice must be a no-op.
	require.NoError(t, ApplySchema(ctx, db))

	return db
}

func mustPhotographer(t *testing.T, store *PhotographerStore, email string) Photographer {
	t.Helper()
	p, err := store.CreatePhotographer(context.Background(), CreatePhotographerParams{
		ID:        uuid.New(),
		Email:     email,
		FirstName: "Test",
		LastName:  "Photographer",
	})
	require.NoError(t, err)
	return p
}

func ptr[T any](v T) *T { return &v }
