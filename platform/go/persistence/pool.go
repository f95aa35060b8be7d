package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolConfig holds the connection settings shared by the api server, the CLI and tests.
type PoolConfig struct {
	ConnString      string        // postgres:// URL or key=value DSN
	MaxConns        int32         // 0 keeps the pgx default
	MinConns        int32         // warm connections kept open
	MaxConnLifetime time.Duration // 0 keeps the pgx default
	MaxConnIdleTime time.Duration // 0 keeps the pgx default
	ApplicationName string        // shown in pg_stat_activity next to the tenant tag

	// ConnectAttempts is how many pings NewPool tries before giving up; 0 means one.
	ConnectAttempts int
	// RetryDelay separates connect attempts; it doubles after each failure.
	RetryDelay time.Duration
}

// NewPool builds the pgx pool and waits until Postgres answers a ping.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	if cfg.ConnString == "" {
		return nil, fmt.Errorf("conn string is required")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnString)
	if err != nil {
		return nil, fmt.Errorf("parse pgx pool config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.ApplicationName != "" {
		poolConfig.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	if err := pingWithRetry(ctx, pool, max(cfg.ConnectAttempts, 1), cfg.RetryDelay); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func pingWithRetry(ctx context.Context, pool *pgxpool.Pool, attempts int, delay time.Duration) error {
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = pool.Ping(ctx); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("ping postgres: %w", ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}
	return fmt.Errorf("ping postgres after %d attempt(s): %w", attempts, err)
}

// Readiness returns a check for /readyz that pings the pool within timeout.
func Readiness(pool *pgxpool.Pool, timeout time.Duration) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if pool == nil {
			return errors.New("postgres pool is not initialised")
		}
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		return pool.Ping(ctx)
	}
}

// ClosePool shuts down the pool gracefully; safe to call with nil.
func ClosePool(pool *pgxpool.Pool) {
	if pool != nil {
		pool.Close()
	}
}
