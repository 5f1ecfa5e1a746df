// Package pgrls owns the direct Postgres connection pool and the
// row-level-security scoping used when executing generated SQL. All
// regular CRUD traffic goes through the REST client; this package
// exists for the one path that needs raw SQL execution under the same
// RLS guarantees.
package pgrls

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds pool construction parameters.
type Config struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
	SearchPath      string
}

// NewPool builds a pgx connection pool with sane defaults applied for
// any zero-valued field.
func NewPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	} else {
		poolCfg.MaxConns = 25
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	} else {
		poolCfg.MinConns = 5
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	if cfg.SearchPath != "" {
		searchPath := cfg.SearchPath
		poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			_, err := conn.Exec(ctx, "SET search_path TO "+searchPath)
			return err
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	return pool, nil
}

// PingLatency measures one round trip to the database. Used by the
// health endpoint.
func PingLatency(ctx context.Context, pool *pgxpool.Pool) (time.Duration, error) {
	start := time.Now()
	if err := pool.Ping(ctx); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}
