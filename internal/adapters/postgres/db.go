package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const maxConns = 10

// DB is the pgx pool behind the Postgres snapshot store.
type DB struct {
	Pool *pgxpool.Pool
}

// New opens a read-write pool on dsn and pings it.
func New(ctx context.Context, dsn string) (*DB, error) {
	return connect(ctx, dsn, false)
}

// NewReadOnly opens a pool whose sessions default to read-only transactions,
// so analysis processes cannot alter the tracks table.
func NewReadOnly(ctx context.Context, dsn string) (*DB, error) {
	return connect(ctx, dsn, true)
}

func poolConfig(dsn string, readOnly bool) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = maxConns

	params := cfg.ConnConfig.RuntimeParams
	if _, ok := params["application_name"]; !ok {
		params["application_name"] = "criticaltracks"
	}
	if readOnly {
		params["default_transaction_read_only"] = "on"
	}
	return cfg, nil
}

func connect(ctx context.Context, dsn string, readOnly bool) (*DB, error) {
	cfg, err := poolConfig(dsn, readOnly)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &DB{Pool: pool}, nil
}

// Close releases pool resources.
func (db *DB) Close() {
	db.Pool.Close()
}
