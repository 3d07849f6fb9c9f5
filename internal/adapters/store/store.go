// Package store opens the configured snapshot store.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/samirrijal/criticaltracks/internal/adapters/postgres"
	"github.com/samirrijal/criticaltracks/internal/adapters/sqlite"
	"github.com/samirrijal/criticaltracks/internal/core/ports"
	"github.com/samirrijal/criticaltracks/internal/pkg/config"
)

// Drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open connects to the store described by cfg for reading and writing.
// A missing SQLite file is created.
func Open(ctx context.Context, cfg config.StoreConfig) (ports.SnapshotStore, error) {
	return open(ctx, cfg, false)
}

// OpenReadOnly connects to an existing store without changing it. SQLite
// files keep their journal mode and no -wal/-shm files are created; Postgres
// sessions default to read-only transactions.
func OpenReadOnly(ctx context.Context, cfg config.StoreConfig) (ports.SnapshotStore, error) {
	return open(ctx, cfg, true)
}

func open(ctx context.Context, cfg config.StoreConfig, readOnly bool) (ports.SnapshotStore, error) {
	switch cfg.Driver {
	case DriverSQLite, "":
		openDB := sqlite.Open
		if readOnly {
			openDB = sqlite.OpenReadOnly
		}
		db, err := openDB(ctx, cfg.Path)
		if err != nil {
			return nil, err
		}
		return sqlite.NewSnapshotRepo(db), nil
	case DriverPostgres:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = cfg.Database.DSN()
		}
		openDB := postgres.New
		if readOnly {
			openDB = postgres.NewReadOnly
		}
		db, err := openDB(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return postgres.NewSnapshotRepo(db), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// WithLocation returns cfg pointing at location. A postgres:// or
// postgresql:// URL selects PostgreSQL; anything else is a SQLite path.
func WithLocation(cfg config.StoreConfig, location string) config.StoreConfig {
	if IsPostgresURL(location) {
		cfg.Driver = DriverPostgres
		cfg.DSN = location
		return cfg
	}
	cfg.Driver = DriverSQLite
	cfg.Path = location
	return cfg
}

// IsPostgresURL reports whether location is a PostgreSQL connection URL.
func IsPostgresURL(location string) bool {
	return strings.HasPrefix(location, "postgres://") || strings.HasPrefix(location, "postgresql://")
}
