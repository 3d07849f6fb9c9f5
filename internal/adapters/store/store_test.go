package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/criticaltracks/internal/adapters/store"
	"github.com/samirrijal/criticaltracks/internal/pkg/config"
)

func TestWithLocation(t *testing.T) {
	tests := []struct {
		location   string
		wantDriver string
	}{
		{"tracks.sqlite", store.DriverSQLite},
		{"/var/lib/tracks.db", store.DriverSQLite},
		{"postgres://u:p@localhost:5432/tracks", store.DriverPostgres},
		{"postgresql://localhost/tracks", store.DriverPostgres},
	}
	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			cfg := store.WithLocation(config.StoreConfig{Driver: "postgres", Path: "other"}, tt.location)
			assert.Equal(t, tt.wantDriver, cfg.Driver)
			if tt.wantDriver == store.DriverPostgres {
				assert.Equal(t, tt.location, cfg.DSN)
			} else {
				assert.Equal(t, tt.location, cfg.Path)
			}
		})
	}
}

func TestOpen_SQLite(t *testing.T) {
	ctx := context.Background()
	cfg := config.StoreConfig{Driver: store.DriverSQLite, Path: filepath.Join(t.TempDir(), "t.sqlite")}

	s, err := store.Open(ctx, cfg)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.EnsureSchema(ctx))
	assert.NoError(t, s.Ping(ctx))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := store.Open(context.Background(), config.StoreConfig{Driver: "mysql"})
	assert.Error(t, err)
}

func TestOpenReadOnly_SQLite(t *testing.T) {
	ctx := context.Background()
	cfg := config.StoreConfig{Driver: store.DriverSQLite, Path: filepath.Join(t.TempDir(), "t.sqlite")}

	_, err := store.OpenReadOnly(ctx, cfg)
	require.Error(t, err, "a missing file is not created")

	rw, err := store.Open(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, rw.EnsureSchema(ctx))
	rw.Close()

	ro, err := store.OpenReadOnly(ctx, cfg)
	require.NoError(t, err)
	defer ro.Close()
	assert.NoError(t, ro.Ping(ctx))
	assert.Error(t, ro.DropSchema(ctx))
}
