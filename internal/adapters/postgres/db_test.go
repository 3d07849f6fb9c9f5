package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolConfig(t *testing.T) {
	const dsn = "postgres://tracks@localhost:5432/criticaltracks?sslmode=disable"

	rw, err := poolConfig(dsn, false)
	require.NoError(t, err)
	assert.EqualValues(t, maxConns, rw.MaxConns)
	assert.Equal(t, "criticaltracks", rw.ConnConfig.RuntimeParams["application_name"])
	assert.NotContains(t, rw.ConnConfig.RuntimeParams, "default_transaction_read_only")

	ro, err := poolConfig(dsn, true)
	require.NoError(t, err)
	assert.Equal(t, "on", ro.ConnConfig.RuntimeParams["default_transaction_read_only"])
}

func TestPoolConfig_KeepsApplicationName(t *testing.T) {
	cfg, err := poolConfig("postgres://localhost/tracks?application_name=importer", false)
	require.NoError(t, err)
	assert.Equal(t, "importer", cfg.ConnConfig.RuntimeParams["application_name"])
}

func TestPoolConfig_InvalidDSN(t *testing.T) {
	_, err := poolConfig("postgres://localhost:notaport/tracks", false)
	assert.Error(t, err)
}
