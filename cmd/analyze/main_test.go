package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/criticaltracks/internal/adapters/sqlite"
	"github.com/samirrijal/criticaltracks/internal/core/domain"
)

const (
	clusterBlob = `{"locations":{
		"a":{"longitude":13413000,"latitude":52521900},
		"b":{"longitude":13413050,"latitude":52521920},
		"c":{"longitude":13413020,"latitude":52521860}
	}}`
	lonelyBlob = `{"locations":{"x":{"longitude":2350000,"latitude":48860000}}}`
)

func seedStore(t *testing.T, recs ...domain.SnapshotRecord) string {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tracks.sqlite")

	db, err := sqlite.Open(ctx, path)
	require.NoError(t, err)
	repo := sqlite.NewSnapshotRepo(db)
	defer repo.Close()

	require.NoError(t, repo.EnsureSchema(ctx))
	require.NoError(t, repo.InsertBatch(ctx, recs))
	return path
}

func TestRun_EndToEnd(t *testing.T) {
	path := seedStore(t,
		domain.SnapshotRecord{Timestamp: "2024-01-01T10:00:00", Data: clusterBlob},
		domain.SnapshotRecord{Timestamp: "2024-01-01T10:05:00", Data: lonelyBlob},
	)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{path, "2024-01-01T00:00:00", "2024-01-01T23:59:59"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var doc []domain.FilteredSnapshot
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &doc))
	require.Len(t, doc, 1)
	assert.Equal(t, "2024-01-01T10:00:00", doc[0].Timestamp)
	assert.Len(t, doc[0].Data, 3)

	assert.Contains(t, stderr.String(), "2024-01-01T10:05:00", "every processed timestamp is logged")
}

func TestRun_EmptyResult(t *testing.T) {
	path := seedStore(t, domain.SnapshotRecord{Timestamp: "2024-01-01T10:00:00", Data: lonelyBlob})

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{path, "2024", "2025"}, &stdout, &stderr)
	require.Equal(t, 0, code)
	assert.Equal(t, "[]\n", stdout.String())
}

func TestRun_FlagsOverrideFilter(t *testing.T) {
	path := seedStore(t, domain.SnapshotRecord{Timestamp: "t1", Data: lonelyBlob})

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--neighbors", "1", path, "t0", "t9"}, &stdout, &stderr)
	require.Equal(t, 0, code)
	assert.True(t, strings.HasPrefix(stdout.String(), `[{"timestamp":"t1"`), stdout.String())
}

func TestRun_Failures(t *testing.T) {
	path := seedStore(t, domain.SnapshotRecord{Timestamp: "t1", Data: "{"})

	tests := []struct {
		name string
		args []string
		code int
	}{
		{"missing args", []string{path, "t0"}, 1},
		{"inverted range", []string{path, "t9", "t0"}, 1},
		{"strict decode failure", []string{"--strict", path, "t0", "t9"}, 1},
		{"isolated decode failure", []string{path, "t0", "t9"}, 0},
		{"bad flag", []string{"--neighbors", "zero", path, "t0", "t9"}, 1},
		{"invalid filter", []string{"--radius", "0", path, "t0", "t9"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Equal(t, tt.code, run(context.Background(), tt.args, &stdout, &stderr), stderr.String())
			if tt.code != 0 {
				assert.Empty(t, stdout.String(), "no partial output on failure")
			}
		})
	}
}

func TestRun_MissingTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.sqlite")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{path, "a", "b"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "store")
}
