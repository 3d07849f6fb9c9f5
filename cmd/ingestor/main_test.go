package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/criticaltracks/internal/adapters/sqlite"
	"github.com/samirrijal/criticaltracks/internal/core/domain"
	"github.com/samirrijal/criticaltracks/internal/core/usecases"
)

const sample = `{"timestamp":"2024-01-01T10:00:00","locations":{"z":{"longitude":1,"latitude":2},"a":{"longitude":3,"latitude":4}}}

{"timestamp":"2024-01-01T10:05:00","locations":{}}
`

func TestParseLine_KeepsLocationOrder(t *testing.T) {
	rec, err := parseLine([]byte(`{"timestamp":"t","locations":{ "z": {"longitude":1,"latitude":2}, "a": {"longitude":3,"latitude":4} }}`))
	require.NoError(t, err)
	assert.Equal(t, "t", rec.Timestamp)
	assert.Equal(t, `{"locations":{"z":{"longitude":1,"latitude":2},"a":{"longitude":3,"latitude":4}}}`, rec.Data)

	locs, err := usecases.DecodeLocations(rec.Data)
	require.NoError(t, err)
	require.Len(t, locs, 2)
	assert.Equal(t, "z", locs[0].ID)
}

func TestParseLine_Invalid(t *testing.T) {
	for _, raw := range []string{`nope`, `{"locations":{}}`, `{"timestamp":"t"}`} {
		_, err := parseLine([]byte(raw))
		assert.Error(t, err, raw)
	}
}

type recordingRepo struct {
	batches [][]domain.SnapshotRecord
}

func (r *recordingRepo) Range(ctx context.Context, start, end string) ([]domain.SnapshotRecord, error) {
	return nil, nil
}
func (r *recordingRepo) Insert(ctx context.Context, rec domain.SnapshotRecord) error { return nil }
func (r *recordingRepo) InsertBatch(ctx context.Context, recs []domain.SnapshotRecord) error {
	r.batches = append(r.batches, append([]domain.SnapshotRecord(nil), recs...))
	return nil
}

func TestIngest_Batches(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < batchSize+1; i++ {
		sb.WriteString(`{"timestamp":"t","locations":{}}` + "\n")
	}

	repo := &recordingRepo{}
	n, err := ingest(context.Background(), repo, strings.NewReader(sb.String()))
	require.NoError(t, err)
	assert.Equal(t, batchSize+1, n)
	require.Len(t, repo.batches, 2)
	assert.Len(t, repo.batches[0], batchSize)
	assert.Len(t, repo.batches[1], 1)
}

func TestIngest_MalformedLineReportsPosition(t *testing.T) {
	repo := &recordingRepo{}
	_, err := ingest(context.Background(), repo, strings.NewReader(`{"timestamp":"t","locations":{}}`+"\n{broken\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
	assert.Empty(t, repo.batches)
}

func TestRun_LoadsIntoSQLite(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "tracks.sqlite")
	input := filepath.Join(dir, "in.ndjson")
	require.NoError(t, os.WriteFile(input, []byte(sample), 0o644))

	var stderr bytes.Buffer
	code := run(context.Background(), []string{"--store", dbPath, "--ensure-schema", input}, nil, &stderr)
	require.Equal(t, 0, code, stderr.String())

	db, err := sqlite.Open(context.Background(), dbPath)
	require.NoError(t, err)
	repo := sqlite.NewSnapshotRepo(db)
	defer repo.Close()

	recs, err := repo.Range(context.Background(), "2024", "2025")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "2024-01-01T10:00:00", recs[0].Timestamp)
	assert.Equal(t, `{"locations":{}}`, recs[1].Data)
}

func TestRun_Stdin(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "tracks.sqlite")

	var stderr bytes.Buffer
	code := run(context.Background(), []string{"--store", dbPath, "--ensure-schema", "-"}, strings.NewReader(sample), &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stderr.String(), "snapshots=2")
}

func TestRun_Usage(t *testing.T) {
	var stderr bytes.Buffer
	assert.Equal(t, 1, run(context.Background(), nil, nil, &stderr))
	assert.Contains(t, stderr.String(), "usage")
}
