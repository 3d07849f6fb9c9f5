package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/criticaltracks/internal/core/domain"
)

// SnapshotRepo implements ports.SnapshotStore with pgx.
type SnapshotRepo struct {
	db *DB
}

// NewSnapshotRepo creates a new SnapshotRepo.
func NewSnapshotRepo(db *DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// EnsureSchema creates the tracks table if it does not exist.
func (r *SnapshotRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tracks (
			id        BIGSERIAL PRIMARY KEY,
			timestamp TEXT NOT NULL,
			data      TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS tracks_timestamp_idx ON tracks (timestamp COLLATE "C");
	`)
	return err
}

// DropSchema removes the tracks table.
func (r *SnapshotRepo) DropSchema(ctx context.Context) error {
	_, err := r.db.Pool.Exec(ctx, `DROP TABLE IF EXISTS tracks`)
	return err
}

// Range returns records with start <= timestamp <= end. Comparison uses the
// C collation so ordering is bytewise, as in SQLite.
func (r *SnapshotRepo) Range(ctx context.Context, start, end string) ([]domain.SnapshotRecord, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT timestamp, data FROM tracks
		WHERE timestamp COLLATE "C" >= $1 AND timestamp COLLATE "C" <= $2
		ORDER BY timestamp COLLATE "C", id
	`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recs := make([]domain.SnapshotRecord, 0)
	for rows.Next() {
		var rec domain.SnapshotRecord
		if err := rows.Scan(&rec.Timestamp, &rec.Data); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Insert appends one record.
func (r *SnapshotRepo) Insert(ctx context.Context, rec domain.SnapshotRecord) error {
	_, err := r.db.Pool.Exec(ctx, `INSERT INTO tracks (timestamp, data) VALUES ($1, $2)`, rec.Timestamp, rec.Data)
	return err
}

// InsertBatch inserts many records using pgx.Batch.
func (r *SnapshotRepo) InsertBatch(ctx context.Context, recs []domain.SnapshotRecord) error {
	batch := &pgx.Batch{}
	for _, rec := range recs {
		batch.Queue(`INSERT INTO tracks (timestamp, data) VALUES ($1, $2)`, rec.Timestamp, rec.Data)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range recs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

// Ping checks the pool can reach the server.
func (r *SnapshotRepo) Ping(ctx context.Context) error {
	return r.db.Pool.Ping(ctx)
}

// Close releases the pool.
func (r *SnapshotRepo) Close() {
	r.db.Close()
}
