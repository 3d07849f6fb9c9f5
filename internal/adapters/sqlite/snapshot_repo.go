package sqlite

import (
	"context"
	"fmt"

	"github.com/samirrijal/criticaltracks/internal/core/domain"
)

// SnapshotRepo implements ports.SnapshotStore on the tracks table.
type SnapshotRepo struct {
	db *DB
}

// NewSnapshotRepo creates a new SnapshotRepo.
func NewSnapshotRepo(db *DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// EnsureSchema creates the tracks table if it does not exist.
func (r *SnapshotRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS tracks (
			timestamp TEXT NOT NULL,
			data      TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS tracks_timestamp_idx ON tracks (timestamp);
	`)
	return err
}

// DropSchema removes the tracks table.
func (r *SnapshotRepo) DropSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DROP TABLE IF EXISTS tracks`)
	return err
}

// Range returns records with start <= timestamp <= end, compared as text.
func (r *SnapshotRepo) Range(ctx context.Context, start, end string) ([]domain.SnapshotRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT timestamp, data FROM tracks
		WHERE timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp, rowid
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
	_, err := r.db.ExecContext(ctx, `INSERT INTO tracks (timestamp, data) VALUES (?, ?)`, rec.Timestamp, rec.Data)
	return err
}

// InsertBatch appends many records in one transaction.
func (r *SnapshotRepo) InsertBatch(ctx context.Context, recs []domain.SnapshotRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO tracks (timestamp, data) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, rec := range recs {
		if _, err := stmt.ExecContext(ctx, rec.Timestamp, rec.Data); err != nil {
			return fmt.Errorf("insert %s: %w", rec.Timestamp, err)
		}
	}
	return tx.Commit()
}

// Ping checks the database is reachable.
func (r *SnapshotRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close releases the database handle.
func (r *SnapshotRepo) Close() {
	r.db.Close()
}
