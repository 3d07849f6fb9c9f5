package ports

import (
	"context"

	"github.com/samirrijal/criticaltracks/internal/core/domain"
)

// SnapshotRepository reads and writes stored location snapshots.
type SnapshotRepository interface {
	// Range returns records with start <= timestamp <= end, ordered by timestamp.
	Range(ctx context.Context, start, end string) ([]domain.SnapshotRecord, error)
	Insert(ctx context.Context, rec domain.SnapshotRecord) error
	InsertBatch(ctx context.Context, recs []domain.SnapshotRecord) error
}

// SnapshotStore is a repository with a lifecycle, as opened by the store adapters.
type SnapshotStore interface {
	SnapshotRepository
	EnsureSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error
	Ping(ctx context.Context) error
	Close()
}
