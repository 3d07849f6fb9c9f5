package ports

import (
	"context"
	"errors"

	"github.com/samirrijal/criticaltracks/internal/core/domain"
)

// ErrCacheMiss is returned by CacheService.Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// EventPublisher publishes pipeline results to a message broker. fs is one
// of report's snapshots; the report identifies the run it belongs to.
type EventPublisher interface {
	PublishFilteredSnapshot(ctx context.Context, report *domain.RunReport, fs *domain.FilteredSnapshot) error
	PublishRunCompleted(ctx context.Context, report *domain.RunReport) error
}

// RunRequester queues an analysis to be run by a worker.
type RunRequester interface {
	RequestRun(ctx context.Context, req *domain.RunRequest) error
}

// RunRequestSubscriber delivers queued analysis requests.
type RunRequestSubscriber interface {
	SubscribeRunRequests(ctx context.Context, handler func(ctx context.Context, req *domain.RunRequest) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
