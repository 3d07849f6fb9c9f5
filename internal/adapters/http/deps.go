package http

import (
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/criticaltracks/internal/adapters/valkey"
	"github.com/samirrijal/criticaltracks/internal/core/ports"
	"github.com/samirrijal/criticaltracks/internal/core/usecases"
	"github.com/samirrijal/criticaltracks/internal/pkg/config"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Analysis *usecases.AnalysisService
	Store    ports.SnapshotStore
	Runs     ports.RunRequester
	NATS     *nats.Conn
	Cache    *valkey.Cache
}

// AnalysisOptions returns the pipeline options for the service behind the
// read endpoints. Runs served over HTTP never publish; broker events come
// from runs queued through POST /v1/runs.
func AnalysisOptions(cfg config.PipelineConfig) usecases.AnalysisOptions {
	return usecases.AnalysisOptions{
		Strict:          cfg.Strict,
		Workers:         cfg.Workers,
		CacheTTLSeconds: cfg.CacheTTLSeconds,
	}
}
