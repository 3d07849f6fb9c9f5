package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/samirrijal/criticaltracks/internal/core/domain"
	"github.com/samirrijal/criticaltracks/internal/core/ports"
	"github.com/samirrijal/criticaltracks/internal/pkg/metrics"
	"github.com/samirrijal/criticaltracks/internal/pkg/telemetry"
)

// AnalysisOptions controls how a batch run treats failures and parallelism.
type AnalysisOptions struct {
	// Strict aborts the run on the first undecodable snapshot.
	// Otherwise the snapshot is skipped and reported in RunReport.Failures.
	Strict bool
	// Workers > 1 processes snapshots in parallel; output order is unchanged.
	Workers int
	// CacheTTLSeconds is how long successful reports stay cached. 0 disables caching.
	CacheTTLSeconds int
	// Publish sends each fresh run's results to the event publisher.
	// Read paths such as the HTTP API leave it off.
	Publish bool
}

// AnalysisService runs the density filter over every snapshot in a time range.
type AnalysisService struct {
	snapshots ports.SnapshotRepository
	filter    DensityFilter
	opts      AnalysisOptions
	cache     ports.CacheService
	publisher ports.EventPublisher
	logger    *slog.Logger
}

// NewAnalysisService creates a new AnalysisService. cache and publisher may be
// nil; publisher is only used when opts.Publish is set.
func NewAnalysisService(
	snapshots ports.SnapshotRepository,
	filter DensityFilter,
	opts AnalysisOptions,
	cache ports.CacheService,
	publisher ports.EventPublisher,
) *AnalysisService {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &AnalysisService{
		snapshots: snapshots,
		filter:    filter,
		opts:      opts,
		cache:     cache,
		publisher: publisher,
		logger:    slog.Default(),
	}
}

// WithLogger returns a copy of the service logging to l.
func (s *AnalysisService) WithLogger(l *slog.Logger) *AnalysisService {
	cp := *s
	cp.logger = l
	return &cp
}

// Filter returns the density filter the service applies.
func (s *AnalysisService) Filter() DensityFilter {
	return s.filter
}

// recordResult is the outcome of processing one record.
type recordResult struct {
	features []domain.Feature
	points   int
	err      error
}

// Run processes every snapshot with start <= timestamp <= end.
//
// Snapshots with no surviving points are omitted. Output keeps the order
// returned by the store.
func (s *AnalysisService) Run(ctx context.Context, start, end string) (*domain.RunReport, error) {
	if start > end {
		return nil, fmt.Errorf("%w: %q > %q", ErrInvalidRange, start, end)
	}

	began := time.Now()

	ctx, span := telemetry.Tracer().Start(ctx, "AnalysisService.Run")
	defer span.End()
	span.SetAttributes(
		telemetry.AttrStart.String(start),
		telemetry.AttrEnd.String(end),
	)

	cacheKey := s.cacheKey(start, end)
	if report, ok := s.cached(ctx, cacheKey); ok {
		span.SetAttributes(telemetry.AttrRunID.String(report.RunID))
		s.logger.Info("serving cached report", "run_id", report.RunID,
			"start", start, "end", end, "snapshots", len(report.Snapshots))
		return report, nil
	}

	// A cache hit reports the run that produced it; only fresh runs get an ID.
	runID := uuid.NewString()
	logger := s.logger.With("run_id", runID)
	span.SetAttributes(telemetry.AttrRunID.String(runID))

	logger.Info("starting run", "start", start, "end", end,
		"neighbors", s.filter.Neighbors, "radius_meters", s.filter.RadiusMeters,
		"strict", s.opts.Strict, "workers", s.opts.Workers)

	records, err := s.snapshots.Range(ctx, start, end)
	if err != nil {
		serr := &StoreError{Op: "range query", Err: err}
		s.fail(span, began, serr)
		return nil, serr
	}
	span.SetAttributes(telemetry.AttrRecords.Int(len(records)))

	results, err := s.processAll(ctx, records)
	if err != nil {
		s.fail(span, began, err)
		return nil, err
	}

	report := &domain.RunReport{
		RunID:     runID,
		Start:     start,
		End:       end,
		Snapshots: make([]domain.FilteredSnapshot, 0, len(records)),
	}
	for i, res := range results {
		rec := records[i]
		report.Processed++

		var decErr *DecodeError
		switch {
		case errors.As(res.err, &decErr):
			metrics.ObserveSnapshot(metrics.OutcomeFailed, 0, 0)
			if s.opts.Strict {
				s.fail(span, began, decErr)
				return nil, decErr
			}
			logger.Warn("skipping undecodable snapshot", "timestamp", rec.Timestamp, "error", decErr.Err)
			report.Failures = append(report.Failures, domain.RecordFailure{
				Timestamp: rec.Timestamp,
				Error:     decErr.Err.Error(),
			})
			continue
		case res.err != nil:
			s.fail(span, began, res.err)
			return nil, res.err
		}

		logger.Info("processed snapshot", "timestamp", rec.Timestamp, "points", res.points, "kept", len(res.features))
		if len(res.features) == 0 {
			metrics.ObserveSnapshot(metrics.OutcomeEmpty, res.points, 0)
			report.Empty++
			continue
		}
		metrics.ObserveSnapshot(metrics.OutcomeKept, res.points, len(res.features))
		report.Snapshots = append(report.Snapshots, domain.FilteredSnapshot{
			Timestamp: rec.Timestamp,
			Data:      res.features,
		})
	}

	metrics.RunDuration.WithLabelValues("ok").Observe(time.Since(began).Seconds())
	logger.Info("run complete",
		"processed", report.Processed,
		"snapshots", len(report.Snapshots),
		"empty", report.Empty,
		"failures", len(report.Failures),
		"duration", time.Since(began).String())

	if len(report.Failures) == 0 {
		s.store(ctx, cacheKey, report)
	}
	s.publish(ctx, logger, report)

	return report, nil
}

// processAll runs the processor over every record, in parallel when
// configured. Results are indexed like records.
func (s *AnalysisService) processAll(ctx context.Context, records []domain.SnapshotRecord) ([]recordResult, error) {
	results := make([]recordResult, len(records))

	if s.opts.Workers == 1 {
		for i, rec := range records {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			features, points, err := processRecord(rec, s.filter)
			results[i] = recordResult{features: features, points: points, err: err}
			if err != nil && s.opts.Strict {
				return results[:i+1], nil
			}
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, rec := range records {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			features, points, err := processRecord(rec, s.filter)
			results[i] = recordResult{features: features, points: points, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *AnalysisService) fail(span trace.Span, began time.Time, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	metrics.RunDuration.WithLabelValues("error").Observe(time.Since(began).Seconds())
}

func (s *AnalysisService) cacheKey(start, end string) string {
	return "tracks:run:" + start + ":" + end + ":" +
		strconv.Itoa(s.filter.Neighbors) + ":" +
		strconv.FormatFloat(float64(s.filter.RadiusMeters), 'g', -1, 32)
}

func (s *AnalysisService) cached(ctx context.Context, key string) (*domain.RunReport, bool) {
	if s.cache == nil || s.opts.CacheTTLSeconds <= 0 {
		return nil, false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		metrics.CacheMisses.WithLabelValues("run").Inc()
		return nil, false
	}
	var report domain.RunReport
	if err := json.Unmarshal(data, &report); err != nil {
		metrics.CacheMisses.WithLabelValues("run").Inc()
		return nil, false
	}
	metrics.CacheHits.WithLabelValues("run").Inc()
	return &report, true
}

func (s *AnalysisService) store(ctx context.Context, key string, report *domain.RunReport) {
	if s.cache == nil || s.opts.CacheTTLSeconds <= 0 {
		return
	}
	if data, err := json.Marshal(report); err == nil {
		_ = s.cache.Set(ctx, key, data, s.opts.CacheTTLSeconds)
	}
}

// publish fans results out to subscribers. Publishing is best effort.
func (s *AnalysisService) publish(ctx context.Context, logger *slog.Logger, report *domain.RunReport) {
	if s.publisher == nil || !s.opts.Publish {
		return
	}
	for i := range report.Snapshots {
		if err := s.publisher.PublishFilteredSnapshot(ctx, report, &report.Snapshots[i]); err != nil {
			logger.Warn("publish snapshot failed", "timestamp", report.Snapshots[i].Timestamp, "error", err)
		}
	}
	if err := s.publisher.PublishRunCompleted(ctx, report); err != nil {
		logger.Warn("publish run completion failed", "error", err)
	}
}
