package workflows

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/criticaltracks/internal/core/domain"
	"github.com/samirrijal/criticaltracks/internal/core/ports"
	"github.com/samirrijal/criticaltracks/internal/core/usecases"
)

// Error types that Temporal must not retry.
const (
	ErrTypeInvalidRange = "InvalidRange"
	ErrTypeUndecodable  = "UndecodableSnapshot"
	ErrTypeNoPublisher  = "PublisherNotConfigured"
)

// AnalysisActivities holds the activity implementations for AnalyzeRangeWorkflow.
type AnalysisActivities struct {
	Analysis  *usecases.AnalysisService
	Publisher ports.EventPublisher
}

// AnalyzeRange runs the pipeline over the requested range.
func (a *AnalysisActivities) AnalyzeRange(ctx context.Context, input AnalyzeRangeInput) (*domain.RunReport, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("analyzing range", "start", input.Start, "end", input.End, "request_id", input.RequestID)

	report, err := a.Analysis.Run(ctx, input.Start, input.End)
	if err != nil {
		var decErr *usecases.DecodeError
		switch {
		case errors.Is(err, usecases.ErrInvalidRange):
			return nil, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidRange, err)
		case errors.As(err, &decErr):
			return nil, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeUndecodable, err)
		}
		return nil, fmt.Errorf("analyze %s..%s: %w", input.Start, input.End, err)
	}
	report.RequestID = input.RequestID
	return report, nil
}

// PublishSnapshots publishes every filtered snapshot of report, then the
// run completion event.
func (a *AnalysisActivities) PublishSnapshots(ctx context.Context, report *domain.RunReport) error {
	if a.Publisher == nil {
		return temporal.NewNonRetryableApplicationError("no event publisher configured", ErrTypeNoPublisher, nil)
	}
	for i := range report.Snapshots {
		if err := a.Publisher.PublishFilteredSnapshot(ctx, report, &report.Snapshots[i]); err != nil {
			return fmt.Errorf("publish %s: %w", report.Snapshots[i].Timestamp, err)
		}
		activity.RecordHeartbeat(ctx, i)
	}
	if err := a.Publisher.PublishRunCompleted(ctx, report); err != nil {
		return fmt.Errorf("publish run completion: %w", err)
	}
	return nil
}
