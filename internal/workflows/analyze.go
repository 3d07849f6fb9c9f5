package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/criticaltracks/internal/core/domain"
)

// AnalyzeRangeInput is the input for AnalyzeRangeWorkflow.
type AnalyzeRangeInput struct {
	RequestID string
	Start     string
	End       string
	// Publish sends results to the broker once the analysis succeeds.
	Publish bool
}

// WorkflowID derives a stable workflow ID so a redelivered request does not
// start a second run.
func WorkflowID(requestID string) string {
	return "analyze-range-" + requestID
}

// AnalyzeRangeWorkflow runs the density pipeline over a range and optionally
// publishes the surviving snapshots.
func AnalyzeRangeWorkflow(ctx workflow.Context, input AnalyzeRangeInput) (domain.RunSummary, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting analyze range workflow", "start", input.Start, "end", input.End)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		HeartbeatTimeout:    time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	})

	var report domain.RunReport
	if err := workflow.ExecuteActivity(ctx, "AnalyzeRange", input).Get(ctx, &report); err != nil {
		return domain.RunSummary{}, err
	}
	summary := report.Summary()

	if input.Publish {
		if err := workflow.ExecuteActivity(ctx, "PublishSnapshots", &report).Get(ctx, nil); err != nil {
			logger.Warn("publishing failed", "run_id", report.RunID, "error", err)
			return summary, err
		}
	}

	logger.Info("Analysis complete", "run_id", summary.RunID, "request_id", summary.RequestID, "snapshots", summary.Snapshots, "failures", summary.Failures)
	return summary, nil
}
