package workflows_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/converter"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/samirrijal/criticaltracks/internal/core/domain"
	"github.com/samirrijal/criticaltracks/internal/core/usecases"
	"github.com/samirrijal/criticaltracks/internal/workflows"
)

type mockRepo struct {
	recs []domain.SnapshotRecord
	err  error
}

func (m *mockRepo) Range(ctx context.Context, start, end string) ([]domain.SnapshotRecord, error) {
	return m.recs, m.err
}
func (m *mockRepo) Insert(ctx context.Context, rec domain.SnapshotRecord) error         { return nil }
func (m *mockRepo) InsertBatch(ctx context.Context, recs []domain.SnapshotRecord) error { return nil }

type mockPublisher struct {
	snapshots []string
	events    []domain.SnapshotEvent
	completed []domain.RunSummary
}

func (m *mockPublisher) PublishFilteredSnapshot(ctx context.Context, report *domain.RunReport, fs *domain.FilteredSnapshot) error {
	m.snapshots = append(m.snapshots, fs.Timestamp)
	m.events = append(m.events, report.Event(fs))
	return nil
}

func (m *mockPublisher) PublishRunCompleted(ctx context.Context, report *domain.RunReport) error {
	m.completed = append(m.completed, report.Summary())
	return nil
}

const denseBlob = `{"locations":{
	"a":{"longitude":13413000,"latitude":52521900},
	"b":{"longitude":13413050,"latitude":52521920},
	"c":{"longitude":13413020,"latitude":52521860}
}}`

func newEnv(t *testing.T, repo *mockRepo, opts usecases.AnalysisOptions, pub *mockPublisher) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(workflows.AnalyzeRangeWorkflow)

	acts := &workflows.AnalysisActivities{
		Analysis: usecases.NewAnalysisService(repo, usecases.DefaultDensityFilter(), opts, nil, nil),
	}
	if pub != nil {
		acts.Publisher = pub
	}
	env.RegisterActivity(acts)
	return env
}

func TestAnalyzeRangeWorkflow_PublishesResults(t *testing.T) {
	repo := &mockRepo{recs: []domain.SnapshotRecord{
		{Timestamp: "t1", Data: denseBlob},
		{Timestamp: "t2", Data: `{"locations":{}}`},
		{Timestamp: "t3", Data: denseBlob},
	}}
	pub := &mockPublisher{}
	env := newEnv(t, repo, usecases.AnalysisOptions{}, pub)

	env.ExecuteWorkflow(workflows.AnalyzeRangeWorkflow, workflows.AnalyzeRangeInput{
		RequestID: "req-1", Start: "t0", End: "t9", Publish: true,
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var summary domain.RunSummary
	require.NoError(t, env.GetWorkflowResult(&summary))
	assert.Equal(t, 2, summary.Snapshots)
	assert.Equal(t, 1, summary.Empty)
	assert.Equal(t, 3, summary.Processed)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, "req-1", summary.RequestID)

	assert.Equal(t, []string{"t1", "t3"}, pub.snapshots)
	for _, ev := range pub.events {
		assert.Equal(t, "req-1", ev.RequestID, "snapshot %s", ev.Timestamp)
		assert.Equal(t, summary.RunID, ev.RunID)
	}
	require.Len(t, pub.completed, 1)
	assert.Equal(t, "req-1", pub.completed[0].RequestID)
	assert.Equal(t, summary.RunID, pub.completed[0].RunID)
}

func TestAnalyzeRangeWorkflow_WithoutPublish(t *testing.T) {
	repo := &mockRepo{recs: []domain.SnapshotRecord{{Timestamp: "t1", Data: denseBlob}}}
	env := newEnv(t, repo, usecases.AnalysisOptions{}, nil)

	env.ExecuteWorkflow(workflows.AnalyzeRangeWorkflow, workflows.AnalyzeRangeInput{Start: "t0", End: "t9"})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
}

func TestAnalyzeRangeWorkflow_InvalidRangeIsNotRetried(t *testing.T) {
	env := newEnv(t, &mockRepo{}, usecases.AnalysisOptions{}, nil)

	attempts := 0
	env.SetOnActivityStartedListener(func(info *activity.Info, ctx context.Context, args converter.EncodedValues) {
		attempts++
	})

	env.ExecuteWorkflow(workflows.AnalyzeRangeWorkflow, workflows.AnalyzeRangeInput{Start: "b", End: "a"})

	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)

	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, workflows.ErrTypeInvalidRange, appErr.Type())
	assert.True(t, appErr.NonRetryable())
	assert.Equal(t, 1, attempts)
}

func TestAnalyzeRangeWorkflow_StrictDecodeFailure(t *testing.T) {
	repo := &mockRepo{recs: []domain.SnapshotRecord{{Timestamp: "t1", Data: "{"}}}
	env := newEnv(t, repo, usecases.AnalysisOptions{Strict: true}, nil)

	env.ExecuteWorkflow(workflows.AnalyzeRangeWorkflow, workflows.AnalyzeRangeInput{Start: "t0", End: "t9"})

	err := env.GetWorkflowError()
	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, workflows.ErrTypeUndecodable, appErr.Type())
}

func TestAnalyzeRangeWorkflow_PublishWithoutPublisher(t *testing.T) {
	repo := &mockRepo{recs: []domain.SnapshotRecord{{Timestamp: "t1", Data: denseBlob}}}
	env := newEnv(t, repo, usecases.AnalysisOptions{}, nil)

	env.ExecuteWorkflow(workflows.AnalyzeRangeWorkflow, workflows.AnalyzeRangeInput{Start: "t0", End: "t9", Publish: true})

	var appErr *temporal.ApplicationError
	require.True(t, errors.As(env.GetWorkflowError(), &appErr))
	assert.Equal(t, workflows.ErrTypeNoPublisher, appErr.Type())
}

func TestWorkflowID(t *testing.T) {
	assert.Equal(t, "analyze-range-abc", workflows.WorkflowID("abc"))
}
