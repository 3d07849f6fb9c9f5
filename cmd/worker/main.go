// Command worker runs analysis workflows on Temporal. With NATS enabled it
// also turns queued run requests into workflow executions.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/samirrijal/criticaltracks/internal/adapters/nats"
	"github.com/samirrijal/criticaltracks/internal/adapters/store"
	"github.com/samirrijal/criticaltracks/internal/core/domain"
	"github.com/samirrijal/criticaltracks/internal/core/ports"
	"github.com/samirrijal/criticaltracks/internal/core/usecases"
	"github.com/samirrijal/criticaltracks/internal/pkg/config"
	"github.com/samirrijal/criticaltracks/internal/pkg/logging"
	"github.com/samirrijal/criticaltracks/internal/workflows"
)

func main() {
	cfg, err := config.Load("criticaltracks-worker", nil)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format, os.Stdout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots, err := store.OpenReadOnly(ctx, cfg.Store)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer snapshots.Close()

	filter, err := usecases.NewDensityFilter(cfg.Filter)
	if err != nil {
		log.Fatalf("filter: %v", err)
	}

	// Publishing is a separate activity, so the service itself gets no publisher.
	analysis := usecases.NewAnalysisService(snapshots, filter, usecases.AnalysisOptions{
		Strict:  cfg.Pipeline.Strict,
		Workers: cfg.Pipeline.Workers,
	}, nil, nil)

	var publisher ports.EventPublisher
	if cfg.NATS.Enabled {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable, results will not be published", "error", err)
		} else {
			defer pub.Close()
			publisher = pub
		}
	}

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.AnalyzeRangeWorkflow)
	w.RegisterActivity(&workflows.AnalysisActivities{
		Analysis:  analysis,
		Publisher: publisher,
	})

	if cfg.NATS.Enabled {
		sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
		if err != nil {
			slog.Warn("run requests disabled", "error", err)
		} else {
			defer sub.Close()
			starter := &runStarter{client: c, taskQueue: cfg.Temporal.TaskQueue, publish: publisher != nil}
			if err := sub.SubscribeRunRequests(ctx, starter.Start); err != nil {
				log.Fatalf("subscribe run requests: %v", err)
			}
		}
	}

	slog.Info("analysis worker started", "task_queue", cfg.Temporal.TaskQueue, "store", cfg.Store.Driver)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}

type runStarter struct {
	client    client.Client
	taskQueue string
	publish   bool
}

// Start launches one workflow per request. A redelivered request maps to the
// same workflow ID and attaches to the run already in progress.
func (s *runStarter) Start(ctx context.Context, req *domain.RunRequest) error {
	run, err := s.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        workflows.WorkflowID(req.ID),
		TaskQueue: s.taskQueue,
	}, workflows.AnalyzeRangeWorkflow, workflows.AnalyzeRangeInput{
		RequestID: req.ID,
		Start:     req.Start,
		End:       req.End,
		Publish:   s.publish,
	})
	if err != nil {
		slog.Error("start workflow failed", "request_id", req.ID, "error", err)
		return err
	}
	slog.Info("workflow started", "request_id", req.ID, "workflow_id", run.GetID(), "run_id", run.GetRunID())
	return nil
}
