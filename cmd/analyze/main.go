// Command analyze filters the snapshots of a time range down to their dense
// points and prints the result as a JSON document on stdout.
//
//	analyze [flags] <store> <start> <end>
//
// <store> is a SQLite file path or a postgres:// URL. Progress is logged to
// stderr.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	natsadapter "github.com/samirrijal/criticaltracks/internal/adapters/nats"
	"github.com/samirrijal/criticaltracks/internal/adapters/store"
	"github.com/samirrijal/criticaltracks/internal/core/ports"
	"github.com/samirrijal/criticaltracks/internal/core/usecases"
	"github.com/samirrijal/criticaltracks/internal/pkg/config"
	"github.com/samirrijal/criticaltracks/internal/pkg/logging"
	"github.com/samirrijal/criticaltracks/internal/pkg/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func newFlagSet(stderr io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet("analyze", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Int("neighbors", usecases.DefaultNeighbors, "points (including the point itself) required within the radius")
	fs.Float64("radius", usecases.DefaultRadiusMeters, "neighborhood radius in meters")
	fs.Bool("strict", false, "abort on the first undecodable snapshot")
	fs.Int("workers", 1, "snapshots processed in parallel")
	fs.String("log-level", "info", "debug, info, warn or error")
	fs.String("log-format", "text", "text or json")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: analyze [flags] <store> <start> <end>")
		fs.PrintDefaults()
	}
	return fs
}

// run executes the command and returns the process exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet(stderr)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 3 {
		fs.Usage()
		return 1
	}
	location, start, end := fs.Arg(0), fs.Arg(1), fs.Arg(2)

	cfg, err := config.Load("criticaltracks-analyze", fs)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	if !fs.Changed("log-format") && os.Getenv("CRITICALTRACKS_LOG_FORMAT") == "" {
		cfg.Log.Format = "text"
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format, stderr)
	slog.SetDefault(logger)

	filter, err := usecases.NewDensityFilter(cfg.Filter)
	if err != nil {
		logger.Error("invalid filter", "error", err)
		return 1
	}

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			logger.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	s, err := store.OpenReadOnly(ctx, store.WithLocation(cfg.Store, location))
	if err != nil {
		logger.Error("open store", "store", location, "error", &usecases.StoreError{Op: "open", Err: err})
		return 1
	}
	defer s.Close()

	var publisher ports.EventPublisher
	if cfg.NATS.Enabled {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			logger.Warn("nats unavailable, results will not be published", "error", err)
		} else {
			defer pub.Close()
			publisher = pub
		}
	}

	svc := usecases.NewAnalysisService(s, filter, usecases.AnalysisOptions{
		Strict:  cfg.Pipeline.Strict,
		Workers: cfg.Pipeline.Workers,
		Publish: publisher != nil,
	}, nil, publisher).WithLogger(logger)

	report, err := svc.Run(ctx, start, end)
	if err != nil {
		var decErr *usecases.DecodeError
		if errors.As(err, &decErr) {
			logger.Error("undecodable snapshot", "timestamp", decErr.Timestamp, "error", decErr.Err)
		} else {
			logger.Error("analysis failed", "error", err)
		}
		return 1
	}

	if err := usecases.WriteOutput(stdout, report.Snapshots); err != nil {
		logger.Error("write output", "error", err)
		return 1
	}

	if n := len(report.Failures); n > 0 {
		logger.Warn("some snapshots were skipped", "failures", n, "processed", report.Processed)
	}
	return 0
}
