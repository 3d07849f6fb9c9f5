// Command ingestor loads newline-delimited snapshot files into the store.
//
//	ingestor [--store <location>] [--ensure-schema] <file.ndjson>...
//
// Each line is {"timestamp": "...", "locations": {...}}. A file named "-" is
// read from stdin.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/samirrijal/criticaltracks/internal/adapters/store"
	"github.com/samirrijal/criticaltracks/internal/core/domain"
	"github.com/samirrijal/criticaltracks/internal/core/ports"
	"github.com/samirrijal/criticaltracks/internal/pkg/config"
	"github.com/samirrijal/criticaltracks/internal/pkg/logging"
)

const (
	batchSize    = 500
	maxLineBytes = 16 << 20
	maxParallel  = 4
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stderr io.Writer) int {
	fs := pflag.NewFlagSet("ingestor", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	location := fs.String("store", "", "SQLite path or postgres:// URL (defaults to the configured store)")
	ensure := fs.Bool("ensure-schema", false, "create the tracks table if it is missing")
	fs.String("log-level", "info", "debug, info, warn or error")
	fs.String("log-format", "text", "text or json")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "usage: ingestor [flags] <file.ndjson>...")
		fs.PrintDefaults()
		return 1
	}

	cfg, err := config.Load("criticaltracks-ingestor", fs)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	if !fs.Changed("log-format") && os.Getenv("CRITICALTRACKS_LOG_FORMAT") == "" {
		cfg.Log.Format = "text"
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format, stderr)

	storeCfg := cfg.Store
	if *location != "" {
		storeCfg = store.WithLocation(storeCfg, *location)
	}
	s, err := store.Open(ctx, storeCfg)
	if err != nil {
		logger.Error("open store", "error", err)
		return 1
	}
	defer s.Close()

	if *ensure {
		if err := s.EnsureSchema(ctx); err != nil {
			logger.Error("ensure schema", "error", err)
			return 1
		}
	}

	// SQLite allows a single writer, so files are only loaded in parallel on postgres.
	limit := 1
	if storeCfg.Driver == store.DriverPostgres {
		limit = maxParallel
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, path := range fs.Args() {
		g.Go(func() error {
			n, err := ingestFile(gctx, s, path, stdin)
			if err != nil {
				logger.Error("ingest failed", "file", path, "loaded", n, "error", err)
				return err
			}
			logger.Info("file loaded", "file", path, "snapshots", n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 1
	}
	logger.Info("ingestion complete", "files", fs.NArg())
	return 0
}

func ingestFile(ctx context.Context, repo ports.SnapshotRepository, path string, stdin io.Reader) (int, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return 0, err
		}
		defer f.Close()
		r = f
	}
	return ingest(ctx, repo, r)
}

// line is one input record. Locations stays raw so the stored blob keeps the
// input's key order.
type line struct {
	Timestamp string          `json:"timestamp"`
	Locations json.RawMessage `json:"locations"`
}

func parseLine(raw []byte) (domain.SnapshotRecord, error) {
	var l line
	if err := json.Unmarshal(raw, &l); err != nil {
		return domain.SnapshotRecord{}, err
	}
	if l.Timestamp == "" {
		return domain.SnapshotRecord{}, errors.New("missing timestamp")
	}
	if len(l.Locations) == 0 {
		return domain.SnapshotRecord{}, errors.New("missing locations")
	}
	var buf bytes.Buffer
	buf.WriteString(`{"locations":`)
	if err := json.Compact(&buf, l.Locations); err != nil {
		return domain.SnapshotRecord{}, err
	}
	buf.WriteByte('}')
	return domain.SnapshotRecord{Timestamp: l.Timestamp, Data: buf.String()}, nil
}

// ingest reads r line by line and inserts in batches. Blank lines are skipped;
// a malformed line stops the load. Batches already flushed stay stored.
func ingest(ctx context.Context, repo ports.SnapshotRepository, r io.Reader) (int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	batch := make([]domain.SnapshotRecord, 0, batchSize)
	total, lineNo := 0, 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := repo.InsertBatch(ctx, batch); err != nil {
			return err
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	for sc.Scan() {
		lineNo++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		rec, err := parseLine(raw)
		if err != nil {
			return total, fmt.Errorf("line %d: %w", lineNo, err)
		}
		batch = append(batch, rec)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return total, err
	}
	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}
