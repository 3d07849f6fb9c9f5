package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/criticaltracks/internal/core/domain"
)

// Subjects.
const (
	SubjectFiltered      = "tracks.filtered"
	SubjectRunsCompleted = "tracks.runs.completed"
	SubjectRunsRequested = "tracks.runs.requested"
)

// streams are created or updated on connect.
var streams = []nats.StreamConfig{
	{
		Name:      "TRACKS",
		Subjects:  []string{SubjectFiltered, SubjectRunsCompleted},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	},
	{
		Name:      "TRACKS_REQUESTS",
		Subjects:  []string{SubjectRunsRequested},
		Retention: nats.WorkQueuePolicy,
		MaxAge:    1 * time.Hour,
		Storage:   nats.FileStorage,
	},
}

// Publisher implements ports.EventPublisher and ports.RunRequester using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	if err := ensureStreams(js); err != nil {
		conn.Close()
		return nil, err
	}

	return &Publisher{conn: conn, js: js}, nil
}

func ensureStreams(js nats.JetStreamContext) error {
	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist, try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}
	return nil
}

// PublishFilteredSnapshot publishes one snapshot's surviving points.
func (p *Publisher) PublishFilteredSnapshot(ctx context.Context, report *domain.RunReport, fs *domain.FilteredSnapshot) error {
	data, err := json.Marshal(report.Event(fs))
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SubjectFiltered, data, nats.Context(ctx))
	return err
}

// PublishRunCompleted publishes the counts of a finished run.
func (p *Publisher) PublishRunCompleted(ctx context.Context, report *domain.RunReport) error {
	data, err := json.Marshal(report.Summary())
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SubjectRunsCompleted, data, nats.Context(ctx), nats.MsgId(report.RunID))
	return err
}

// RequestRun queues an analysis for the worker.
func (p *Publisher) RequestRun(ctx context.Context, req *domain.RunRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SubjectRunsRequested, data, nats.Context(ctx), nats.MsgId(req.ID))
	return err
}

// Conn exposes the underlying connection, e.g. for the WebSocket relay.
func (p *Publisher) Conn() *nats.Conn {
	return p.conn
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
