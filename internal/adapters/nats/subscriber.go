package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/criticaltracks/internal/core/domain"
)

// Subscriber implements ports.RunRequestSubscriber using NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber connects to NATS and makes sure the streams exist.
func NewSubscriber(url string) (*Subscriber, error) {
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
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeRunRequests delivers queued run requests to handler. Messages are
// acked on success and redelivered up to three times on failure. Malformed
// payloads are terminated.
func (s *Subscriber) SubscribeRunRequests(ctx context.Context, handler func(ctx context.Context, req *domain.RunRequest) error) error {
	sub, err := s.js.Subscribe(SubjectRunsRequested, func(msg *nats.Msg) {
		var req domain.RunRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			_ = msg.Term()
			return
		}
		if err := handler(ctx, &req); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable("analysis-requests"),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
