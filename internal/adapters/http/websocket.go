package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/criticaltracks/internal/adapters/nats"
)

// wsMessage is sent from client to subscribe/unsubscribe to channels.
type wsMessage struct {
	Action  string `json:"action"`  // "subscribe" | "unsubscribe"
	Channel string `json:"channel"` // "snapshots" | "runs" (default: snapshots)
}

// wsChannels maps client channel names to broker subjects.
var wsChannels = map[string]string{
	"snapshots": natsadapter.SubjectFiltered,
	"runs":      natsadapter.SubjectRunsCompleted,
}

// WebSocketHandler relays published pipeline events to connected clients.
// Every client starts subscribed to "snapshots"; it may send
// {"action":"subscribe","channel":"runs"} to also receive run completions.
func WebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		logger := slog.Default().With("remote_addr", c.RemoteAddr().String())

		var mu sync.Mutex
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		if nc == nil {
			_ = writeJSON(map[string]string{"error": "live stream not configured"})
			return
		}
		logger.Info("ws client connected")

		subs := make(map[string]*nats.Subscription) // channel -> subscription
		subscribe := func(channel string) error {
			s, err := nc.Subscribe(wsChannels[channel], func(msg *nats.Msg) {
				_ = writeJSON(json.RawMessage(msg.Data))
			})
			if err != nil {
				return err
			}
			subs[channel] = s
			return nil
		}

		if err := subscribe("snapshots"); err != nil {
			logger.Error("ws default subscribe failed", "error", err)
			return
		}

		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}
			channel := m.Channel
			if channel == "" {
				channel = "snapshots"
			}
			if _, ok := wsChannels[channel]; !ok {
				_ = writeJSON(map[string]string{"error": "unknown channel: " + channel})
				continue
			}

			switch m.Action {
			case "subscribe":
				if _, exists := subs[channel]; exists {
					_ = writeJSON(map[string]string{"status": "already subscribed", "channel": channel})
					continue
				}
				if err := subscribe(channel); err != nil {
					_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
					continue
				}
				_ = writeJSON(map[string]string{"status": "subscribed", "channel": channel})

			case "unsubscribe":
				if s, exists := subs[channel]; exists {
					_ = s.Unsubscribe()
					delete(subs, channel)
					_ = writeJSON(map[string]string{"status": "unsubscribed", "channel": channel})
				} else {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + channel})
				}

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		close(done)
		for _, s := range subs {
			_ = s.Unsubscribe()
		}
		logger.Info("ws client disconnected")
	}
}
