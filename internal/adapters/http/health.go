package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler reports liveness together with the filter the process serves.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		body := fiber.Map{
			"status":  "healthy",
			"uptime":  time.Since(startedAt).String(),
			"version": "dev",
		}
		if deps.Analysis != nil {
			f := deps.Analysis.Filter()
			body["filter"] = FilterResponse{Neighbors: f.Neighbors, RadiusMeters: f.RadiusMeters}
		}
		return c.JSON(body)
	}
}

var errDisconnected = errors.New("disconnected")

// readiness collects per-dependency results. Only required dependencies
// turn a failure into 503.
type readiness struct {
	checks map[string]string
	ok     bool
}

func (r *readiness) record(name string, configured, required bool, check func() error) {
	if !configured {
		r.checks[name] = "not configured"
		r.ok = r.ok && !required
		return
	}
	if err := check(); err != nil {
		r.checks[name] = "error: " + err.Error()
		r.ok = r.ok && !required
		return
	}
	r.checks[name] = "ok"
}

// ReadyHandler checks the snapshot store (required), plus the broker and
// report cache when they are wired.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()

		r := &readiness{checks: make(map[string]string), ok: true}
		r.record("store", deps.Store != nil, true, func() error { return deps.Store.Ping(ctx) })
		r.record("nats", deps.NATS != nil, false, func() error {
			if !deps.NATS.IsConnected() {
				return errDisconnected
			}
			return nil
		})
		r.record("cache", deps.Cache != nil, false, func() error { return deps.Cache.Ping(ctx) })

		if !r.ok {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "not ready", "checks": r.checks})
		}
		return c.JSON(fiber.Map{"status": "ready", "checks": r.checks})
	}
}
