package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// Snapshot outcomes used as the "outcome" label.
const (
	OutcomeKept   = "kept"
	OutcomeEmpty  = "empty"
	OutcomeFailed = "failed"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "criticaltracks",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "criticaltracks",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 10},
	}, []string{"method", "path"})

	// Pipeline metrics
	SnapshotsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "criticaltracks",
		Subsystem: "pipeline",
		Name:      "snapshots_processed_total",
		Help:      "Snapshots processed, by outcome",
	}, []string{"outcome"})

	PointsEvaluated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "criticaltracks",
		Subsystem: "pipeline",
		Name:      "points_evaluated_total",
		Help:      "Points evaluated by the density filter",
	})

	PointsKept = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "criticaltracks",
		Subsystem: "pipeline",
		Name:      "points_kept_total",
		Help:      "Points that passed the density filter",
	})

	RunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "criticaltracks",
		Subsystem: "pipeline",
		Name:      "run_duration_seconds",
		Help:      "Duration of a batch run",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
	}, []string{"status"})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "criticaltracks",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "criticaltracks",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})
)

// ObserveSnapshot records one processed snapshot.
func ObserveSnapshot(outcome string, evaluated, kept int) {
	SnapshotsProcessed.WithLabelValues(outcome).Inc()
	PointsEvaluated.Add(float64(evaluated))
	PointsKept.Add(float64(kept))
}

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c *fiber.Ctx) error {
		handler(c.Context())
		return nil
	}
}
