package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope for pipeline spans.
const TracerName = "github.com/samirrijal/criticaltracks"

// Span attribute keys.
const (
	AttrRunID     = attribute.Key("criticaltracks.run_id")
	AttrStart     = attribute.Key("criticaltracks.range.start")
	AttrEnd       = attribute.Key("criticaltracks.range.end")
	AttrRecords   = attribute.Key("criticaltracks.records")
	AttrTimestamp = attribute.Key("criticaltracks.timestamp")
)

// InitTracer installs a global tracer provider exporting over OTLP/gRPC.
// The returned func flushes and shuts the provider down.
func InitTracer(ctx context.Context, serviceName, endpoint string) (func(), error) {
	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("otlp exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", serviceName),
		)),
	)
	otel.SetTracerProvider(tp)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(ctx)
	}, nil
}

// Tracer returns the pipeline tracer from the global provider.
// Without InitTracer it is a no-op tracer.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}
