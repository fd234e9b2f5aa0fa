// Package tracing wires the otlptracegrpc exporter named in SPEC_FULL.md's
// observability section to a process-wide TracerProvider. No package in
// this repository starts spans of its own: neither the wire-protocol path
// (internal/dispatcher) nor the Admin HTTP Gateway's handlers are traced.
package tracing

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const serviceName = "bistro-server"

// Shutdown flushes and stops the TracerProvider. A no-op Shutdown is
// returned when tracing is disabled.
type Shutdown func(ctx context.Context) error

// Setup installs a TracerProvider exporting to endpoint over OTLP/gRPC. When
// endpoint is empty, tracing stays on the SDK's default no-op provider and
// Setup returns a no-op Shutdown — otel.Tracer calls elsewhere remain safe.
func Setup(ctx context.Context, endpoint string) (Shutdown, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
		otlptracegrpc.WithTimeout(5*time.Second),
	)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	return provider.Shutdown, nil
}
