// Package telemetry configures OpenTelemetry tracing for API calls.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// DefaultEndpoint is a local collector's OTLP/gRPC port.
const DefaultEndpoint = "localhost:4317"

// Settings selects whether and where spans are exported.
type Settings struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
	Version     string
}

// Shutdown flushes and stops the exporter.
type Shutdown func(context.Context) error

func noop(context.Context) error { return nil }

// Init installs a global tracer provider exporting over OTLP/gRPC. When
// tracing is disabled the global no-op provider stays in place and the
// returned shutdown does nothing.
func Init(ctx context.Context, s Settings) (Shutdown, error) {
	if !s.Enabled {
		return noop, nil
	}
	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	exp, err := otlptracegrpc.New(
		ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return noop, fmt.Errorf("telemetry: create otlp grpc exporter: %w", err)
	}
	tp, err := NewProvider(ctx, s, sdktrace.WithBatcher(exp, sdktrace.WithBatchTimeout(2*time.Second)))
	if err != nil {
		return noop, err
	}
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(Propagator())
	return tp.Shutdown, nil
}

// NewProvider builds a tracer provider carrying the service resource. Tests
// pass a span recorder; Init passes the OTLP batcher.
func NewProvider(ctx context.Context, s Settings, opts ...sdktrace.TracerProviderOption) (*sdktrace.TracerProvider, error) {
	name := s.ServiceName
	if name == "" {
		name = "hiremind-client"
	}
	attrs := []resource.Option{resource.WithAttributes(semconv.ServiceName(name))}
	if s.Version != "" {
		attrs = append(attrs, resource.WithAttributes(semconv.ServiceVersion(s.Version)))
	}
	res, err := resource.New(ctx, attrs...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: create resource: %w", err)
	}
	opts = append(opts, sdktrace.WithResource(res))
	return sdktrace.NewTracerProvider(opts...), nil
}

// Propagator is W3C trace context plus baggage.
func Propagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
}
