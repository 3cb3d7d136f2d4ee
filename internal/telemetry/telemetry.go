// Package telemetry sets up trace export for the engine. The run driver
// opens a span per run and per node through the global tracer provider;
// everything countable goes through the Prometheus collector instead, so
// only the OTLP trace pipeline lives here. With tracing disabled the
// global provider stays noop and nothing connects anywhere.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/zap"

	"github.com/flowgrid-io/flowgrid/config"
)

// Tracing owns the trace pipeline. A disabled configuration yields a
// Tracing with no provider; Close is then a no-op.
type Tracing struct {
	provider *sdktrace.TracerProvider
}

// Setup wires the OTLP gRPC trace exporter and installs it as the global
// tracer provider.
func Setup(cfg config.TelemetryConfig, logger *zap.Logger) (*Tracing, error) {
	if !cfg.Enabled {
		logger.Info("tracing disabled")
		return &Tracing{}, nil
	}

	ctx := context.Background()
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(cfg.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("build trace resource: %w", err)
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("dial otlp collector: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("tracing enabled",
		zap.String("otlp_endpoint", cfg.OTLPEndpoint),
		zap.String("service_name", cfg.ServiceName),
	)
	return &Tracing{provider: provider}, nil
}

// Close flushes buffered spans and shuts the exporter down.
func (t *Tracing) Close(ctx context.Context) error {
	if t == nil || t.provider == nil {
		return nil
	}
	if err := t.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("flush trace provider: %w", err)
	}
	return nil
}
