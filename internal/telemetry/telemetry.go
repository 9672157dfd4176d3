// Package telemetry installs the OpenTelemetry tracer provider that exports
// the bot's spans over OTLP.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config selects the OTLP trace endpoint. The gRPC endpoint wins when both
// are set; with neither set tracing stays disabled.
type Config struct {
	ServiceName  string
	GRPCEndpoint string
	HTTPEndpoint string
}

// Enabled reports whether an exporter endpoint is configured.
func (c Config) Enabled() bool {
	return c.GRPCEndpoint != "" || c.HTTPEndpoint != ""
}

// Telemetry owns the installed tracer provider.
type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
}

// Shutdown flushes pending spans and stops the exporter.
func (t Telemetry) Shutdown(ctx context.Context) error {
	if t.TracerProvider == nil {
		return nil
	}
	if err := t.TracerProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown tracer provider: %w", err)
	}
	return nil
}

// Setup creates the exporter for cfg and installs it as the global tracer
// provider. A disabled config returns a Telemetry whose Shutdown is a no-op.
func Setup(ctx context.Context, cfg Config, log *slog.Logger) (Telemetry, error) {
	if !cfg.Enabled() {
		log.Debug("tracing disabled")
		return Telemetry{}, nil
	}

	exporter, err := newExporter(ctx, cfg, log)
	if err != nil {
		return Telemetry{}, err
	}
	tp, err := NewTracerProvider(cfg.ServiceName, sdktrace.WithBatcher(exporter))
	if err != nil {
		return Telemetry{}, err
	}
	otel.SetTracerProvider(tp)

	return Telemetry{TracerProvider: tp}, nil
}

// NewTracerProvider builds a provider tagged with serviceName. Options add
// span processors or exporters.
func NewTracerProvider(serviceName string, opts ...sdktrace.TracerProviderOption) (*sdktrace.TracerProvider, error) {
	r, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build resource: %w", err)
	}
	opts = append(opts, sdktrace.WithResource(r))
	return sdktrace.NewTracerProvider(opts...), nil
}

func newExporter(ctx context.Context, c Config, log *slog.Logger) (sdktrace.SpanExporter, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if c.GRPCEndpoint != "" {
		log.Info("tracer export initialized", "type", "grpc", "endpoint", c.GRPCEndpoint)
		exp, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpointURL(c.GRPCEndpoint))
		if err != nil {
			return nil, fmt.Errorf("create grpc trace exporter: %w", err)
		}
		return exp, nil
	}

	log.Info("tracer export initialized", "type", "http", "endpoint", c.HTTPEndpoint)
	exp, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(c.HTTPEndpoint))
	if err != nil {
		return nil, fmt.Errorf("create http trace exporter: %w", err)
	}
	return exp, nil
}
