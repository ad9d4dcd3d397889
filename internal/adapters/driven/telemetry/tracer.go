// Package telemetry exports traces over OTLP and records pipeline metrics
// with OpenTelemetry instruments.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/custodia-labs/plataformas/internal/logger"
)

// DefaultSampleRatio is used when the configured ratio is outside (0, 1].
const DefaultSampleRatio = 1.0

// TracerConfig configures trace export.
type TracerConfig struct {
	ServiceName string
	Version     string

	// Endpoint is the OTLP gRPC collector address (host:port).
	// Empty disables export.
	Endpoint string

	// SampleRatio is the share of root traces kept.
	SampleRatio float64
}

// InitTracer installs a global tracer provider exporting to cfg.Endpoint.
// The returned function flushes and shuts the provider down. With no
// endpoint nothing is installed and the shutdown is a no-op.
func InitTracer(ctx context.Context, cfg TracerConfig) (func(context.Context) error, error) {
	if cfg.Endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	tp := NewTracerProvider(cfg, sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	logger.Debug("Tracing to %s (sample ratio %.2f)", cfg.Endpoint, sampleRatio(cfg.SampleRatio))

	return tp.Shutdown, nil
}

// NewTracerProvider builds a provider with the service resource and a
// parent-based ratio sampler. Extra options add span processors.
func NewTracerProvider(cfg TracerConfig, opts ...sdktrace.TracerProviderOption) *sdktrace.TracerProvider {
	res := resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.Version),
	)
	base := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRatio(cfg.SampleRatio)))),
	}
	return sdktrace.NewTracerProvider(append(base, opts...)...)
}

func sampleRatio(r float64) float64 {
	if r <= 0 || r > 1 {
		return DefaultSampleRatio
	}
	return r
}
