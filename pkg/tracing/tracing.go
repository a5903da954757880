// Package tracing installs an OTLP/HTTP trace exporter as the global
// OpenTelemetry provider.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// ServiceName is reported as service.name on every span.
const ServiceName = "framegrab"

// InitTracer exports spans to endpoint, e.g. http://localhost:4318/v1/traces.
// The caller must Shutdown the provider to flush pending spans.
func InitTracer(ctx context.Context, endpoint, version string) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(endpoint),
	)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	tp := NewProvider(sdktrace.WithBatcher(exporter), version)
	otel.SetTracerProvider(tp)
	return tp, nil
}

// NewProvider builds a provider carrying the framegrab resource attributes.
func NewProvider(processor sdktrace.TracerProviderOption, version string) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(
		processor,
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(ServiceName),
			semconv.ServiceVersionKey.String(version),
		)),
	)
}
