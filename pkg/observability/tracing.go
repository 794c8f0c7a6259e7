// Package observability provides opentelemetry tracing for connector operations
package observability

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	initOnce sync.Once
)

// TracingConfig contains tracing configuration
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	SamplingRate   float64
}

// DefaultTracingConfig returns production tracing defaults
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName:    "conduit",
		ServiceVersion: "1.0.0",
		Environment:    "production",
		SamplingRate:   0.1,
	}
}

// Initialize sets up the tracer provider with a stdout exporter
func Initialize(config TracingConfig) error {
	var err error

	initOnce.Do(func() {
		var exporter *stdouttrace.Exporter
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			err = fmt.Errorf("failed to create trace exporter: %w", err)
			return
		}

		res := sdkresource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
			attribute.String("environment", config.Environment),
		)

		provider = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.TraceIDRatioBased(config.SamplingRate)),
		)

		otel.SetTracerProvider(provider)
		tracer = provider.Tracer(config.ServiceName)
	})

	return err
}

// Tracer returns the global tracer, falling back to the otel default when
// Initialize has not run
func Tracer() trace.Tracer {
	if tracer == nil {
		return otel.Tracer("conduit")
	}
	return tracer
}

// StartOperation starts a span around one connector operation
func StartOperation(ctx context.Context, platform, operation string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, fmt.Sprintf("connector.%s.%s", platform, operation),
		trace.WithAttributes(
			attribute.String("connector.platform", platform),
			attribute.String("connector.operation", operation),
		))
}

// EndOperation closes an operation span, recording the outcome
func EndOperation(span trace.Span, success bool, errMessage string) {
	span.SetAttributes(attribute.Bool("connector.success", success))
	if !success {
		span.SetStatus(codes.Error, errMessage)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// Shutdown flushes and stops the tracer provider
func Shutdown(ctx context.Context) error {
	if provider == nil {
		return nil
	}
	return provider.Shutdown(ctx)
}
