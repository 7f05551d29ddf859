package observability

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/gearstack/partsmarket-backend/internal/platform/envutil"
	"github.com/gearstack/partsmarket-backend/internal/platform/logger"
)

// SetupTracing wires the global tracer provider. OTEL_EXPORTER=otlp sends
// spans to OTEL_EXPORTER_OTLP_ENDPOINT; anything else logs to stdout in
// dev and disables sampling noise in prod.
func SetupTracing(ctx context.Context, log *logger.Logger, serviceName string) (func(context.Context) error, error) {
	exporterKind := strings.ToLower(envutil.GetEnv("OTEL_EXPORTER", "stdout", log))

	var exporter sdktrace.SpanExporter
	var err error
	switch exporterKind {
	case "otlp":
		endpoint := envutil.GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318", log)
		exporter, err = otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(endpoint),
			otlptracehttp.WithInsecure(),
		)
	default:
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
	if err != nil {
		return nil, fmt.Errorf("init trace exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
	))
	if err != nil {
		return nil, fmt.Errorf("build otel resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	return provider.Shutdown, nil
}
