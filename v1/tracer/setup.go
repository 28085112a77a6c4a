package tracer

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"

	"github.com/Aleph-Alpha/workbench/v1/logger"
)

const instrumentationName = "github.com/Aleph-Alpha/workbench"

// Tracer wraps an OpenTelemetry TracerProvider. Spans are created around
// connection attempts, query executions and row mutations.
//
// A nil *Tracer is valid and produces no-op spans, so components can be
// constructed without tracing.
type Tracer struct {
	tracer *trace.TracerProvider
	logger logger.Logger
}

// NewClient builds the tracer provider and installs it as the global provider.
// With EnableExport set, spans are batched to an OTLP HTTP exporter.
//
// Example:
//
//	t, err := tracer.NewClient(tracer.Config{ServiceName: "workbench"}, log)
//	ctx, span := t.StartSpan(ctx, "query.execute")
//	defer span.End()
func NewClient(cfg Config, log logger.Logger) (*Tracer, error) {
	var options []trace.TracerProviderOption

	if cfg.EnableExport {
		client := otlptracehttp.NewClient()
		exporter, err := otlptrace.New(context.Background(), client)
		if err != nil {
			log.Error("cannot initiate tracer exporter", err, nil)
			return nil, err
		}
		options = append(options, trace.WithBatcher(exporter))
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "workbench"
	}

	options = append(options, trace.WithResource(resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.DeploymentEnvironment(cfg.AppEnv),
		attribute.String("environment", cfg.AppEnv),
	)))

	tp := trace.NewTracerProvider(options...)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	log.Debug("tracer initialized", nil, map[string]interface{}{
		"service": serviceName,
		"export":  cfg.EnableExport,
	})

	return &Tracer{tracer: tp, logger: log}, nil
}

// NewWithProvider wraps an existing provider without touching global state.
func NewWithProvider(tp *trace.TracerProvider, log logger.Logger) *Tracer {
	return &Tracer{tracer: tp, logger: log}
}

// Shutdown flushes pending spans and releases the provider.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t == nil || t.tracer == nil {
		return nil
	}
	return t.tracer.Shutdown(ctx)
}
