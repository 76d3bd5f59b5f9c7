package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "ctxmem"

// TracingOptions configures the OTLP trace exporter.
type TracingOptions struct {
	Endpoint string // host:port of the OTLP endpoint
	URLPath  string // path for the OTLP traces endpoint
	APIKey   string // sent as a bearer Authorization header
	Insecure bool
}

type otelErrorHandler struct {
	logger *Logger
}

func (h otelErrorHandler) Handle(err error) {
	h.logger.Error("otel error", "error", err)
}

// InitTracing installs a global tracer provider exporting over OTLP/HTTP.
// The returned shutdown func flushes pending spans.
func InitTracing(ctx context.Context, opts TracingOptions, logger *Logger) (func(context.Context) error, error) {
	otel.SetErrorHandler(otelErrorHandler{logger: logger})

	var exporterOpts []otlptracehttp.Option
	if opts.Insecure {
		exporterOpts = append(exporterOpts, otlptracehttp.WithInsecure())
	}
	if opts.Endpoint != "" {
		exporterOpts = append(exporterOpts, otlptracehttp.WithEndpoint(opts.Endpoint))
	}
	if opts.URLPath != "" {
		exporterOpts = append(exporterOpts, otlptracehttp.WithURLPath(opts.URLPath))
	}
	if opts.APIKey != "" {
		exporterOpts = append(exporterOpts, otlptracehttp.WithHeaders(map[string]string{
			"Authorization": "Bearer " + opts.APIKey,
		}))
	}

	exporter, err := otlptracehttp.New(ctx, exporterOpts...)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(tracerName)),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	logger.Debug("tracing enabled", "endpoint", opts.Endpoint, "url_path", opts.URLPath)
	return tp.Shutdown, nil
}

// Tracer returns the ctxmem tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// TraceFields returns trace_id/span_id for the span active in ctx, or nil.
func TraceFields(ctx context.Context) map[string]interface{} {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}
	return map[string]interface{}{
		"trace_id": sc.TraceID().String(),
		"span_id":  sc.SpanID().String(),
	}
}

// WithTrace returns a logger enriched with trace fields from the context.
func (l *Logger) WithTrace(ctx context.Context) *Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return l
	}
	return l.With("trace_id", sc.TraceID().String(), "span_id", sc.SpanID().String())
}

