package observability

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"twincat-mcp/internal/shared/utils/id"
)

const tracerName = "twincat-mcp"

// SpanProcessRun covers one TcAutomation.exe run.
const SpanProcessRun = "twincat.process.run"

// Span attribute keys.
const (
	AttrCallID   = "twincat.call_id"
	AttrCommand  = "twincat.command"
	AttrArgCount = "twincat.argc"
	AttrExitCode = "twincat.exit_code"
	AttrOutcome  = "twincat.outcome"
	AttrSuccess  = "twincat.success"
)

type spanExporterFactory func(ctx context.Context, config TracingConfig) (sdktrace.SpanExporter, error)

// spanExporters maps tracing.exporter values to their constructors. An empty
// exporter name selects OTLP.
var spanExporters = map[string]spanExporterFactory{
	"otlp": func(ctx context.Context, config TracingConfig) (sdktrace.SpanExporter, error) {
		endpoint := firstNonEmpty(config.OTLPEndpoint, DefaultConfig().Tracing.OTLPEndpoint)
		return otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure())
	},
	"zipkin": func(_ context.Context, config TracingConfig) (sdktrace.SpanExporter, error) {
		return zipkin.New(firstNonEmpty(config.ZipkinEndpoint, DefaultConfig().Tracing.ZipkinEndpoint))
	},
}

// TracerProvider hands out spans for process runs. Disabled tracing yields
// a noop tracer and a nil SDK provider.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

func NewTracerProvider(config TracingConfig) (*TracerProvider, error) {
	if !config.Enabled {
		return &TracerProvider{tracer: noop.NewTracerProvider().Tracer(tracerName)}, nil
	}

	name := strings.ToLower(strings.TrimSpace(firstNonEmpty(config.Exporter, "otlp")))
	factory, ok := spanExporters[name]
	if !ok {
		return nil, fmt.Errorf("unsupported exporter: %s (want one of %s)", config.Exporter, strings.Join(exporterNames(), ", "))
	}
	exporter, err := factory(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("create %s exporter: %w", name, err)
	}

	ratio := config.SampleRate
	if ratio <= 0 || ratio > 1 {
		ratio = 1
	}
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(semconv.SchemaURL,
			semconv.ServiceName(firstNonEmpty(config.ServiceName, tracerName)),
			semconv.ServiceVersion(config.ServiceVersion),
		)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	)
	return &TracerProvider{provider: provider, tracer: provider.Tracer(tracerName)}, nil
}

// Shutdown flushes pending spans.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp == nil || tp.provider == nil {
		return nil
	}
	return tp.provider.Shutdown(ctx)
}

// StartSpan starts a span tagged with the call id carried by ctx.
func (tp *TracerProvider) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if callID := id.CallIDFromContext(ctx); callID != "" {
		attrs = append(attrs, attribute.String(AttrCallID, callID))
	}
	tracer := noop.NewTracerProvider().Tracer(tracerName)
	if tp != nil && tp.tracer != nil {
		tracer = tp.tracer
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func exporterNames() []string {
	names := make([]string, 0, len(spanExporters))
	for name := range spanExporters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
