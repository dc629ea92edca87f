package observability

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"twincat-mcp/internal/shared/async"
	"twincat-mcp/internal/shared/logging"
)

const meterName = "twincat-mcp"

// MetricsCollector records tool calls and TcAutomation.exe runs. A zero
// value (metrics disabled) accepts every Record call and does nothing.
type MetricsCollector struct {
	registry *promclient.Registry
	provider *sdkmetric.MeterProvider

	// Tool metrics
	toolExecutions metric.Int64Counter
	toolDuration   metric.Float64Histogram

	// Process metrics
	processRuns     metric.Int64Counter
	processDuration metric.Float64Histogram
	processInflight metric.Int64UpDownCounter

	// Server for Prometheus scraping
	serverMu         sync.Mutex
	prometheusServer *http.Server
	prometheusAddr   string

	// Optional callbacks used by tests to assert instrumentation behavior
	testHooks MetricsTestHooks
}

// MetricsTestHooks exposes callbacks that tests can use to assert
// instrumentation without scraping the exporter.
type MetricsTestHooks struct {
	ToolExecution func(toolName, status string, duration time.Duration)
	ProcessRun    func(command, outcome string, exitCode int, duration time.Duration)
}

// SetTestHooks registers callbacks that are invoked whenever the matching
// metric is recorded.
func (m *MetricsCollector) SetTestHooks(hooks MetricsTestHooks) {
	if m == nil {
		return
	}
	m.testHooks = hooks
}

// NewMetricsCollector creates a metrics collector backed by its own
// Prometheus registry. The scrape server is started only when a port is set.
func NewMetricsCollector(config MetricsConfig) (*MetricsCollector, error) {
	if !config.Enabled {
		return &MetricsCollector{}, nil
	}

	registry := promclient.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter(meterName)

	collector := &MetricsCollector{registry: registry, provider: provider}

	collector.toolExecutions, err = meter.Int64Counter(
		"twincat.tool.executions",
		metric.WithDescription("Total number of tool calls"),
		metric.WithUnit("{execution}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool_executions counter: %w", err)
	}

	collector.toolDuration, err = meter.Float64Histogram(
		"twincat.tool.duration",
		metric.WithDescription("Tool call duration in seconds, including queueing"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool_duration histogram: %w", err)
	}

	collector.processRuns, err = meter.Int64Counter(
		"twincat.process.runs",
		metric.WithDescription("Total number of TcAutomation.exe runs by outcome"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create process_runs counter: %w", err)
	}

	collector.processDuration, err = meter.Float64Histogram(
		"twincat.process.duration",
		metric.WithDescription("TcAutomation.exe wall-clock run time in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.5, 1, 5, 15, 30, 60, 120, 180, 240, 300),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create process_duration histogram: %w", err)
	}

	collector.processInflight, err = meter.Int64UpDownCounter(
		"twincat.process.inflight",
		metric.WithDescription("TcAutomation.exe processes currently running"),
		metric.WithUnit("{process}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create process_inflight gauge: %w", err)
	}

	if config.PrometheusPort > 0 {
		if err := collector.StartPrometheusServer(config.PrometheusPort); err != nil {
			_ = provider.Shutdown(context.Background())
			return nil, fmt.Errorf("failed to start prometheus server: %w", err)
		}
	}

	return collector, nil
}

// Handler serves the collector's registry in Prometheus text format.
func (m *MetricsCollector) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartPrometheusServer binds port and serves /metrics in the background.
// Port 0 picks a free port. A collector serves at most one listener.
func (m *MetricsCollector) StartPrometheusServer(port int) error {
	m.serverMu.Lock()
	defer m.serverMu.Unlock()
	if m.prometheusServer != nil {
		return fmt.Errorf("prometheus server already listening on %s", m.prometheusAddr)
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("listen on :%d: %w", port, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	m.prometheusServer = server
	m.prometheusAddr = listener.Addr().String()

	logger := logging.NewComponentLogger("PrometheusMetrics")
	addr := m.prometheusAddr
	async.Go(logger, "observability.prometheus", nil, func() {
		logger.Info("Prometheus metrics server listening on %s", addr)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Prometheus server error: %v", err)
		}
	})

	return nil
}

// Addr returns the scrape server's listen address, or "" when it is not running.
func (m *MetricsCollector) Addr() string {
	if m == nil {
		return ""
	}
	m.serverMu.Lock()
	defer m.serverMu.Unlock()
	return m.prometheusAddr
}

// Shutdown stops the scrape server and flushes the meter provider.
func (m *MetricsCollector) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	var errs []error

	m.serverMu.Lock()
	server := m.prometheusServer
	m.prometheusServer = nil
	m.prometheusAddr = ""
	m.serverMu.Unlock()
	if server != nil {
		errs = append(errs, server.Shutdown(ctx))
	}
	if m.provider != nil {
		errs = append(errs, m.provider.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// RecordToolExecution records a tool call
func (m *MetricsCollector) RecordToolExecution(ctx context.Context, toolName string, status string, duration time.Duration) {
	if m == nil {
		return
	}
	if m.testHooks.ToolExecution != nil {
		m.testHooks.ToolExecution(toolName, status, duration)
	}
	if m.toolExecutions == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("tool_name", toolName),
		attribute.String("status", status),
	}

	m.toolExecutions.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("tool_name", toolName)))
}

// ProcessStarted increments the in-flight process gauge.
func (m *MetricsCollector) ProcessStarted(ctx context.Context, command string) {
	if m == nil || m.processInflight == nil {
		return
	}
	m.processInflight.Add(ctx, 1, metric.WithAttributes(attribute.String("command", command)))
}

// RecordProcessRun records a finished TcAutomation.exe run and decrements the in-flight gauge.
func (m *MetricsCollector) RecordProcessRun(ctx context.Context, command, outcome string, exitCode int, duration time.Duration) {
	if m == nil {
		return
	}
	if m.testHooks.ProcessRun != nil {
		m.testHooks.ProcessRun(command, outcome, exitCode, duration)
	}
	if m.processRuns == nil {
		return
	}

	cmdAttr := attribute.String("command", command)
	m.processInflight.Add(ctx, -1, metric.WithAttributes(cmdAttr))
	m.processRuns.Add(ctx, 1, metric.WithAttributes(cmdAttr, attribute.String("outcome", outcome)))
	m.processDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(cmdAttr))
}
