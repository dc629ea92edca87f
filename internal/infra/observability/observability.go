package observability

import (
	"context"
	"errors"

	"twincat-mcp/internal/shared/logging"
)

// Observability manages all observability components
type Observability struct {
	Metrics *MetricsCollector
	Tracer  *TracerProvider
	logger  logging.Logger
	config  Config
}

// New initializes metrics and tracing. A component that fails to start is
// logged and replaced by its disabled form.
func New(config Config, logger logging.Logger) *Observability {
	logger = logging.OrNop(logger)

	metrics, err := NewMetricsCollector(config.Metrics)
	if err != nil {
		logger.Error("Failed to initialize metrics: %v", err)
		metrics = &MetricsCollector{}
	}

	tracer, err := NewTracerProvider(config.Tracing)
	if err != nil {
		logger.Error("Failed to initialize tracing: %v", err)
		tracer = &TracerProvider{}
	}

	logger.Info("Observability initialized: metrics_enabled=%t tracing_enabled=%t",
		config.Metrics.Enabled, config.Tracing.Enabled)

	return &Observability{
		Metrics: metrics,
		Tracer:  tracer,
		logger:  logger,
		config:  config,
	}
}

// Shutdown gracefully shuts down all observability components
func (o *Observability) Shutdown(ctx context.Context) error {
	if o == nil {
		return nil
	}
	return errors.Join(o.Metrics.Shutdown(ctx), o.Tracer.Shutdown(ctx))
}

// Config returns the current configuration
func (o *Observability) Config() Config {
	return o.config
}
