package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"twincat-mcp/internal/domain/result"
	errs "twincat-mcp/internal/shared/errors"
)

// Executor runs one TcAutomation.exe command.
type Executor interface {
	Execute(ctx context.Context, command string, argv []string) result.Envelope
}

// InstrumentedBridge wraps an Executor with a span and process metrics.
type InstrumentedBridge struct {
	inner Executor
	obs   *Observability
}

// NewInstrumentedBridge creates an instrumented executor
func NewInstrumentedBridge(inner Executor, obs *Observability) *InstrumentedBridge {
	return &InstrumentedBridge{inner: inner, obs: obs}
}

// Execute implements Executor.
func (b *InstrumentedBridge) Execute(ctx context.Context, command string, argv []string) result.Envelope {
	ctx, span := b.obs.Tracer.StartSpan(ctx, SpanProcessRun,
		attribute.String(AttrCommand, command),
		attribute.Int(AttrArgCount, len(argv)),
	)
	defer span.End()

	b.obs.Metrics.ProcessStarted(ctx, command)
	start := time.Now()
	env := b.inner.Execute(ctx, command, argv)
	duration := time.Since(start)

	outcome := Outcome(env)
	span.SetAttributes(
		attribute.String(AttrOutcome, outcome),
		attribute.Int(AttrExitCode, env.ExitCode),
		attribute.Bool(AttrSuccess, env.Success),
	)
	if env.Kind != errs.KindNone {
		span.SetStatus(codes.Error, env.ErrorMessage)
	}
	b.obs.Metrics.RecordProcessRun(ctx, command, outcome, env.ExitCode, duration)
	return env
}

// Outcome labels an envelope for metrics: "success", "failure" for a
// success:false document, or the bridge failure kind.
func Outcome(env result.Envelope) string {
	switch {
	case env.Kind != errs.KindNone:
		return env.Kind.String()
	case env.Success:
		return "success"
	default:
		return "failure"
	}
}
