// Package dispatch routes validated tool calls through the process bridge and
// renders the outcome.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"twincat-mcp/internal/domain/result"
	"twincat-mcp/internal/shared/async"
	errs "twincat-mcp/internal/shared/errors"
	"twincat-mcp/internal/shared/logging"
	"twincat-mcp/internal/shared/utils/id"
	"twincat-mcp/internal/tools/catalog"
)

// DefaultMaxConcurrent bounds concurrent executable runs across solutions.
const DefaultMaxConcurrent = 4

// Bridge executes one TcAutomation.exe command.
type Bridge interface {
	Execute(ctx context.Context, command string, argv []string) result.Envelope
}

// CallRecorder receives one observation per dispatched call.
type CallRecorder interface {
	RecordToolExecution(ctx context.Context, toolName, status string, duration time.Duration)
}

// Result is the text returned to the client for one tool call.
type Result struct {
	Text    string
	IsError bool
	Kind    errs.Kind
	CallID  string
}

// Options configures a Dispatcher.
type Options struct {
	MaxConcurrent int64
	Routes        map[string]Route
	Recorder      CallRecorder
	Logger        logging.Logger
}

// Dispatcher validates tool calls, serializes them per solution and runs them.
type Dispatcher struct {
	catalog  *catalog.Catalog
	bridge   Bridge
	routes   map[string]Route
	locks    *keyedLocker
	sem      *semaphore.Weighted
	recorder CallRecorder
	logger   logging.Logger
}

// New builds a dispatcher. Every catalog tool must have a route.
func New(cat *catalog.Catalog, bridge Bridge, opts Options) (*Dispatcher, error) {
	if cat == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if bridge == nil {
		return nil, fmt.Errorf("bridge is required")
	}
	routes := opts.Routes
	if routes == nil {
		routes = DefaultRoutes()
	}
	for _, tool := range cat.List() {
		route, ok := routes[tool.Name]
		if !ok || route.Build == nil || route.Render == nil || route.Command == "" {
			return nil, fmt.Errorf("no complete route for tool %q", tool.Name)
		}
	}
	logger := opts.Logger
	if logging.IsNil(logger) {
		logger = logging.NewComponentLogger("Dispatcher")
	}
	limit := opts.MaxConcurrent
	if limit <= 0 {
		limit = DefaultMaxConcurrent
	}
	return &Dispatcher{
		catalog:  cat,
		bridge:   bridge,
		routes:   routes,
		locks:    newKeyedLocker(),
		sem:      semaphore.NewWeighted(limit),
		recorder: opts.Recorder,
		logger:   logger,
	}, nil
}

// Tools returns the advertised tool descriptors.
func (d *Dispatcher) Tools() []catalog.ToolDescriptor {
	return d.catalog.List()
}

// Dispatch runs the named tool. It never returns an error: every failure is
// reported as text with IsError set.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args map[string]any) Result {
	if ctx == nil {
		ctx = context.Background()
	}
	callID := id.CallIDFromContext(ctx)
	if callID == "" {
		callID = id.NewCallID()
		ctx = id.WithCallID(ctx, callID)
	}
	logger := logging.WithCallID(d.logger, callID)
	started := time.Now()

	if _, ok := d.catalog.Lookup(name); !ok {
		err := &errs.UnknownToolError{Name: name}
		logger.Warn("rejected call: %v", err)
		// Unknown names are not used as metric labels.
		return d.finish(ctx, "unknown", started, Result{Text: err.Error(), IsError: true, Kind: errs.KindUnknownTool, CallID: callID})
	}

	validated, err := d.catalog.Validate(name, args)
	if err != nil {
		logger.Warn("%s: validation failed: %v", name, err)
		return d.finish(ctx, name, started, Result{
			Text:    "❌ Validation error: " + err.Error(),
			IsError: true,
			Kind:    errs.KindOf(err),
			CallID:  callID,
		})
	}
	route := d.routes[name]

	env := d.execute(ctx, route, validated, logger)
	res := Result{IsError: !env.Success, Kind: env.Kind, CallID: callID}
	if err := async.Safely("render "+name, func() { res.Text = route.Render(validated, env) }); err != nil {
		logger.Error("%v", err)
		res.Text = "❌ Failed to render result: " + err.Error()
		res.IsError = true
	}
	return d.finish(ctx, name, started, res)
}

// execute waits for the solution's lock and a concurrency slot, then runs the route.
func (d *Dispatcher) execute(ctx context.Context, route Route, args catalog.Arguments, logger logging.Logger) result.Envelope {
	key := solutionKey(args.String(catalog.ArgSolutionPath))
	release, err := d.locks.Acquire(ctx, key)
	if err != nil {
		logger.Warn("gave up waiting for solution lock: %v", err)
		return result.Failure(&errs.CancelledError{Err: err})
	}
	defer release()

	if err := d.sem.Acquire(ctx, 1); err != nil {
		logger.Warn("gave up waiting for a run slot: %v", err)
		return result.Failure(&errs.CancelledError{Err: err})
	}
	defer d.sem.Release(1)

	tokens := route.Build(args)
	logger.Debug("executing %s %q", route.Command, tokens)
	return d.bridge.Execute(ctx, route.Command, tokens)
}

func (d *Dispatcher) finish(ctx context.Context, name string, started time.Time, res Result) Result {
	elapsed := time.Since(started)
	status := "success"
	if res.IsError {
		status = "error"
		if res.Kind != errs.KindNone {
			status = res.Kind.String()
		}
	}
	if d.recorder != nil {
		d.recorder.RecordToolExecution(ctx, name, status, elapsed)
	}
	logging.WithCallID(d.logger, res.CallID).Info("%s finished: status=%s duration=%s", name, status, elapsed)
	return res
}
