package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"twincat-mcp/internal/domain/result"
	errs "twincat-mcp/internal/shared/errors"
	"twincat-mcp/internal/shared/logging"
	"twincat-mcp/internal/shared/utils/id"
)

const (
	// DefaultTimeout bounds a single TcAutomation.exe run.
	DefaultTimeout = 5 * time.Minute

	defaultWaitDelay = 2 * time.Second
)

// Options configures a Bridge.
type Options struct {
	Timeout time.Duration
	// WaitDelay bounds how long output pipes are drained after the process
	// has been killed or has exited.
	WaitDelay time.Duration
	Logger    logging.Logger
}

// Bridge runs one TcAutomation.exe command per call and turns whatever
// happens into a result envelope. It never returns an error or panics.
type Bridge struct {
	resolver  Resolver
	timeout   time.Duration
	waitDelay time.Duration
	logger    logging.Logger
}

// NewBridge creates a bridge that resolves the executable through resolver.
func NewBridge(resolver Resolver, opts Options) *Bridge {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	waitDelay := opts.WaitDelay
	if waitDelay <= 0 {
		waitDelay = defaultWaitDelay
	}
	logger := opts.Logger
	if logging.IsNil(logger) {
		logger = logging.NewComponentLogger("ProcessBridge")
	}
	return &Bridge{
		resolver:  resolver,
		timeout:   timeout,
		waitDelay: waitDelay,
		logger:    logger,
	}
}

// Execute runs "<exe> <command> <argv...>" from the executable's directory.
func (b *Bridge) Execute(ctx context.Context, command string, argv []string) (env result.Envelope) {
	logger := logging.WithCallID(b.logger, id.CallIDFromContext(ctx))
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("bridge panic running %s: %v", command, r)
			env = result.Failure(&errs.SpawnError{Err: fmt.Errorf("panic: %v", r)})
		}
		env.Duration = time.Since(started)
	}()

	if ctx == nil {
		ctx = context.Background()
	}

	exe, err := b.resolver.Resolve()
	if err != nil {
		logger.Warn("executable lookup failed: %v", err)
		return result.Failure(err)
	}

	runCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, exe, append([]string{command}, argv...)...)
	cmd.Dir = filepath.Dir(exe)
	cmd.WaitDelay = b.waitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	configureProcessGroup(cmd)

	logger.Info("running %s %s", filepath.Base(exe), command)
	logger.Debug("argv: %q", argv)
	runErr := cmd.Run()

	exitCode := -1
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}

	switch {
	case ctx.Err() != nil:
		logger.Warn("%s cancelled after %s: %v", command, time.Since(started), ctx.Err())
		env = result.Failure(&errs.CancelledError{Err: ctx.Err()})
		env.ExitCode = exitCode
		return env
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		logger.Warn("%s timed out after %s", command, b.timeout)
		env = result.Failure(&errs.TimeoutError{Timeout: b.timeout, Err: runCtx.Err()})
		env.ExitCode = exitCode
		return env
	}

	if runErr != nil && !isExitOrDrain(runErr) {
		logger.Error("failed to start %s: %v", exe, runErr)
		return result.Failure(&errs.SpawnError{Err: runErr})
	}

	env = parseOutput(filepath.Base(exe), stdout.String(), stderr.String())
	env.ExitCode = exitCode
	if env.Kind != errs.KindNone {
		logger.Warn("%s produced unusable output (exit %d): %s", command, exitCode, truncate(env.ErrorMessage, 200))
	} else {
		logger.Info("%s finished: success=%t exit=%d", command, env.Success, exitCode)
	}
	return env
}

// parseOutput classifies captured output. A non-zero exit code alone is not
// a failure; the JSON document decides.
func parseOutput(exeName, stdout, stderr string) result.Envelope {
	if strings.TrimSpace(stdout) == "" {
		return result.Failure(&errs.ProcessOutputError{Executable: exeName, Stderr: stderr})
	}
	env, err := result.Decode([]byte(stdout))
	if err != nil {
		return result.Failure(&errs.ProcessOutputError{
			Executable: exeName,
			Stdout:     stdout,
			Stderr:     stderr,
			Err:        err,
		})
	}
	return env
}

// isExitOrDrain reports errors that still leave usable captured output.
func isExitOrDrain(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr) || errors.Is(err, exec.ErrWaitDelay)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
