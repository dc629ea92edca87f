package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind classifies a failure so callers can branch on it without string matching.
type Kind int

const (
	KindNone Kind = iota
	KindNotFound
	KindValidation
	KindUnknownTool
	KindTimeout
	KindProcessOutput
	KindSpawn
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindUnknownTool:
		return "unknown_tool"
	case KindTimeout:
		return "timeout"
	case KindProcessOutput:
		return "process_output"
	case KindSpawn:
		return "spawn"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

const buildHint = "Please build the TcAutomation project first:\n  .\\scripts\\build.ps1"

// NotFoundError reports that the external executable was absent at every candidate path.
type NotFoundError struct {
	Executable string
	Searched   []string
}

func (e *NotFoundError) Error() string {
	name := e.Executable
	if strings.TrimSpace(name) == "" {
		name = "executable"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s not found. Searched paths:\n", name)
	for _, path := range e.Searched {
		fmt.Fprintf(&b, "  - %s\n", path)
	}
	b.WriteString("\n")
	b.WriteString(buildHint)
	return b.String()
}

// ValidationError reports a tool argument that is missing or has the wrong type.
type ValidationError struct {
	Tool     string
	Property string
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("argument %q %s", e.Property, e.Reason)
	}
	return fmt.Sprintf("missing required argument %q", e.Property)
}

// UnknownToolError reports a tool name the catalog does not know.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return "Unknown tool: " + e.Name
}

// TimeoutError reports that the external process exceeded its time budget.
type TimeoutError struct {
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	return "Command timed out after " + HumanizeDuration(e.Timeout)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// ProcessOutputError reports stdout that was empty or not a single JSON object.
type ProcessOutputError struct {
	Executable string
	Stdout     string
	Stderr     string
	Err        error
}

func (e *ProcessOutputError) Error() string {
	if strings.TrimSpace(e.Stdout) != "" {
		return "Invalid JSON output: " + e.Stdout
	}
	if e.Stderr != "" {
		return e.Stderr
	}
	name := e.Executable
	if name == "" {
		name = "executable"
	}
	return "No output from " + name
}

func (e *ProcessOutputError) Unwrap() error {
	return e.Err
}

// InvalidJSON reports whether the error came from unparseable stdout rather than empty stdout.
func (e *ProcessOutputError) InvalidJSON() bool {
	return strings.TrimSpace(e.Stdout) != ""
}

// SpawnError reports that the process could not be started.
type SpawnError struct {
	Err error
}

func (e *SpawnError) Error() string {
	if e.Err == nil {
		return "failed to start process"
	}
	return e.Err.Error()
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// CancelledError reports that the caller abandoned the call before the process finished.
type CancelledError struct {
	Err error
}

func (e *CancelledError) Error() string {
	if e.Err == nil {
		return "Command cancelled"
	}
	return "Command cancelled: " + e.Err.Error()
}

func (e *CancelledError) Unwrap() error {
	return e.Err
}

// KindOf classifies err. Unclassified non-nil errors are reported as spawn failures
// because they can only originate from process setup.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}

	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		return KindNotFound
	}
	var validation *ValidationError
	if errors.As(err, &validation) {
		return KindValidation
	}
	var unknown *UnknownToolError
	if errors.As(err, &unknown) {
		return KindUnknownTool
	}
	var timeout *TimeoutError
	if errors.As(err, &timeout) {
		return KindTimeout
	}
	var output *ProcessOutputError
	if errors.As(err, &output) {
		return KindProcessOutput
	}
	var cancelled *CancelledError
	if errors.As(err, &cancelled) {
		return KindCancelled
	}
	return KindSpawn
}

// HumanizeDuration renders whole minutes as "N minutes" and anything else as a Go duration.
func HumanizeDuration(d time.Duration) string {
	if d > 0 && d%time.Minute == 0 {
		minutes := int(d / time.Minute)
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	return d.String()
}
