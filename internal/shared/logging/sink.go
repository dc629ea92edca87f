package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

const logDirEnvVar = "TWINCAT_MCP_LOG_DIR"

// Level represents the severity of a log message.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a config string to a Level.
func ParseLevel(value string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return DEBUG, nil
	case "", "info":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("unknown log level %q", value)
	}
}

// sink is shared by every component logger; Configure swaps its writer and level.
// It never points at stdout because stdout carries the MCP stream.
type sink struct {
	mu    sync.Mutex
	out   io.Writer
	level Level
}

var (
	sinkOnce   sync.Once
	sharedSink *sink
)

func defaultSink() *sink {
	sinkOnce.Do(func() {
		sharedSink = &sink{out: os.Stderr, level: INFO}
	})
	return sharedSink
}

// Configure redirects all component loggers to out at the given minimum level.
func Configure(out io.Writer, level Level) {
	s := defaultSink()
	s.mu.Lock()
	defer s.mu.Unlock()
	if out == nil {
		out = io.Discard
	}
	s.out = out
	s.level = level
}

// DefaultLogPath returns the log file path used when none is configured.
func DefaultLogPath() (string, error) {
	if override := strings.TrimSpace(os.Getenv(logDirEnvVar)); override != "" {
		return filepath.Join(override, "twincat-mcp.log"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".twincat-mcp", "twincat-mcp.log"), nil
}

// OpenLogFile opens (or creates) path for appending, creating parent directories.
func OpenLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

type componentLogger struct {
	sink      *sink
	component string
	callID    string
}

func (l *componentLogger) Debug(format string, args ...any) { l.log(DEBUG, format, args...) }
func (l *componentLogger) Info(format string, args ...any)  { l.log(INFO, format, args...) }
func (l *componentLogger) Warn(format string, args ...any)  { l.log(WARN, format, args...) }
func (l *componentLogger) Error(format string, args ...any) { l.log(ERROR, format, args...) }

func (l *componentLogger) log(level Level, format string, args ...any) {
	s := l.sink
	s.mu.Lock()
	defer s.mu.Unlock()
	if level < s.level || s.out == nil {
		return
	}

	_, file, line, ok := runtime.Caller(2)
	if ok {
		file = filepath.Base(file)
	} else {
		file = "???"
		line = 0
	}

	// Format: 2025-09-30 12:34:56 [INFO] [Component] [call_id=...] file.go:123 - Message
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	component := l.component
	if component == "" {
		component = "twincat-mcp"
	}
	message := fmt.Sprintf(format, args...)

	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] [%s] ", timestamp, level, component)
	if l.callID != "" {
		fmt.Fprintf(&b, "[call_id=%s] ", l.callID)
	}
	fmt.Fprintf(&b, "%s:%d - %s\n", file, line, message)
	_, _ = io.WriteString(s.out, b.String())
}
