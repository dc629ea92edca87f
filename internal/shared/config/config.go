// Package config holds the runtime configuration of the TwinCAT MCP server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"twincat-mcp/internal/infra/observability"
	"twincat-mcp/internal/shared/logging"
)

const (
	DefaultTimeout       = 5 * time.Minute
	DefaultCacheTTL      = 30 * time.Second
	DefaultMaxConcurrent = 4
	DefaultLogLevel      = "info"

	executableName = "TcAutomation.exe"
)

// ValueSource describes where a configuration value originated from.
type ValueSource string

const (
	SourceDefault  ValueSource = "default"
	SourceFile     ValueSource = "file"
	SourceEnv      ValueSource = "environment"
	SourceOverride ValueSource = "override"
)

// Config captures user-configurable settings.
type Config struct {
	Executable    ExecutableConfig     `mapstructure:"executable" yaml:"executable"`
	Process       ProcessConfig        `mapstructure:"process" yaml:"process"`
	Dispatch      DispatchConfig       `mapstructure:"dispatch" yaml:"dispatch"`
	Log           LogConfig            `mapstructure:"log" yaml:"log"`
	Observability observability.Config `mapstructure:"observability" yaml:"observability"`
}

// ExecutableConfig controls how TcAutomation.exe is located.
type ExecutableConfig struct {
	// Path, when set, is the only candidate probed.
	Path string `mapstructure:"path" yaml:"path"`
	// BaseDir anchors relative candidates. Defaults to the parent of the
	// directory holding the running binary.
	BaseDir    string        `mapstructure:"base_dir" yaml:"base_dir"`
	Candidates []string      `mapstructure:"candidates" yaml:"candidates"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
}

type ProcessConfig struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type DispatchConfig struct {
	MaxConcurrent int64 `mapstructure:"max_concurrent" yaml:"max_concurrent"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// DefaultCandidates are the build output locations probed, in order, relative to the base directory.
func DefaultCandidates() []string {
	return []string{
		filepath.Join("TcAutomation", "bin", "Release", executableName),
		filepath.Join("TcAutomation", "bin", "Debug", executableName),
		filepath.Join("TcAutomation", "bin", "Release", "net8.0-windows", executableName),
		filepath.Join("TcAutomation", "publish", executableName),
	}
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Executable: ExecutableConfig{
			Candidates: DefaultCandidates(),
			CacheTTL:   DefaultCacheTTL,
		},
		Process:       ProcessConfig{Timeout: DefaultTimeout},
		Dispatch:      DispatchConfig{MaxConcurrent: DefaultMaxConcurrent},
		Log:           LogConfig{Level: DefaultLogLevel},
		Observability: observability.DefaultConfig(),
	}
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	if c.Process.Timeout <= 0 {
		return fmt.Errorf("process.timeout must be positive, got %s", c.Process.Timeout)
	}
	if c.Dispatch.MaxConcurrent <= 0 {
		return fmt.Errorf("dispatch.max_concurrent must be positive, got %d", c.Dispatch.MaxConcurrent)
	}
	if c.Executable.CacheTTL < 0 {
		return fmt.Errorf("executable.cache_ttl must not be negative, got %s", c.Executable.CacheTTL)
	}
	if strings.TrimSpace(c.Executable.Path) == "" && len(nonEmpty(c.Executable.Candidates)) == 0 {
		return fmt.Errorf("executable.candidates is empty and executable.path is not set")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Observability.Tracing.Enabled {
		switch c.Observability.Tracing.Exporter {
		case "otlp", "zipkin":
		default:
			return fmt.Errorf("observability.tracing.exporter must be otlp or zipkin, got %q", c.Observability.Tracing.Exporter)
		}
	}
	return nil
}

// CandidatePaths resolves the ordered list of executable locations.
func (c Config) CandidatePaths() ([]string, error) {
	if path := strings.TrimSpace(c.Executable.Path); path != "" {
		return []string{path}, nil
	}

	base := strings.TrimSpace(c.Executable.BaseDir)
	if base == "" {
		var err error
		base, err = defaultBaseDir()
		if err != nil {
			return nil, err
		}
	}

	candidates := nonEmpty(c.Executable.Candidates)
	out := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		if filepath.IsAbs(candidate) {
			out = append(out, filepath.Clean(candidate))
			continue
		}
		out = append(out, filepath.Join(base, candidate))
	}
	return out, nil
}

func defaultBaseDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve running binary: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(filepath.Dir(exe)), nil
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
