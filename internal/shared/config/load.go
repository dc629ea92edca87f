package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment override, e.g. TWINCAT_MCP_PROCESS_TIMEOUT.
	EnvPrefix = "TWINCAT_MCP"
	// FileName is the config file name searched for, without extension.
	FileName = "twincat-mcp"
)

// Metadata records where the loaded values came from.
type Metadata struct {
	configFile string
	sources    map[string]ValueSource
	loadedAt   time.Time
}

// ConfigFile returns the config file that was read, or "".
func (m Metadata) ConfigFile() string { return m.configFile }

// LoadedAt returns when the configuration was loaded.
func (m Metadata) LoadedAt() time.Time { return m.loadedAt }

// Source reports where key's value came from.
func (m Metadata) Source(key string) ValueSource {
	if src, ok := m.sources[key]; ok {
		return src
	}
	return SourceDefault
}

// Option customizes Load.
type Option func(*loadOptions)

type loadOptions struct {
	configFile  string
	searchPaths []string
	flags       map[string]*pflag.Flag
}

// WithConfigFile reads exactly path; a missing file is an error.
func WithConfigFile(path string) Option {
	return func(o *loadOptions) {
		o.configFile = strings.TrimSpace(path)
	}
}

// WithSearchPaths replaces the directories searched for twincat-mcp.yaml.
func WithSearchPaths(paths ...string) Option {
	return func(o *loadOptions) {
		o.searchPaths = paths
	}
}

// WithFlag binds a command-line flag to key. The flag wins only when set.
func WithFlag(key string, flag *pflag.Flag) Option {
	return func(o *loadOptions) {
		if flag == nil {
			return
		}
		if o.flags == nil {
			o.flags = map[string]*pflag.Flag{}
		}
		o.flags[key] = flag
	}
}

// Load resolves configuration with precedence flags > environment > file > defaults.
func Load(opts ...Option) (Config, Metadata, error) {
	options := loadOptions{
		searchPaths: []string{"$HOME/.twincat-mcp", "."},
	}
	for _, opt := range opts {
		opt(&options)
	}

	v := viper.New()
	setDefaults(v, Default())

	v.SetConfigType("yaml")
	if options.configFile != "" {
		v.SetConfigFile(options.configFile)
	} else {
		v.SetConfigName(FileName)
		for _, path := range options.searchPaths {
			v.AddConfigPath(path)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, flag := range options.flags {
		if err := v.BindPFlag(key, flag); err != nil {
			return Config{}, Metadata{}, fmt.Errorf("bind flag %s: %w", flag.Name, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if options.configFile != "" || !errors.As(err, &notFound) {
			return Config{}, Metadata{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, Metadata{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, Metadata{}, err
	}

	meta := Metadata{
		configFile: v.ConfigFileUsed(),
		sources:    map[string]ValueSource{},
		loadedAt:   time.Now(),
	}
	for _, key := range v.AllKeys() {
		meta.sources[key] = sourceOf(v, key, options.flags)
	}
	return cfg, meta, nil
}

func sourceOf(v *viper.Viper, key string, flags map[string]*pflag.Flag) ValueSource {
	if flag, ok := flags[key]; ok && flag.Changed {
		return SourceOverride
	}
	envKey := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
	if _, ok := os.LookupEnv(envKey); ok {
		return SourceEnv
	}
	if v.InConfig(key) {
		return SourceFile
	}
	return SourceDefault
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("executable.path", d.Executable.Path)
	v.SetDefault("executable.base_dir", d.Executable.BaseDir)
	v.SetDefault("executable.candidates", d.Executable.Candidates)
	v.SetDefault("executable.cache_ttl", d.Executable.CacheTTL)
	v.SetDefault("process.timeout", d.Process.Timeout)
	v.SetDefault("dispatch.max_concurrent", d.Dispatch.MaxConcurrent)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)

	metrics := d.Observability.Metrics
	v.SetDefault("observability.metrics.enabled", metrics.Enabled)
	v.SetDefault("observability.metrics.prometheus_port", metrics.PrometheusPort)

	tracing := d.Observability.Tracing
	v.SetDefault("observability.tracing.enabled", tracing.Enabled)
	v.SetDefault("observability.tracing.exporter", tracing.Exporter)
	v.SetDefault("observability.tracing.otlp_endpoint", tracing.OTLPEndpoint)
	v.SetDefault("observability.tracing.zipkin_endpoint", tracing.ZipkinEndpoint)
	v.SetDefault("observability.tracing.sample_rate", tracing.SampleRate)
	v.SetDefault("observability.tracing.service_name", tracing.ServiceName)
	v.SetDefault("observability.tracing.service_version", tracing.ServiceVersion)
}
