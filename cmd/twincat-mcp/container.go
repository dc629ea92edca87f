package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"twincat-mcp/internal/app/dispatch"
	"twincat-mcp/internal/infra/observability"
	"twincat-mcp/internal/infra/process"
	"twincat-mcp/internal/mcp"
	"twincat-mcp/internal/shared/config"
	"twincat-mcp/internal/shared/logging"
	"twincat-mcp/internal/tools/catalog"
)

// Container holds the wired components for one CLI invocation.
type Container struct {
	Config        config.Config
	Catalog       *catalog.Catalog
	Locator       *process.Locator
	Observability *observability.Observability
	Dispatcher    *dispatch.Dispatcher

	logger  logging.Logger
	closers []io.Closer
}

func buildContainer(cfg config.Config, stderr io.Writer) (*Container, error) {
	c := &Container{Config: cfg}
	if err := c.configureLogging(stderr); err != nil {
		return nil, err
	}
	c.logger = logging.NewComponentLogger("Container")

	candidates, err := cfg.CandidatePaths()
	if err != nil {
		return nil, err
	}
	c.Catalog = catalog.Default()
	c.Locator = process.NewLocator(candidates, cfg.Executable.CacheTTL)

	c.Observability = observability.New(cfg.Observability, logging.NewComponentLogger("Observability"))
	if addr := c.Observability.Metrics.Addr(); addr != "" {
		c.logger.Info("metrics available at http://%s/metrics", addr)
	}

	bridge := observability.NewInstrumentedBridge(
		process.NewBridge(c.Locator, process.Options{Timeout: cfg.Process.Timeout}),
		c.Observability,
	)
	c.Dispatcher, err = dispatch.New(c.Catalog, bridge, dispatch.Options{
		MaxConcurrent: cfg.Dispatch.MaxConcurrent,
		Recorder:      c.Observability.Metrics,
	})
	if err != nil {
		_ = c.Cleanup(context.Background())
		return nil, err
	}

	c.logger.Debug("executable candidates: %s", strings.Join(candidates, ", "))
	return c, nil
}

// configureLogging points the process-wide log sink at the configured file,
// or at stderr when log.file is "-" or the file cannot be opened.
func (c *Container) configureLogging(stderr io.Writer) error {
	level, err := logging.ParseLevel(c.Config.Log.Level)
	if err != nil {
		return err
	}

	path := strings.TrimSpace(c.Config.Log.File)
	if path == "-" {
		logging.Configure(stderr, level)
		return nil
	}
	if path == "" {
		if path, err = logging.DefaultLogPath(); err != nil {
			logging.Configure(stderr, level)
			return nil
		}
	}
	file, err := logging.OpenLogFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "cannot open log file %s, logging to stderr: %v\n", path, err)
		logging.Configure(stderr, level)
		return nil
	}
	logging.Configure(file, level)
	c.closers = append(c.closers, file)
	return nil
}

// NewServer builds the MCP server around the dispatcher.
func (c *Container) NewServer() *mcp.Server {
	return mcp.NewServer(c.Dispatcher, mcp.ServerOptions{
		Name:    serverName,
		Version: appVersion(),
	})
}

// Cleanup flushes telemetry and closes the log file.
func (c *Container) Cleanup(ctx context.Context) error {
	var errs []error
	if c.Observability != nil {
		errs = append(errs, c.Observability.Shutdown(ctx))
	}
	if len(c.closers) > 0 {
		logging.Configure(io.Discard, logging.ERROR)
	}
	for _, closer := range c.closers {
		errs = append(errs, closer.Close())
	}
	c.closers = nil
	return errors.Join(errs...)
}
