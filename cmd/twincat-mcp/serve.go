package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the TwinCAT tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
}

func runServe(cmd *cobra.Command, opts *rootOptions) error {
	cfg, meta, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	container, err := buildContainer(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := container.Cleanup(ctx); err != nil {
			container.logger.Warn("cleanup: %v", err)
		}
	}()

	if file := meta.ConfigFile(); file != "" {
		container.logger.Info("loaded config from %s", file)
	}
	container.logger.Info("process timeout %s (%s), max concurrent %d",
		cfg.Process.Timeout, meta.Source("process.timeout"), cfg.Dispatch.MaxConcurrent)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return container.NewServer().Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
}
