package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/substratelabs/memcore/internal/config"
	"github.com/substratelabs/memcore/internal/logging"
	"github.com/substratelabs/memcore/internal/mcp"
	"github.com/substratelabs/memcore/internal/search"
	"github.com/substratelabs/memcore/pkg/version"
)

// newServeCmd creates the serve command.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server on stdio",
		Long: `Start the memory store as an MCP server speaking JSON-RPC on stdio.

Stdout carries the protocol, so all logging goes to a rotating file
under ~/.memcore/logs/. Configuration is read from .memcore.yaml in
the working directory and reloaded on change.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd)
		},
	}
}

func runServe(cmd *cobra.Command) error {
	rt, err := openRuntime(true)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	// The --debug hook already installed a file logger; otherwise set one
	// up at the configured level. Stdout stays clean for JSON-RPC.
	if loggingCleanup == nil {
		logCfg := logging.DefaultConfig()
		logCfg.Level = rt.cfg.Server.LogLevel
		logCfg.WriteToStderr = false
		cleanup, err := logging.SetupDefault(logCfg)
		if err != nil {
			return fmt.Errorf("failed to setup logging: %w", err)
		}
		defer cleanup()
	}

	srv, err := mcp.NewServer(rt.service, rt.engine, rt.consolidator, rt.cfg, version.Version)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sweep, err := rt.cfg.CacheSweepInterval()
	if err != nil {
		return err
	}
	rt.cache.StartSweeper(ctx, sweep)

	watcher, err := config.NewWatcher(".", func(next *config.Config) {
		rt.engine.SetFusionWeights(search.FusionWeights{
			Exact:    next.Search.ExactWeight,
			Fuzzy:    next.Search.FuzzyWeight,
			Semantic: next.Search.SemanticWeight,
		})
		if ttl, err := next.CacheTTL(); err == nil {
			rt.cache.SetTTL(ttl)
		}
		slog.Info("configuration reloaded")
	})
	if err != nil {
		slog.Warn("config watch unavailable", slog.String("error", err.Error()))
	} else if watcher != nil {
		watcher.Start(ctx)
		defer func() { _ = watcher.Stop() }()
	}

	slog.Info("starting MCP server",
		slog.String("version", version.Version),
		slog.String("db", rt.cfg.Storage.Path))

	return srv.Serve(ctx)
}
