// Package cmd provides the CLI commands for memcore.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/substratelabs/memcore/internal/logging"
	"github.com/substratelabs/memcore/pkg/version"
)

var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the memcore CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memcore",
		Short: "Durable memory store for AI coding agents",
		Long: `Memcore is a local memory store for AI coding assistants,
exposed as an MCP server over stdio.

It keeps short text records in sqlite and answers exact, fuzzy,
semantic, and hybrid searches over them.

Run 'memcore' with no arguments to start the MCP server.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return cmd.Help()
			}
			return runServe(cmd)
		},
	}

	cmd.SetVersionTemplate("memcore version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.memcore/logs/")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newReindexCmd())
	cmd.AddCommand(newConsolidateCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startLogging sets up debug logging when the flag is set. The serve
// path installs its own logger with the configured level, so this only
// needs to handle the --debug case for the one-shot commands.
func startLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}

	cleanup, err := logging.SetupDefault(logging.DebugConfig())
	if err != nil {
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.Info("debug logging enabled",
		slog.String("log_file", logging.DefaultLogPath()),
		slog.String("version", version.Version))
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
