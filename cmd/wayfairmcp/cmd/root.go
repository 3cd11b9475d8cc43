// Package cmd provides the CLI commands for wayfairmcp.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	wferrors "github.com/tomrikert/wayfair-mcp-server/internal/errors"
	"github.com/tomrikert/wayfair-mcp-server/internal/logging"
	"github.com/tomrikert/wayfair-mcp-server/pkg/version"
)

// Process exit codes.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
	ExitFatal = 3
)

// Debug logging flag
var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the wayfairmcp CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wayfairmcp",
		Short: "Wayfair product search for AI assistants",
		Long: `wayfairmcp is an MCP server that searches Wayfair for furniture and
home goods. When the retailer site cannot be used it answers from a built-in
offline catalog and says so in every result.

Run 'wayfairmcp serve' from your MCP client configuration, or use
'wayfairmcp search' to try queries from the terminal.`,
		Version:       version.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.SetVersionTemplate("wayfairmcp version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.wayfairmcp/logs/ and stderr")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newDealsCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startLogging enables debug logging when --debug is set. The serve command
// configures its own file-only logger.
func startLogging(cmd *cobra.Command, _ []string) error {
	if !debugMode || cmd.Name() == "serve" {
		return nil
	}
	cfg := logging.DefaultConfig()
	cfg.Level = "debug"
	cfg.WriteToStderr = true
	cleanup, err := logging.SetupDefault(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.Debug("Debug logging enabled",
		slog.String("log_file", cfg.FilePath),
		slog.String("version", version.Version))
	return nil
}

// stopLogging flushes and closes the debug log.
func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		slog.Debug("Debug logging stopped")
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// ExitCode maps an error returned by Execute to a process exit status.
// Invalid input exits 2; fatal errors such as an unreadable catalog exit 3.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case wferrors.IsFatal(err):
		return ExitFatal
	case wferrors.GetCategory(err) == wferrors.CategoryValidation:
		return ExitUsage
	default:
		return ExitError
	}
}
