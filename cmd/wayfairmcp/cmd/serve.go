package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tomrikert/wayfair-mcp-server/internal/config"
	"github.com/tomrikert/wayfair-mcp-server/internal/logging"
	"github.com/tomrikert/wayfair-mcp-server/internal/mcp"
	"github.com/tomrikert/wayfair-mcp-server/pkg/version"
)

type serveOptions struct {
	transport string
	addr      string
	offline   bool
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP server.

With the default stdio transport, stdout carries JSON-RPC only; all logs go to
~/.wayfairmcp/logs/server.log. Use 'wayfairmcp logs -f' to watch them.

The http transport serves streamable HTTP on /mcp and a health check on
/healthz.`,
		Example: `  # Stdio (for Claude Desktop, Cursor and similar clients)
  wayfairmcp serve

  # Streamable HTTP
  wayfairmcp serve --transport http --addr 127.0.0.1:8765

  # Never contact the retailer site
  wayfairmcp serve --offline`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.transport, "transport", "", "Transport: stdio or http (default from config)")
	cmd.Flags().StringVar(&opts.addr, "addr", "", "Listen address for the http transport (default from config)")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "Serve only the offline catalog")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, opts serveOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if opts.transport != "" {
		cfg.Server.Transport = opts.transport
	}
	if opts.addr != "" {
		cfg.Server.Addr = opts.addr
	}
	cfg.Server.Transport = strings.ToLower(cfg.Server.Transport)
	if err := cfg.Validate(); err != nil {
		return err
	}

	// stdout belongs to the protocol; log to file only.
	level := cfg.Logging.Level
	if debugMode {
		level = "debug"
	}
	logCfg := logging.MCPConfig(level)
	logCfg.MaxSizeMB = cfg.Logging.MaxSizeMB
	logCfg.MaxFiles = cfg.Logging.MaxFiles
	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer cleanup()
	slog.SetDefault(logger)

	logger.Info("wayfairmcp starting",
		slog.String("version", version.Version),
		slog.String("transport", cfg.Server.Transport),
		slog.Bool("live", cfg.Scraper.Enabled && !opts.offline))

	a, err := newApp(cfg, appOptions{offline: opts.offline, telemetry: true, logger: logger})
	if err != nil {
		logger.Error("startup failed", slog.String("error", err.Error()))
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("telemetry flush failed", slog.String("error", err.Error()))
		}
	}()

	srv, err := mcp.NewServer(a.arbiter, a.browser, cfg)
	if err != nil {
		return err
	}
	srv.SetLogger(logger)
	if a.metrics != nil {
		srv.SetMetrics(a.metrics)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Server.Transport == config.TransportHTTP {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "wayfairmcp listening on http://%s/mcp\n", cfg.Server.Addr)
	}

	err = srv.Serve(ctx, cfg.Server.Transport, cfg.Server.Addr)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
