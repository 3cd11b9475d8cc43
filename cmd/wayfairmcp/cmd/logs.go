package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tomrikert/wayfair-mcp-server/internal/logging"
	"github.com/tomrikert/wayfair-mcp-server/internal/output"
)

type logsOptions struct {
	follow  bool
	lines   int
	level   string
	filter  string
	noColor bool
	logFile string
}

func newLogsCmd() *cobra.Command {
	var opts logsOptions

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View server logs",
		Long: `View and tail the wayfairmcp server log (~/.wayfairmcp/logs/server.log).

By default, shows the last 50 lines. Use -f to follow new entries.`,
		Example: `  wayfairmcp logs
  wayfairmcp logs -n 100
  wayfairmcp logs -f
  wayfairmcp logs --level warn
  wayfairmcp logs --filter "search_products"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogs(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.follow, "follow", "f", false, "Follow log output (like tail -f)")
	cmd.Flags().IntVarP(&opts.lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().StringVar(&opts.level, "level", "", "Minimum log level (debug|info|warn|error)")
	cmd.Flags().StringVar(&opts.filter, "filter", "", "Filter by keyword/pattern (regex)")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	cmd.Flags().StringVar(&opts.logFile, "file", "", "Path to log file")

	return cmd
}

func runLogs(ctx context.Context, cmd *cobra.Command, opts logsOptions) error {
	path, err := logging.FindLogFile(opts.logFile)
	if err != nil {
		return err
	}

	var pattern *regexp.Regexp
	if opts.filter != "" {
		pattern, err = regexp.Compile(opts.filter)
		if err != nil {
			return fmt.Errorf("invalid filter pattern: %w", err)
		}
	}

	stdout := cmd.OutOrStdout()
	viewer := logging.NewViewer(logging.ViewerConfig{
		Level:   opts.level,
		Pattern: pattern,
		NoColor: opts.noColor || !output.UseColor(stdout),
	}, stdout)

	stderr := cmd.ErrOrStderr()
	_, _ = fmt.Fprintf(stderr, "Log file: %s\n", path)

	if !opts.follow {
		entries, err := viewer.Tail(path, opts.lines)
		if err != nil {
			return err
		}
		viewer.Print(entries)
		return nil
	}

	_, _ = fmt.Fprintln(stderr, "Following... (Ctrl+C to stop)")
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	entries := make(chan logging.LogEntry, 100)
	errCh := make(chan error, 1)
	go func() {
		errCh <- viewer.Follow(ctx, path, entries)
	}()

	for {
		select {
		case entry := <-entries:
			_, _ = fmt.Fprintln(stdout, viewer.FormatEntry(entry))
		case err := <-errCh:
			return err
		case <-ctx.Done():
			_, _ = fmt.Fprintln(stderr, "Stopped.")
			return nil
		}
	}
}
