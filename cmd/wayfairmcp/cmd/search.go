package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	wferrors "github.com/tomrikert/wayfair-mcp-server/internal/errors"
	"github.com/tomrikert/wayfair-mcp-server/internal/mcp"
	"github.com/tomrikert/wayfair-mcp-server/internal/output"
	"github.com/tomrikert/wayfair-mcp-server/internal/search"
	"github.com/tomrikert/wayfair-mcp-server/internal/ui"
)

// Output formats shared by the one-shot commands.
const (
	formatText = "text"
	formatJSON = "json"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit     int
	category  string
	maxPrice  float64
	minRating float64
	format    string // "text", "json"
	offline   bool

	// set when the filter flags were given
	hasMaxPrice  bool
	hasMinRating bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search for products",
		Long: `Search Wayfair for products, falling back to the offline catalog when
the retailer site is unavailable. The result says which source answered.

With no query, browses the catalog ordered by rating.`,
		Example: `  wayfairmcp search "velvet sofa"
  wayfairmcp search desk --max-price 250 --min-rating 4
  wayfairmcp search --category "Living Room"
  wayfairmcp search bed --limit 3 --format json
  wayfairmcp search mirror --offline`,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			opts.hasMaxPrice = cmd.Flags().Changed("max-price")
			opts.hasMinRating = cmd.Flags().Changed("min-rating")
			return runSearch(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().StringVarP(&opts.category, "category", "c", "", "Only show products in this category")
	cmd.Flags().Float64Var(&opts.maxPrice, "max-price", 0, "Only show products at or below this price")
	cmd.Flags().Float64Var(&opts.minRating, "min-rating", 0, "Only show products rated at or above this value")
	cmd.Flags().StringVarP(&opts.format, "format", "f", formatText, "Output format: text, json")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "Search only the offline catalog")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	if err := checkFormat(opts.format); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	limit := opts.limit
	if limit == 0 {
		limit = cfg.Search.DefaultLimit
	}
	qopts := []search.QueryOption{search.WithLimit(limit), search.WithCategory(opts.category)}
	if opts.hasMaxPrice {
		qopts = append(qopts, search.WithMaxPrice(opts.maxPrice))
	}
	if opts.hasMinRating {
		qopts = append(qopts, search.WithMinRating(opts.minRating))
	}
	q, err := search.NewQuery(query, qopts...)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, appOptions{offline: opts.offline})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if ctx == nil {
		ctx = context.Background()
	}
	live := cfg.Scraper.Enabled && !opts.offline
	var activity ui.Activity
	if live && opts.format == formatText {
		activity = ui.NewActivity(ui.NewConfig(cmd.ErrOrStderr()))
		activity.Start(ctx, "Searching Wayfair")
	}
	res, err := a.arbiter.Search(ctx, q)
	if activity != nil {
		activity.Stop()
	}
	if err != nil {
		return err
	}
	slog.Debug("search_complete",
		slog.String("source", string(res.DataSource.Source())),
		slog.Int("results", res.TotalResults))

	if opts.format == formatJSON {
		return writeJSON(cmd, mcp.ToSearchOutput(res))
	}
	output.New(cmd.OutOrStdout()).SearchResult(res)
	return nil
}

// checkFormat rejects unknown --format values.
func checkFormat(format string) error {
	switch format {
	case formatText, formatJSON:
		return nil
	default:
		return wferrors.ValidationError(fmt.Sprintf("unknown format %q", format), nil).
			WithSuggestion("Use --format text or --format json")
	}
}

// writeJSON writes v as indented JSON.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
