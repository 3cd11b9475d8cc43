package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomrikert/wayfair-mcp-server/internal/output"
	"github.com/tomrikert/wayfair-mcp-server/internal/telemetry"
	"github.com/tomrikert/wayfair-mcp-server/internal/ui"
)

func newStatsCmd() *cobra.Command {
	var jsonOutput bool
	var days int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show persisted search statistics",
		Long: `Display search telemetry persisted by the server when
telemetry.persist is enabled:
  - Searches served live versus from the offline catalog
  - Live failure reasons
  - Top query terms
  - Recent zero-result queries`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd, jsonOutput, days)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().IntVar(&days, "days", 7, "Number of days to include")

	return cmd
}

// StatsOutput is the JSON output format for persisted statistics.
type StatsOutput struct {
	Days                int                   `json:"days"`
	Searches            int64                 `json:"searches"`
	Live                int64                 `json:"live"`
	Fallback            int64                 `json:"fallback"`
	LiveSkipped         int64                 `json:"live_skipped"`
	Dropped             int64                 `json:"dropped_records"`
	DailySearches       []int64               `json:"daily_searches"`
	FailureReasons      map[string]int64      `json:"failure_reasons"`
	LatencyDistribution map[string]int64      `json:"latency_distribution"`
	TopTerms            []telemetry.TermCount `json:"top_terms"`
	ZeroResultQueries   []string              `json:"zero_result_queries"`
}

func runStats(cmd *cobra.Command, jsonOutput bool, days int) error {
	if days < 1 {
		return fmt.Errorf("--days must be at least 1")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if _, err := os.Stat(cfg.Telemetry.Path); err != nil {
		return fmt.Errorf("no telemetry found at %s\nSet telemetry.persist: true and run 'wayfairmcp serve'", cfg.Telemetry.Path)
	}

	store, err := telemetry.OpenSQLiteStore(cfg.Telemetry.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	stats, err := collectStats(store, days, time.Now())
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(cmd, stats)
	}
	printStats(output.New(cmd.OutOrStdout()), stats)
	return nil
}

// collectStats sums daily counters over the last days and reads term history.
func collectStats(store telemetry.Store, days int, now time.Time) (*StatsOutput, error) {
	to := now.Format("2006-01-02")
	from := now.AddDate(0, 0, -(days - 1)).Format("2006-01-02")

	counters, err := store.Counters(from, to)
	if err != nil {
		return nil, fmt.Errorf("read counters: %w", err)
	}
	terms, err := store.TopTerms(10)
	if err != nil {
		return nil, fmt.Errorf("read top terms: %w", err)
	}
	zero, err := store.ZeroResultQueries(10)
	if err != nil {
		return nil, fmt.Errorf("read zero-result queries: %w", err)
	}

	daily := make([]int64, 0, days)
	for i := days - 1; i >= 0; i-- {
		day := now.AddDate(0, 0, -i).Format("2006-01-02")
		c, err := store.Counters(day, day)
		if err != nil {
			return nil, fmt.Errorf("read counters for %s: %w", day, err)
		}
		daily = append(daily, c["searches"])
	}

	stats := &StatsOutput{
		Days:                days,
		Searches:            counters["searches"],
		Live:                counters["live"],
		Fallback:            counters["fallback"],
		LiveSkipped:         counters["live_skipped"],
		Dropped:             counters["dropped"],
		DailySearches:       daily,
		FailureReasons:      make(map[string]int64),
		LatencyDistribution: make(map[string]int64),
		TopTerms:            make([]telemetry.TermCount, 0, len(terms)),
		ZeroResultQueries:   make([]string, 0, len(zero)),
	}
	for key, n := range counters {
		if reason, ok := strings.CutPrefix(key, "failure:"); ok {
			stats.FailureReasons[reason] = n
		}
		if bucket, ok := strings.CutPrefix(key, "latency:"); ok {
			stats.LatencyDistribution[bucket] = n
		}
	}
	stats.TopTerms = append(stats.TopTerms, terms...)
	stats.ZeroResultQueries = append(stats.ZeroResultQueries, zero...)
	return stats, nil
}

func printStats(out *output.Writer, s *StatsOutput) {
	out.Header(fmt.Sprintf("Search statistics (last %d days)", s.Days))
	out.KeyValue("Searches", s.Searches)
	if len(s.DailySearches) > 1 {
		out.KeyValue("Per day", ui.Sparkline(s.DailySearches))
	}
	out.KeyValue("Live", s.Live)
	out.KeyValue("Fallback", fmt.Sprintf("%d (%d skipped live)", s.Fallback, s.LiveSkipped))
	out.KeyValue("Dropped records", s.Dropped)

	if len(s.FailureReasons) > 0 {
		reasons := make([]string, 0, len(s.FailureReasons))
		for r := range s.FailureReasons {
			reasons = append(reasons, r)
		}
		sort.Strings(reasons)
		out.Newline()
		out.Header("Live failures")
		for _, r := range reasons {
			out.KeyValue(r, s.FailureReasons[r])
		}
	}

	out.Newline()
	if len(s.TopTerms) == 0 {
		out.Status("•", "Top query terms: (none recorded yet)")
	} else {
		out.Header("Top query terms")
		for i, tc := range s.TopTerms {
			out.Statusf("", "%d. %s (%d)", i+1, tc.Term, tc.Count)
		}
	}

	out.Newline()
	if len(s.ZeroResultQueries) == 0 {
		out.Status("•", "Zero-result queries: (none)")
	} else {
		out.Header("Recent zero-result queries")
		for _, q := range s.ZeroResultQueries {
			out.Statusf("", "- %q", q)
		}
	}
}
