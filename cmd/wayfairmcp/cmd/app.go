package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/tomrikert/wayfair-mcp-server/internal/catalog"
	"github.com/tomrikert/wayfair-mcp-server/internal/config"
	wferrors "github.com/tomrikert/wayfair-mcp-server/internal/errors"
	"github.com/tomrikert/wayfair-mcp-server/internal/extract"
	"github.com/tomrikert/wayfair-mcp-server/internal/search"
	"github.com/tomrikert/wayfair-mcp-server/internal/telemetry"
)

// app holds the components shared by serve and the one-shot commands.
type app struct {
	cfg     *config.Config
	arbiter *search.Arbiter
	browser *search.Browser
	metrics *telemetry.Metrics
}

// appOptions adjusts how the app is assembled.
type appOptions struct {
	// offline disables the live source regardless of configuration.
	offline bool
	// telemetry enables search metrics when the config allows it.
	telemetry bool
	logger    *slog.Logger
}

// loadConfig loads configuration for the current directory.
func loadConfig() (*config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}
	return config.Load(cwd)
}

// newApp wires the catalog, live adapter, resilience helpers and telemetry
// into an arbiter and browser.
func newApp(cfg *config.Config, opts appOptions) (*app, error) {
	logger := opts.logger
	if logger == nil {
		logger = slog.Default()
	}

	c, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}
	logger.Debug("catalog loaded",
		slog.String("path", cfg.Catalog.Path),
		slog.Int("products", c.Len()))

	a := &app{cfg: cfg}
	arbiterOpts := []search.ArbiterOption{search.WithLogger(logger)}

	if cfg.Scraper.Enabled && !opts.offline {
		adapter := extract.New(extract.Config{
			SearchURL:    cfg.Scraper.SearchURL,
			UserAgent:    cfg.Scraper.UserAgent,
			Timeout:      cfg.ScraperTimeout(),
			MaxBodyBytes: cfg.Scraper.MaxBodyBytes,
		}, extract.WithLogger(logger))
		arbiterOpts = append(arbiterOpts, search.WithFetcher(adapter))

		if cb := cfg.Scraper.CircuitBreaker; cb.Enabled {
			arbiterOpts = append(arbiterOpts, search.WithCircuitBreaker(wferrors.NewCircuitBreaker("wayfair",
				wferrors.WithMaxFailures(cb.MaxFailures),
				wferrors.WithResetTimeout(cfg.BreakerResetTimeout()))))
		}
		if cfg.Scraper.MaxRetries > 0 {
			rc := wferrors.DefaultRetryConfig()
			rc.MaxRetries = cfg.Scraper.MaxRetries
			arbiterOpts = append(arbiterOpts, search.WithLiveRetries(rc))
		}
	}

	if opts.telemetry && cfg.Telemetry.Enabled {
		var store telemetry.Store
		if cfg.Telemetry.Persist {
			s, err := telemetry.OpenSQLiteStore(cfg.Telemetry.Path)
			if err != nil {
				logger.Warn("telemetry persistence disabled",
					slog.String("path", cfg.Telemetry.Path),
					slog.String("error", err.Error()))
			} else {
				store = s
			}
		}
		mcfg := telemetry.DefaultConfig()
		mcfg.FlushInterval = cfg.TelemetryFlushInterval()
		a.metrics = telemetry.NewMetrics(store, mcfg)
		arbiterOpts = append(arbiterOpts, search.WithMetrics(a.metrics))
	}

	if a.arbiter, err = search.NewArbiter(c, arbiterOpts...); err != nil {
		return nil, err
	}
	if a.browser, err = search.NewBrowser(c); err != nil {
		return nil, err
	}
	return a, nil
}

// Close flushes telemetry.
func (a *app) Close() error {
	if a.metrics != nil {
		return a.metrics.Close()
	}
	return nil
}
