// Package search decides where product data comes from and shapes it into a
// result.
//
// The Arbiter asks the retailer site first. If that yields at least one usable
// product it answers from live data only; otherwise it answers from the
// static fallback catalog only. Records from the two sources are never mixed
// in one result, and DataSource records which branch was taken and why.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	wferrors "github.com/tomrikert/wayfair-mcp-server/internal/errors"
	"github.com/tomrikert/wayfair-mcp-server/internal/extract"
	"github.com/tomrikert/wayfair-mcp-server/internal/product"
	"github.com/tomrikert/wayfair-mcp-server/internal/telemetry"
)

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// Live failure labels that do not come from the adapter.
const (
	FailureNoUsableRecords = "no_usable_records"
	FailureCircuitOpen     = "circuit_open"
	FailureDisabled        = "disabled"

	// FailureEmptyQuery marks a browse: there is nothing to send to the site.
	FailureEmptyQuery = "empty_query"
)

// Fetcher retrieves live records. *extract.Adapter implements it.
type Fetcher interface {
	Fetch(ctx context.Context, text string) extract.Outcome
}

// FallbackSource serves static records. *catalog.Catalog implements it.
type FallbackSource interface {
	LoadFallback(text string) []product.RawRecord
}

// DataSource records the provenance of a result.
// At most one of LiveCount and FallbackCount is non-zero.
type DataSource struct {
	LiveCount      int      `json:"live_count"`
	FallbackCount  int      `json:"fallback_count"`
	LiveAttempted  bool     `json:"live_attempted"`
	LiveSucceeded  bool     `json:"live_succeeded"`
	LiveFailure    string   `json:"live_failure,omitempty"`
	DroppedRecords int      `json:"dropped_records"`
	Issues         []string `json:"issues,omitempty"`
}

// Source returns the source that supplied the products.
func (d DataSource) Source() product.Source {
	if d.LiveSucceeded {
		return product.SourceLive
	}
	return product.SourceFallback
}

// Result is the response to one search.
type Result struct {
	Query        Query             `json:"query"`
	Products     []product.Product `json:"products"`
	TotalResults int               `json:"total_results"`
	DataSource   DataSource        `json:"data_source"`
	ElapsedMS    int64             `json:"elapsed_ms"`
}

// Arbiter runs searches. It is safe for concurrent use.
type Arbiter struct {
	fetcher  Fetcher
	fallback FallbackSource
	metrics  *telemetry.Metrics
	breaker  *wferrors.CircuitBreaker
	retry    *wferrors.RetryConfig
	logger   *slog.Logger
	now      func() time.Time
}

// ArbiterOption configures an Arbiter.
type ArbiterOption func(*Arbiter)

// WithFetcher sets the live source. Without one, every search uses the fallback.
func WithFetcher(f Fetcher) ArbiterOption {
	return func(a *Arbiter) {
		a.fetcher = f
	}
}

// WithMetrics records every search.
func WithMetrics(m *telemetry.Metrics) ArbiterOption {
	return func(a *Arbiter) {
		a.metrics = m
	}
}

// WithCircuitBreaker skips live fetches while the retailer keeps failing.
func WithCircuitBreaker(cb *wferrors.CircuitBreaker) ArbiterOption {
	return func(a *Arbiter) {
		a.breaker = cb
	}
}

// WithLiveRetries retries timed-out or unreachable live fetches.
// Blocked and unparseable responses are never retried.
func WithLiveRetries(cfg wferrors.RetryConfig) ArbiterOption {
	return func(a *Arbiter) {
		if cfg.MaxRetries > 0 {
			if cfg.ShouldRetry == nil {
				cfg.ShouldRetry = wferrors.IsRetryable
			}
			a.retry = &cfg
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ArbiterOption {
	return func(a *Arbiter) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithClock overrides the time source used for elapsed time.
func WithClock(now func() time.Time) ArbiterOption {
	return func(a *Arbiter) {
		if now != nil {
			a.now = now
		}
	}
}

// NewArbiter creates an Arbiter backed by fallback.
func NewArbiter(fallback FallbackSource, opts ...ArbiterOption) (*Arbiter, error) {
	if fallback == nil {
		return nil, fmt.Errorf("%w: fallback source is required", ErrNilDependency)
	}
	a := &Arbiter{
		fallback: fallback,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// LiveEnabled reports whether the arbiter has a live source.
func (a *Arbiter) LiveEnabled() bool {
	return a.fetcher != nil
}

// Breaker returns the circuit breaker, or nil.
func (a *Arbiter) Breaker() *wferrors.CircuitBreaker {
	return a.breaker
}

// Search answers q. The only error it returns is a query validation error,
// raised before any I/O. Live failures degrade to fallback data.
func (a *Arbiter) Search(ctx context.Context, q Query) (*Result, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	start := a.now()
	var ds DataSource
	var products []product.Product

	outcome, attempted, failure := a.fetchLive(ctx, q.Text)
	ds.LiveAttempted = attempted

	if outcome.OK() {
		live, drops := normalizeAll(outcome.Records, product.SourceLive)
		ds.DroppedRecords += len(drops)
		if len(live) > 0 {
			products = live
			ds.LiveSucceeded = true
			ds.Issues = outcome.Issues
		} else {
			failure = FailureNoUsableRecords
		}
	}

	if !ds.LiveSucceeded {
		ds.LiveFailure = failure
		fallback, drops := normalizeAll(a.fallback.LoadFallback(q.Text), product.SourceFallback)
		ds.DroppedRecords += len(drops)
		products = fallback
	}

	products = ApplyFilters(products, buildFilters(q))
	products = Rank(products, q.Text)
	if len(products) > q.Limit {
		products = products[:q.Limit]
	}

	if ds.LiveSucceeded {
		ds.LiveCount = len(products)
	} else {
		ds.FallbackCount = len(products)
	}

	elapsed := a.now().Sub(start)
	res := &Result{
		Query:        q,
		Products:     products,
		TotalResults: len(products),
		DataSource:   ds,
		ElapsedMS:    elapsed.Milliseconds(),
	}

	a.logger.Info("search completed",
		slog.String("query", q.Text),
		slog.String("source", string(ds.Source())),
		slog.Int("results", res.TotalResults),
		slog.Bool("live_attempted", ds.LiveAttempted),
		slog.String("live_failure", ds.LiveFailure),
		slog.Int("dropped", ds.DroppedRecords),
		slog.Duration("elapsed", elapsed))

	if a.metrics != nil {
		a.metrics.Record(telemetry.SearchEvent{
			Query:         q.Text,
			ResultCount:   res.TotalResults,
			LiveAttempted: ds.LiveAttempted,
			LiveSucceeded: ds.LiveSucceeded,
			LiveFailure:   ds.LiveFailure,
			Dropped:       ds.DroppedRecords,
			Latency:       elapsed,
			Timestamp:     start,
		})
	}

	return res, nil
}

// fetchLive calls the live source unless it is disabled, the query is empty
// or the circuit is open. It returns the outcome, whether a request was
// attempted and a failure label.
func (a *Arbiter) fetchLive(ctx context.Context, text string) (extract.Outcome, bool, string) {
	if a.fetcher == nil {
		return extract.Outcome{}, false, FailureDisabled
	}
	if strings.TrimSpace(text) == "" {
		return extract.Outcome{}, false, FailureEmptyQuery
	}
	if a.breaker != nil && !a.breaker.Allow() {
		a.logger.Debug("live search skipped", slog.String("breaker", a.breaker.Name()),
			slog.String("state", a.breaker.State().String()))
		return extract.Outcome{}, false, FailureCircuitOpen
	}

	var out extract.Outcome
	if a.retry == nil {
		out = a.fetcher.Fetch(ctx, text)
	} else {
		out, _ = wferrors.RetryWithResult(ctx, *a.retry, func() (extract.Outcome, error) {
			o := a.fetcher.Fetch(ctx, text)
			if o.OK() {
				return o, nil
			}
			if o.Err == nil {
				return o, errors.New(string(o.Reason))
			}
			return o, o.Err
		})
	}

	if !out.OK() && out.Reason == extract.ReasonNone {
		out.Reason = extract.ReasonUnreachable
	}
	if !out.OK() && out.Reason != extract.ReasonNoMatch {
		attrs := append([]any{slog.String("reason", string(out.Reason))}, wferrors.FormatForLog(out.Err)...)
		a.logger.Warn("live search failed", attrs...)
	}

	if a.breaker != nil {
		switch out.Reason {
		case extract.ReasonBlocked, extract.ReasonTimeout, extract.ReasonUnreachable, extract.ReasonParseError:
			a.breaker.RecordFailure()
		default:
			a.breaker.RecordSuccess()
		}
	}

	return out, true, string(out.Reason)
}
