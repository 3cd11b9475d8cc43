// Package extract fetches the retailer's search page and turns it into raw
// product records.
//
// The Adapter makes exactly one request per Fetch and never retries. Every
// failure, from a refused connection to markup it cannot read, is reported as
// an Outcome rather than an error, so callers can decide what to do instead.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	wferrors "github.com/tomrikert/wayfair-mcp-server/internal/errors"
	"github.com/tomrikert/wayfair-mcp-server/internal/product"
)

// Defaults for Config fields left zero.
const (
	DefaultSearchURL    = "https://www.wayfair.com/keyword.php?keyword={query}"
	DefaultTimeout      = 10 * time.Second
	DefaultMaxBodyBytes = 5 << 20
	DefaultUserAgent    = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// QueryPlaceholder is replaced by the escaped query text in Config.SearchURL.
const QueryPlaceholder = "{query}"

// Doer sends an HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config configures the Adapter.
type Config struct {
	// SearchURL is the search page URL containing QueryPlaceholder.
	SearchURL string
	// UserAgent is sent with every request.
	UserAgent string
	// Timeout bounds the whole request including reading the body.
	Timeout time.Duration
	// MaxBodyBytes caps how much of the page is read.
	MaxBodyBytes int64
}

func (c Config) withDefaults() Config {
	if c.SearchURL == "" {
		c.SearchURL = DefaultSearchURL
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return c
}

// Adapter fetches and parses the retailer's search results.
// It holds no per-request state and is safe for concurrent use.
type Adapter struct {
	cfg        Config
	client     Doer
	strategies []Strategy
	logger     *slog.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithDoer replaces the HTTP client.
func WithDoer(d Doer) Option {
	return func(a *Adapter) {
		if d != nil {
			a.client = d
		}
	}
}

// WithStrategies replaces the extraction strategies.
func WithStrategies(strategies ...Strategy) Option {
	return func(a *Adapter) {
		a.strategies = strategies
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates an Adapter.
func New(cfg Config, opts ...Option) *Adapter {
	cfg = cfg.withDefaults()
	a := &Adapter{
		cfg:        cfg,
		client:     &http.Client{Timeout: cfg.Timeout},
		strategies: DefaultStrategies(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Config returns the effective configuration.
func (a *Adapter) Config() Config {
	return a.cfg
}

// Fetch requests the search page for text and extracts records from it.
func (a *Adapter) Fetch(ctx context.Context, text string) Outcome {
	start := time.Now()
	out := a.fetch(ctx, strings.TrimSpace(text))

	attrs := []any{
		slog.String("query", text),
		slog.String("outcome", out.Kind.String()),
		slog.Int("records", len(out.Records)),
		slog.Duration("elapsed", time.Since(start)),
	}
	if out.Status != 0 {
		attrs = append(attrs, slog.Int("status", out.Status))
	}
	if out.Strategy != "" {
		attrs = append(attrs, slog.String("strategy", out.Strategy))
	}
	if out.Kind == KindFailure {
		attrs = append(attrs, slog.String("reason", string(out.Reason)))
		attrs = append(attrs, wferrors.FormatForLog(out.Err)...)
	}
	a.logger.Debug("live fetch finished", attrs...)

	return out
}

func (a *Adapter) fetch(ctx context.Context, text string) Outcome {
	if text == "" {
		return Failure(ReasonNoMatch, wferrors.New(wferrors.ErrCodeNoMatch, "empty query text", nil))
	}

	target, err := a.searchURL(text)
	if err != nil {
		return Failure(ReasonUnreachable, wferrors.ConfigError("invalid search URL", err))
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return Failure(ReasonUnreachable, wferrors.ConfigError("failed to build request", err))
	}
	req.Header.Set("User-Agent", a.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := a.client.Do(req)
	if err != nil {
		return transportFailure(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		out := statusFailure(resp.StatusCode)
		out.Status = resp.StatusCode
		return out
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, a.cfg.MaxBodyBytes))
	if err != nil {
		out := transportFailure(err)
		out.Status = resp.StatusCode
		return out
	}

	out := a.parse(body, target)
	out.Status = resp.StatusCode
	return out
}

// searchURL substitutes the query into the configured URL.
func (a *Adapter) searchURL(text string) (*url.URL, error) {
	raw := a.cfg.SearchURL
	if strings.Contains(raw, QueryPlaceholder) {
		raw = strings.ReplaceAll(raw, QueryPlaceholder, url.QueryEscape(text))
	} else {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, err
		}
		q := u.Query()
		q.Set("keyword", text)
		u.RawQuery = q.Encode()
		raw = u.String()
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	return u, nil
}

// parse runs the strategies in order against a successful response body.
func (a *Adapter) parse(body []byte, base *url.URL) Outcome {
	if len(bytes.TrimSpace(body)) == 0 {
		return Failure(ReasonUnreachable,
			wferrors.New(wferrors.ErrCodeNetworkUnavailable, "empty response body", nil))
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Failure(ReasonParseError, wferrors.New(wferrors.ErrCodeParseFailed, "unreadable HTML", err))
	}

	for _, strategy := range a.strategies {
		records := runStrategy(strategy, doc, base)
		if len(records) == 0 {
			continue
		}
		out := classify(records)
		out.Strategy = strategy.Name
		return out
	}

	return pageFailure(doc)
}

// runStrategy isolates a strategy so a bug in one cannot take down the request.
func runStrategy(s Strategy, doc *goquery.Document, base *url.URL) (records []product.RawRecord) {
	defer func() {
		if r := recover(); r != nil {
			records = nil
		}
	}()
	return s.Extract(doc, base)
}

// classify decides between Success and Partial from the extracted records.
func classify(records []product.RawRecord) Outcome {
	var issues []string
	for i, r := range records {
		if r.Price == nil {
			issues = append(issues, fmt.Sprintf("record %d (%s): no price", i, r.Name))
		}
		if r.Rating == nil {
			issues = append(issues, fmt.Sprintf("record %d (%s): no rating", i, r.Name))
		}
	}
	if len(issues) > 0 {
		return Partial(records, issues)
	}
	return Success(records)
}

var (
	challengeMarkers = []string{
		"px-captcha", "access to this page has been denied", "pardon our interruption",
		"are you a robot", "verify you are a human",
	}
	noResultsMarkers = []string{
		"no results found", "we couldn't find", "we could not find", "0 results for",
	}
)

// pageFailure explains a page no strategy could read.
func pageFailure(doc *goquery.Document) Outcome {
	html, _ := doc.Html()
	lower := strings.ToLower(html + "\n" + doc.Text())

	for _, m := range challengeMarkers {
		if strings.Contains(lower, m) {
			return Failure(ReasonBlocked,
				wferrors.New(wferrors.ErrCodeBlocked, "bot challenge page served", nil).WithDetail("marker", m))
		}
	}
	if doc.Find(`[data-testid*="noResults"], [class*="no-results"], [class*="NoResults"]`).Length() > 0 {
		return Failure(ReasonNoMatch, wferrors.New(wferrors.ErrCodeNoMatch, "search returned no results", nil))
	}
	for _, m := range noResultsMarkers {
		if strings.Contains(lower, m) {
			return Failure(ReasonNoMatch, wferrors.New(wferrors.ErrCodeNoMatch, "search returned no results", nil))
		}
	}
	return Failure(ReasonParseError,
		wferrors.New(wferrors.ErrCodeParseFailed, "no extraction strategy matched the page", nil))
}

// statusFailure maps a non-2xx status. 403 and 429 are anti-automation responses.
func statusFailure(status int) Outcome {
	msg := fmt.Sprintf("retailer returned status %d", status)
	switch status {
	case http.StatusForbidden, http.StatusTooManyRequests:
		return Failure(ReasonBlocked, wferrors.New(wferrors.ErrCodeBlocked, msg, nil))
	default:
		return Failure(ReasonUnreachable, wferrors.New(wferrors.ErrCodeNetworkUnavailable, msg, nil))
	}
}

// transportFailure maps a client or body-read error.
func transportFailure(err error) Outcome {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return Failure(ReasonTimeout, wferrors.NetworkError("retailer request timed out", err))
	}
	return Failure(ReasonUnreachable, wferrors.New(wferrors.ErrCodeNetworkUnavailable, "retailer unreachable", err))
}
