// Package telemetry records aggregate search statistics: how often live data
// was served, why the retailer failed, which terms are popular and which
// queries found nothing. Data stays local; persistence is optional.
package telemetry

import (
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LatencyBucket represents a latency histogram bucket.
type LatencyBucket string

const (
	BucketP100   LatencyBucket = "p100"   // <100ms
	BucketP500   LatencyBucket = "p500"   // 100-500ms
	BucketP1000  LatencyBucket = "p1000"  // 500ms-1s
	BucketP5000  LatencyBucket = "p5000"  // 1-5s
	BucketP10000 LatencyBucket = "p10000" // >=5s
)

// LatencyToBucket converts a duration to its histogram bucket.
// Buckets are wide because a live fetch can take seconds.
func LatencyToBucket(d time.Duration) LatencyBucket {
	switch ms := d.Milliseconds(); {
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	case ms < 1000:
		return BucketP1000
	case ms < 5000:
		return BucketP5000
	default:
		return BucketP10000
	}
}

// SearchEvent describes one completed search.
type SearchEvent struct {
	Query         string
	ResultCount   int
	LiveAttempted bool
	LiveSucceeded bool
	LiveFailure   string
	Dropped       int
	Latency       time.Duration
	Timestamp     time.Time
}

// ExtractTerms lower-cases the query and keeps words of three or more bytes.
func ExtractTerms(query string) []string {
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if len(w) >= 3 {
			terms = append(terms, w)
		}
	}
	return terms
}

// TermCount represents a term and its frequency count.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// Snapshot is a point-in-time copy of the metrics.
type Snapshot struct {
	TotalSearches       int64                   `json:"total_searches"`
	LiveServed          int64                   `json:"live_served"`
	FallbackServed      int64                   `json:"fallback_served"`
	LiveSkipped         int64                   `json:"live_skipped"`
	FailureReasons      map[string]int64        `json:"failure_reasons"`
	DroppedRecords      int64                   `json:"dropped_records"`
	ZeroResultCount     int64                   `json:"zero_result_count"`
	ZeroResultQueries   []string                `json:"zero_result_queries"`
	TopTerms            []TermCount             `json:"top_terms"`
	LatencyDistribution map[LatencyBucket]int64 `json:"latency_distribution"`
	Since               time.Time               `json:"since"`
}

// LiveRate returns the share of searches answered with live data.
func (s *Snapshot) LiveRate() float64 {
	if s.TotalSearches == 0 {
		return 0
	}
	return float64(s.LiveServed) / float64(s.TotalSearches)
}

// Config configures a Metrics collector.
type Config struct {
	TopTermsCapacity    int           // max distinct terms tracked (default 100)
	ZeroResultsCapacity int           // max zero-result queries kept (default 100)
	FlushInterval       time.Duration // 0 disables periodic flushing
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		TopTermsCapacity:    100,
		ZeroResultsCapacity: 100,
		FlushInterval:       time.Minute,
	}
}

// Metrics collects search telemetry. Safe for concurrent use.
type Metrics struct {
	mu sync.Mutex

	total          int64
	live           int64
	fallback       int64
	skipped        int64
	dropped        int64
	zeroResults    int64
	failures       map[string]int64
	latencies      map[LatencyBucket]int64
	topTerms       *lru.Cache[string, int64]
	zeroResultRing *CircularBuffer[string]
	start          time.Time

	// Deltas not yet written to the store.
	pendingCounters map[string]int64
	pendingTerms    map[string]int64
	pendingZero     []SearchEvent

	store  Store
	logger *slog.Logger
	ticker *time.Ticker
	stopCh chan struct{}
	closed bool
}

// NewMetrics creates a collector. A nil store keeps metrics in memory only.
func NewMetrics(store Store, cfg Config) *Metrics {
	if cfg.TopTermsCapacity <= 0 {
		cfg.TopTermsCapacity = 100
	}
	if cfg.ZeroResultsCapacity <= 0 {
		cfg.ZeroResultsCapacity = 100
	}

	topTerms, _ := lru.New[string, int64](cfg.TopTermsCapacity)
	m := &Metrics{
		failures:        make(map[string]int64),
		latencies:       make(map[LatencyBucket]int64),
		topTerms:        topTerms,
		zeroResultRing:  NewCircularBuffer[string](cfg.ZeroResultsCapacity),
		start:           time.Now(),
		pendingCounters: make(map[string]int64),
		pendingTerms:    make(map[string]int64),
		store:           store,
		logger:          slog.Default(),
		stopCh:          make(chan struct{}),
	}

	if cfg.FlushInterval > 0 && store != nil {
		m.ticker = time.NewTicker(cfg.FlushInterval)
		go m.flushLoop()
	}
	return m
}

func (m *Metrics) flushLoop() {
	for {
		select {
		case <-m.ticker.C:
			if err := m.Flush(); err != nil {
				m.logger.Warn("telemetry flush failed", slog.String("error", err.Error()))
			}
		case <-m.stopCh:
			return
		}
	}
}

// Record captures one search.
func (m *Metrics) Record(e SearchEvent) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	m.total++
	m.count("searches", 1)

	switch {
	case !e.LiveAttempted:
		m.skipped++
		m.fallback++
		m.count("live_skipped", 1)
		m.count("fallback", 1)
	case e.LiveSucceeded:
		m.live++
		m.count("live", 1)
	default:
		m.fallback++
		m.count("fallback", 1)
	}

	if e.LiveFailure != "" {
		m.failures[e.LiveFailure]++
		m.count("failure:"+e.LiveFailure, 1)
	}
	if e.Dropped > 0 {
		m.dropped += int64(e.Dropped)
		m.count("dropped", int64(e.Dropped))
	}

	bucket := LatencyToBucket(e.Latency)
	m.latencies[bucket]++
	m.count("latency:"+string(bucket), 1)

	for _, term := range ExtractTerms(e.Query) {
		n, _ := m.topTerms.Get(term)
		m.topTerms.Add(term, n+1)
		m.pendingTerms[term]++
	}

	if e.ResultCount == 0 {
		m.zeroResults++
		m.zeroResultRing.Add(e.Query)
		m.pendingZero = append(m.pendingZero, e)
	}
}

// count must be called with mu held.
func (m *Metrics) count(key string, n int64) {
	if m.store != nil {
		m.pendingCounters[key] += n
	}
}

// Snapshot returns the current metrics.
func (m *Metrics) Snapshot() *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	failures := make(map[string]int64, len(m.failures))
	for k, v := range m.failures {
		failures[k] = v
	}
	latencies := make(map[LatencyBucket]int64, len(m.latencies))
	for k, v := range m.latencies {
		latencies[k] = v
	}

	terms := make([]TermCount, 0, m.topTerms.Len())
	for _, key := range m.topTerms.Keys() {
		if n, ok := m.topTerms.Peek(key); ok {
			terms = append(terms, TermCount{Term: key, Count: n})
		}
	}
	sort.SliceStable(terms, func(i, j int) bool {
		if terms[i].Count != terms[j].Count {
			return terms[i].Count > terms[j].Count
		}
		return terms[i].Term < terms[j].Term
	})

	return &Snapshot{
		TotalSearches:       m.total,
		LiveServed:          m.live,
		FallbackServed:      m.fallback,
		LiveSkipped:         m.skipped,
		FailureReasons:      failures,
		DroppedRecords:      m.dropped,
		ZeroResultCount:     m.zeroResults,
		ZeroResultQueries:   m.zeroResultRing.Items(),
		TopTerms:            terms,
		LatencyDistribution: latencies,
		Since:               m.start,
	}
}

// Flush writes pending deltas to the store. A no-op without a store.
func (m *Metrics) Flush() error {
	if m.store == nil {
		return nil
	}

	m.mu.Lock()
	counters, terms, zero := m.pendingCounters, m.pendingTerms, m.pendingZero
	m.pendingCounters = make(map[string]int64)
	m.pendingTerms = make(map[string]int64)
	m.pendingZero = nil
	m.mu.Unlock()

	today := time.Now().Format("2006-01-02")
	if err := m.store.AddCounters(today, counters); err != nil {
		return err
	}
	if err := m.store.UpsertTermCounts(terms); err != nil {
		return err
	}
	for _, e := range zero {
		if err := m.store.AddZeroResultQuery(e.Query, e.Timestamp); err != nil {
			return err
		}
	}
	return nil
}

// Close stops periodic flushing, writes what is pending and closes the store.
func (m *Metrics) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	if m.ticker != nil {
		m.ticker.Stop()
		close(m.stopCh)
	}
	if m.store == nil {
		return nil
	}
	if err := m.Flush(); err != nil {
		_ = m.store.Close()
		return err
	}
	return m.store.Close()
}
