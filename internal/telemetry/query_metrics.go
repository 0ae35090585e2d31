// Package telemetry records search and indexing activity.
//
// QueryMetrics keeps an in-process summary of recent queries (modes, terms,
// zero-result queries, latency buckets) for the status surfaces. Metrics
// exports the same activity to Prometheus. Nothing leaves the machine unless
// a metrics address is configured.
package telemetry

import (
	"cmp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

// LatencyBucket represents a latency histogram bucket.
type LatencyBucket string

const (
	BucketP1   LatencyBucket = "p1"   // <1ms
	BucketP10  LatencyBucket = "p10"  // 1-10ms
	BucketP50  LatencyBucket = "p50"  // 10-50ms
	BucketP250 LatencyBucket = "p250" // 50-250ms
	BucketSlow LatencyBucket = "slow" // >=250ms
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	switch {
	case d < time.Millisecond:
		return BucketP1
	case d < 10*time.Millisecond:
		return BucketP10
	case d < 50*time.Millisecond:
		return BucketP50
	case d < 250*time.Millisecond:
		return BucketP250
	default:
		return BucketSlow
	}
}

// QueryEvent is a single search as seen by the engine.
type QueryEvent struct {
	Query       string
	Mode        string
	ResultCount int
	Latency     time.Duration
	CacheHit    bool
	Timestamp   time.Time
}

// IsZeroResult returns true if this query returned no results.
func (e QueryEvent) IsZeroResult() bool {
	return e.ResultCount == 0
}

// CircularBuffer is a fixed-capacity FIFO buffer.
type CircularBuffer[T any] struct {
	items    []T
	head     int
	size     int
	capacity int
	mu       sync.RWMutex
}

// NewCircularBuffer creates a new circular buffer with the given capacity.
func NewCircularBuffer[T any](capacity int) *CircularBuffer[T] {
	if capacity <= 0 {
		capacity = 100
	}
	return &CircularBuffer[T]{
		items:    make([]T, capacity),
		capacity: capacity,
	}
}

// Add adds an item to the buffer. If full, the oldest item is evicted.
func (b *CircularBuffer[T]) Add(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items[b.head] = item
	b.head = (b.head + 1) % b.capacity
	if b.size < b.capacity {
		b.size++
	}
}

// Items returns all items oldest first.
func (b *CircularBuffer[T]) Items() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]T, b.size)
	if b.size < b.capacity {
		copy(result, b.items[:b.size])
	} else {
		copy(result, b.items[b.head:])
		copy(result[b.capacity-b.head:], b.items[:b.head])
	}
	return result
}

// Size returns the current number of items in the buffer.
func (b *CircularBuffer[T]) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// Clear removes all items from the buffer.
func (b *CircularBuffer[T]) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.head = 0
	b.size = 0
}

// ExtractTerms splits a query into lowercased terms of at least three
// characters. Path and URL separators split terms too, so "/api/orders"
// yields "api" and "orders".
func ExtractTerms(query string) []string {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	words := strings.FieldsFunc(query, func(r rune) bool {
		switch r {
		case ' ', '\t', '/', '\\', '*', '{', '}':
			return true
		}
		return false
	})
	var terms []string
	for _, w := range words {
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

// QueryMetricsSnapshot is an immutable snapshot of query metrics.
type QueryMetricsSnapshot struct {
	ModeCounts          map[string]int64        `json:"mode_counts"`
	TopTerms            []TermCount             `json:"top_terms"`
	ZeroResultQueries   []string                `json:"zero_result_queries"`
	LatencyDistribution map[LatencyBucket]int64 `json:"latency_distribution"`
	TotalQueries        int64                   `json:"total_queries"`
	ZeroResultCount     int64                   `json:"zero_result_count"`
	CacheHitCount       int64                   `json:"cache_hit_count"`
	ExactRepeatCount    int64                   `json:"exact_repeat_count"`
	Since               time.Time               `json:"since"`
}

// ZeroResultPercentage returns the percentage of zero-result queries.
func (s *QueryMetricsSnapshot) ZeroResultPercentage() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(s.TotalQueries) * 100
}

// CacheHitRate returns the fraction of queries answered from the result cache.
func (s *QueryMetricsSnapshot) CacheHitRate() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.CacheHitCount) / float64(s.TotalQueries)
}

// QueryMetricsConfig configures the query metrics collector.
type QueryMetricsConfig struct {
	TopTermsCapacity      int // default 100
	ZeroResultsCapacity   int // default 50
	RecentQueriesCapacity int // default 500
}

// DefaultQueryMetricsConfig returns the default capacities.
func DefaultQueryMetricsConfig() QueryMetricsConfig {
	return QueryMetricsConfig{
		TopTermsCapacity:      100,
		ZeroResultsCapacity:   50,
		RecentQueriesCapacity: 500,
	}
}

// QueryMetrics collects query telemetry. Safe for concurrent use.
type QueryMetrics struct {
	mu sync.Mutex

	modes           map[string]int64
	topTerms        *lru.Cache[string, int64]
	zeroResults     *CircularBuffer[string]
	latencies       map[LatencyBucket]int64
	recentQueries   *lru.Cache[uint64, struct{}]
	totalQueries    int64
	zeroResultCount int64
	cacheHits       int64
	exactRepeats    int64
	startTime       time.Time
}

// NewQueryMetrics creates a collector with the default configuration.
func NewQueryMetrics() *QueryMetrics {
	return NewQueryMetricsWithConfig(DefaultQueryMetricsConfig())
}

// NewQueryMetricsWithConfig creates a collector with custom capacities.
func NewQueryMetricsWithConfig(cfg QueryMetricsConfig) *QueryMetrics {
	def := DefaultQueryMetricsConfig()
	if cfg.TopTermsCapacity <= 0 {
		cfg.TopTermsCapacity = def.TopTermsCapacity
	}
	if cfg.ZeroResultsCapacity <= 0 {
		cfg.ZeroResultsCapacity = def.ZeroResultsCapacity
	}
	if cfg.RecentQueriesCapacity <= 0 {
		cfg.RecentQueriesCapacity = def.RecentQueriesCapacity
	}

	// lru.New only fails on a non-positive size.
	topTerms, _ := lru.New[string, int64](cfg.TopTermsCapacity)
	recent, _ := lru.New[uint64, struct{}](cfg.RecentQueriesCapacity)

	return &QueryMetrics{
		modes:         make(map[string]int64),
		topTerms:      topTerms,
		zeroResults:   NewCircularBuffer[string](cfg.ZeroResultsCapacity),
		latencies:     make(map[LatencyBucket]int64),
		recentQueries: recent,
		startTime:     time.Now(),
	}
}

// Record captures one search. A nil receiver is a no-op.
func (m *QueryMetrics) Record(event QueryEvent) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.modes[event.Mode]++
	m.totalQueries++

	for _, term := range ExtractTerms(event.Query) {
		count, _ := m.topTerms.Get(term)
		m.topTerms.Add(term, count+1)
	}

	if event.IsZeroResult() {
		m.zeroResults.Add(event.Query)
		m.zeroResultCount++
	}
	if event.CacheHit {
		m.cacheHits++
	}
	m.latencies[LatencyToBucket(event.Latency)]++

	key := xxhash.Sum64String(event.Mode + "\x00" + strings.ToLower(strings.TrimSpace(event.Query)))
	if _, seen := m.recentQueries.Get(key); seen {
		m.exactRepeats++
	}
	m.recentQueries.Add(key, struct{}{})
}

// Snapshot returns the current metrics. A nil receiver yields an empty snapshot.
func (m *QueryMetrics) Snapshot() *QueryMetricsSnapshot {
	if m == nil {
		return &QueryMetricsSnapshot{
			ModeCounts:          map[string]int64{},
			LatencyDistribution: map[LatencyBucket]int64{},
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	modes := make(map[string]int64, len(m.modes))
	for k, v := range m.modes {
		modes[k] = v
	}
	latencies := make(map[LatencyBucket]int64, len(m.latencies))
	for k, v := range m.latencies {
		latencies[k] = v
	}

	var topTerms []TermCount
	for _, key := range m.topTerms.Keys() {
		if count, ok := m.topTerms.Peek(key); ok {
			topTerms = append(topTerms, TermCount{Term: key, Count: count})
		}
	}
	slices.SortStableFunc(topTerms, func(a, b TermCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Term, b.Term)
	})

	return &QueryMetricsSnapshot{
		ModeCounts:          modes,
		TopTerms:            topTerms,
		ZeroResultQueries:   m.zeroResults.Items(),
		LatencyDistribution: latencies,
		TotalQueries:        m.totalQueries,
		ZeroResultCount:     m.zeroResultCount,
		CacheHitCount:       m.cacheHits,
		ExactRepeatCount:    m.exactRepeats,
		Since:               m.startTime,
	}
}

// Reset clears every counter and restarts the window.
func (m *QueryMetrics) Reset() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	clear(m.modes)
	clear(m.latencies)
	m.topTerms.Purge()
	m.recentQueries.Purge()
	m.zeroResults.Clear()
	m.totalQueries = 0
	m.zeroResultCount = 0
	m.cacheHits = 0
	m.exactRepeats = 0
	m.startTime = time.Now()
}
