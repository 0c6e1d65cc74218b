// Package telemetry tracks in-process query metrics for search tuning.
// All data stays local, nothing is reported anywhere.
package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LatencyBucket is a coarse latency histogram bucket.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// latencyToBucket converts a duration to its histogram bucket.
func latencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// Query is one completed search, reported by the engine.
type Query struct {
	Text        string
	Strategy    string
	ResultCount int
	Latency     time.Duration
	Cached      bool
}

// StrategySnapshot is the accumulated counters for one strategy.
type StrategySnapshot struct {
	Queries     uint64                   `json:"queries"`
	ZeroResults uint64                   `json:"zero_results"`
	CacheHits   uint64                   `json:"cache_hits"`
	Latency     map[LatencyBucket]uint64 `json:"latency"`
}

// Snapshot is a point-in-time copy of all metrics.
type Snapshot struct {
	UniqueQueries uint64                      `json:"unique_queries"`
	PerStrategy   map[string]StrategySnapshot `json:"per_strategy"`
}

type strategyCounters struct {
	queries     uint64
	zeroResults uint64
	cacheHits   uint64
	latency     map[LatencyBucket]uint64
}

// QueryMetrics accumulates per-strategy search counters. Query text is
// never stored; distinct queries are tracked by hash in a bounded LRU,
// so the unique count is approximate once the window overflows.
type QueryMetrics struct {
	mu            sync.Mutex
	perStrategy   map[string]*strategyCounters
	seen          *lru.Cache[string, struct{}]
	uniqueQueries uint64
}

// DefaultSeenWindow is the number of distinct query hashes remembered.
const DefaultSeenWindow = 512

// NewQueryMetrics creates a metrics accumulator.
func NewQueryMetrics(seenWindow int) (*QueryMetrics, error) {
	if seenWindow <= 0 {
		seenWindow = DefaultSeenWindow
	}
	seen, err := lru.New[string, struct{}](seenWindow)
	if err != nil {
		return nil, err
	}
	return &QueryMetrics{
		perStrategy: make(map[string]*strategyCounters),
		seen:        seen,
	}, nil
}

// Record adds one completed query to the counters.
func (m *QueryMetrics) Record(q Query) {
	hash := hashQuery(q.Text)

	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.perStrategy[q.Strategy]
	if c == nil {
		c = &strategyCounters{latency: make(map[LatencyBucket]uint64)}
		m.perStrategy[q.Strategy] = c
	}

	c.queries++
	c.latency[latencyToBucket(q.Latency)]++
	if q.ResultCount == 0 {
		c.zeroResults++
	}
	if q.Cached {
		c.cacheHits++
	}

	if _, ok := m.seen.Get(hash); !ok {
		m.seen.Add(hash, struct{}{})
		m.uniqueQueries++
	}
}

// Snapshot returns a copy of the current counters.
func (m *QueryMetrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		UniqueQueries: m.uniqueQueries,
		PerStrategy:   make(map[string]StrategySnapshot, len(m.perStrategy)),
	}
	for strategy, c := range m.perStrategy {
		latency := make(map[LatencyBucket]uint64, len(c.latency))
		for b, n := range c.latency {
			latency[b] = n
		}
		snap.PerStrategy[strategy] = StrategySnapshot{
			Queries:     c.queries,
			ZeroResults: c.zeroResults,
			CacheHits:   c.cacheHits,
			Latency:     latency,
		}
	}
	return snap
}

// Strategies returns the recorded strategy names in sorted order.
func (s Snapshot) Strategies() []string {
	names := make([]string, 0, len(s.PerStrategy))
	for name := range s.PerStrategy {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// hashQuery hashes normalized query text so raw queries never persist.
func hashQuery(text string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(text))))
	return hex.EncodeToString(sum[:8])
}
