// Package cache provides the bounded query cache in front of the search
// strategies: LRU eviction at capacity, per-entry TTL checked lazily on
// read, substring-pattern invalidation on writes, and a timer-driven
// sweep that purges expired entries independent of access traffic.
//
// The cache is an optimization, never a correctness dependency; callers
// treat every failure as a miss.
package cache

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Defaults for the query cache.
const (
	DefaultCapacity      = 1000
	DefaultTTL           = 5 * time.Minute
	DefaultSweepInterval = time.Minute
)

// entry is a cached value with its expiry timestamp.
type entry struct {
	value     any
	expiresAt time.Time
}

// Stats reports cache effectiveness counters.
type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
	Size      int    `json:"size"`
	Capacity  int    `json:"capacity"`
}

// QueryCache is a bounded LRU+TTL cache keyed by normalized query
// strings. Safe for concurrent use; the underlying LRU serializes
// access internally, so the sweep goroutine can run alongside reads
// and writes without iterator invalidation.
type QueryCache struct {
	lru      *lru.Cache[string, entry]
	ttl      time.Duration
	capacity int
	logger   *slog.Logger

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64

	mu sync.Mutex // guards ttl updates from config reload
}

// New creates a query cache with the given capacity and TTL.
// Non-positive arguments fall back to defaults.
func New(capacity int, ttl time.Duration) *QueryCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	c := &QueryCache{
		ttl:      ttl,
		capacity: capacity,
		logger:   slog.Default(),
	}
	// Constructor only errors on capacity <= 0, which is guarded above.
	c.lru, _ = lru.NewWithEvict[string, entry](capacity, func(string, entry) {
		c.evictions.Add(1)
	})
	return c
}

// Get returns the cached value for key if present and unexpired.
// Expired entries are evicted on sight and reported as a miss.
func (c *QueryCache) Get(key string) (any, bool) {
	e, ok := c.lru.Get(key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.lru.Remove(key)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return e.value, true
}

// Set stores value under key with expiry now+ttl. At capacity the
// least-recently-used entry is evicted first.
func (c *QueryCache) Set(key string, value any) {
	c.mu.Lock()
	ttl := c.ttl
	c.mu.Unlock()

	c.lru.Add(key, entry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	})
}

// Invalidate removes every key containing any of the given substrings.
// Returns the number of entries removed.
func (c *QueryCache) Invalidate(patterns ...string) int {
	if len(patterns) == 0 {
		return 0
	}

	removed := 0
	for _, key := range c.lru.Keys() {
		for _, p := range patterns {
			if strings.Contains(key, p) {
				if c.lru.Remove(key) {
					removed++
				}
				break
			}
		}
	}
	return removed
}

// Purge drops every entry.
func (c *QueryCache) Purge() {
	c.lru.Purge()
}

// SetTTL updates the TTL applied to subsequent Set calls.
// Used by config hot-reload; existing entries keep their expiry.
func (c *QueryCache) SetTTL(ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.ttl = ttl
	c.mu.Unlock()
}

// Len returns the current number of entries, expired or not.
func (c *QueryCache) Len() int {
	return c.lru.Len()
}

// Stats returns a snapshot of cache counters.
func (c *QueryCache) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Size:      c.lru.Len(),
		Capacity:  c.capacity,
	}
}

// Sweep removes every TTL-expired entry regardless of access pattern.
// Returns the number of entries purged. Peek avoids promoting entries
// in the recency order while scanning.
func (c *QueryCache) Sweep() int {
	now := time.Now()
	purged := 0
	for _, key := range c.lru.Keys() {
		e, ok := c.lru.Peek(key)
		if !ok {
			continue
		}
		if now.After(e.expiresAt) {
			if c.lru.Remove(key) {
				purged++
			}
		}
	}
	return purged
}

// StartSweeper runs Sweep on the given interval until ctx is cancelled.
func (c *QueryCache) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := c.Sweep(); n > 0 {
					c.logger.Debug("cache sweep purged expired entries",
						slog.Int("purged", n))
				}
			}
		}
	}()
}
