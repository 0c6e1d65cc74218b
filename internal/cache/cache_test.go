package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSet_RoundTrip(t *testing.T) {
	c := New(10, time.Minute)

	c.Set("search:exact:hello", []string{"r1", "r2"})

	got, ok := c.Get("search:exact:hello")
	require.True(t, ok)
	assert.Equal(t, []string{"r1", "r2"}, got)
}

func TestGet_MissOnUnknownKey(t *testing.T) {
	c := New(10, time.Minute)

	_, ok := c.Get("search:exact:absent")
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, uint64(0), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
}

func TestGet_ExpiredEntryEvictedAndMissed(t *testing.T) {
	c := New(10, 10*time.Millisecond)

	c.Set("k", "v")
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}

func TestSet_EvictsLeastRecentlyUsedAtCapacity(t *testing.T) {
	c := New(3, time.Minute)

	c.Set("q1", 1)
	c.Set("q2", 2)
	c.Set("q3", 3)

	// Touch q1 so q2 becomes the least recently used
	_, ok := c.Get("q1")
	require.True(t, ok)

	c.Set("q4", 4)

	_, ok = c.Get("q2")
	assert.False(t, ok, "q2 should have been evicted")
	for _, k := range []string{"q1", "q3", "q4"} {
		_, ok := c.Get(k)
		assert.True(t, ok, "%s should survive", k)
	}
	assert.Equal(t, uint64(1), c.Stats().Evictions)
}

func TestInvalidate_RemovesMatchingSubstrings(t *testing.T) {
	c := New(10, time.Minute)

	c.Set(SearchKey("exact", "hello", 10, 0, ""), "a")
	c.Set(SearchKey("fuzzy", "hello", 10, 0, ""), "b")
	c.Set(RecordKey("r1"), "c")
	c.Set(RecordKey("r2"), "d")

	removed := c.Invalidate(SearchPattern, RecordKey("r1"))
	assert.Equal(t, 3, removed)

	_, ok := c.Get(RecordKey("r2"))
	assert.True(t, ok, "non-matching key survives")
}

func TestInvalidate_NoPatterns(t *testing.T) {
	c := New(10, time.Minute)
	c.Set("k", "v")
	assert.Zero(t, c.Invalidate())
	assert.Equal(t, 1, c.Len())
}

func TestSweep_PurgesExpiredOnly(t *testing.T) {
	c := New(10, 10*time.Millisecond)
	c.Set("old1", 1)
	c.Set("old2", 2)
	time.Sleep(20 * time.Millisecond)

	c.SetTTL(time.Minute)
	c.Set("fresh", 3)

	purged := c.Sweep()
	assert.Equal(t, 2, purged)
	assert.Equal(t, 1, c.Len())

	_, ok := c.Get("fresh")
	assert.True(t, ok)
}

func TestSetTTL_AppliesToSubsequentSets(t *testing.T) {
	c := New(10, time.Minute)
	c.SetTTL(5 * time.Millisecond)
	c.Set("short", 1)
	time.Sleep(15 * time.Millisecond)

	_, ok := c.Get("short")
	assert.False(t, ok)
}

func TestSearchKey_NormalizesQuery(t *testing.T) {
	a := SearchKey("hybrid", "  Hello World ", 10, 0.3, "doc")
	b := SearchKey("hybrid", "hello world", 10, 0.3, "doc")
	assert.Equal(t, a, b)

	c := SearchKey("hybrid", "hello world", 20, 0.3, "doc")
	assert.NotEqual(t, a, c, "limit participates in the key")
}

func TestStats_TracksHitsAndSize(t *testing.T) {
	c := New(5, time.Minute)
	c.Set("k", "v")

	_, _ = c.Get("k")
	_, _ = c.Get("k")
	_, _ = c.Get("absent")

	stats := c.Stats()
	assert.Equal(t, uint64(2), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, 5, stats.Capacity)
}
