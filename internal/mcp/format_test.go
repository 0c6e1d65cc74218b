package mcp

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/substratelabs/memcore/internal/search"
	"github.com/substratelabs/memcore/internal/store"
)

func TestFormatSearchResults_Empty(t *testing.T) {
	out := FormatSearchResults("nothing", &search.Response{Results: []*search.Result{}})
	assert.Contains(t, out, "No memories found")
	assert.Contains(t, out, "nothing")
}

func TestFormatSearchResults(t *testing.T) {
	resp := &search.Response{
		Results: []*search.Result{
			{
				Record: &store.Record{
					ID:              "rec-1",
					Content:         "the payment service retries three times",
					Type:            "fact",
					ImportanceScore: 0.7,
				},
				Score: 1.234,
			},
			nil, // nil results are skipped
			{Record: nil, Score: 0.5},
		},
		Strategy:    "hybrid",
		QueryTimeMs: 4,
		Cached:      true,
	}

	out := FormatSearchResults("payment retries", resp)
	assert.Contains(t, out, "Found 1 result")
	assert.Contains(t, out, "rec-1")
	assert.Contains(t, out, "payment service")
	assert.Contains(t, out, "hybrid")
	assert.Contains(t, out, "cached")
	assert.NotContains(t, out, "Found 1 results")
}

func TestFormatSearchResults_ShowsCandidateTotal(t *testing.T) {
	resp := &search.Response{
		Results: []*search.Result{
			{Record: &store.Record{ID: "rec-1", Content: "first", Type: "note"}, Score: 2},
			{Record: &store.Record{ID: "rec-2", Content: "second", Type: "note"}, Score: 1},
		},
		TotalCount: 7,
		Strategy:   "exact",
	}

	out := FormatSearchResults("paged", resp)
	assert.Contains(t, out, "Found 2 results of 7")
}

func TestFormatRecord(t *testing.T) {
	rec := &store.Record{
		ID:              "rec-9",
		Content:         "database backups run nightly at 0200 UTC",
		Type:            "fact",
		Metadata:        map[string]any{"source": "runbook", "team": "infra"},
		ImportanceScore: 0.9,
		AccessCount:     4,
		CreatedAt:       time.Now(),
	}

	out := FormatRecord(rec)
	assert.Contains(t, out, "rec-9")
	assert.Contains(t, out, "nightly at 0200")
	assert.Contains(t, out, "source: runbook")
	assert.Contains(t, out, "team: infra")

	// Metadata keys render in sorted order.
	assert.Less(t, strings.Index(out, "source:"), strings.Index(out, "team:"))
}

func TestSnippet_TruncatesAtWordBoundary(t *testing.T) {
	long := strings.Repeat("word ", 100)
	out := snippet(long)

	assert.LessOrEqual(t, len(out), snippetMaxLen+3)
	assert.True(t, strings.HasSuffix(out, "..."))
	assert.NotContains(t, out, "wo...", "must not cut mid-word")
}

func TestFormatConsolidation(t *testing.T) {
	none := formatConsolidation(ConsolidateOutput{Scanned: 5})
	assert.Contains(t, none, "No duplicates")

	some := formatConsolidation(ConsolidateOutput{Merged: 2, Deleted: 2, Scanned: 10})
	assert.Contains(t, some, "Merged: 2")
	assert.Contains(t, some, "Scanned: 10")
}

func TestFormatStats(t *testing.T) {
	out := formatStats(MemoryStatsOutput{
		Records:     3,
		WordEntries: 12,
		TrigramRows: 40,
		Vectors:     3,
		Cache:       &CacheStats{Size: 1, Capacity: 100, Hits: 5, Misses: 2},
	})

	assert.Contains(t, out, "Records: 3")
	assert.Contains(t, out, "5 hits")
	assert.Contains(t, out, "1/100 entries")
}
