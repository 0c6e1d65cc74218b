package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/substratelabs/memcore/internal/cache"
	"github.com/substratelabs/memcore/internal/memory"
	"github.com/substratelabs/memcore/internal/search"
	"github.com/substratelabs/memcore/internal/store"
)

func TestNew_BufferGetsPlainStyles(t *testing.T) {
	// A bytes.Buffer is not a TTY, so output must carry no escapes.
	var buf bytes.Buffer
	w := New(&buf)

	w.Success("stored")
	w.Error("broke")
	w.Warning("careful")

	out := buf.String()
	assert.NotContains(t, out, "\x1b[")
	assert.Contains(t, out, "ok stored")
	assert.Contains(t, out, "error: broke")
	assert.Contains(t, out, "warning: careful")
}

func TestSearchResults_Empty(t *testing.T) {
	var buf bytes.Buffer
	w := NewPlain(&buf)

	w.SearchResults("ghosts", &search.Response{Results: []*search.Result{}})
	assert.Contains(t, buf.String(), `no memories found for "ghosts"`)
}

func TestSearchResults(t *testing.T) {
	var buf bytes.Buffer
	w := NewPlain(&buf)

	resp := &search.Response{
		Results: []*search.Result{
			{
				Record: &store.Record{
					ID:              "rec-1",
					Content:         "first line of the memory\nsecond line ignored",
					Type:            "note",
					ImportanceScore: 0.8,
				},
				Score: 0.912,
			},
		},
		Strategy:    "exact",
		QueryTimeMs: 3,
	}

	w.SearchResults("memory", resp)
	out := buf.String()

	assert.Contains(t, out, "1 result for \"memory\"")
	assert.Contains(t, out, "0.912")
	assert.Contains(t, out, "first line of the memory")
	assert.NotContains(t, out, "second line ignored")
	assert.Contains(t, out, "rec-1")
	assert.Contains(t, out, "strategy exact")
}

func TestStats(t *testing.T) {
	var buf bytes.Buffer
	w := NewPlain(&buf)

	w.Stats(&memory.Stats{
		Records:     5,
		WordEntries: 40,
		TrigramRows: 120,
		Vectors:     5,
		Cache:       &cache.Stats{Size: 2, Capacity: 100, Hits: 7},
	})

	out := buf.String()
	assert.Contains(t, out, "memory store")
	assert.Contains(t, out, "records")
	assert.Contains(t, out, "5")
	assert.Contains(t, out, "query cache")
	assert.Contains(t, out, "hits")
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "short", firstLine("short"))
	assert.Equal(t, "a", firstLine("a\nb\nc"))

	long := strings.Repeat("x", 200)
	got := firstLine(long)
	assert.Len(t, got, 80)
	assert.True(t, strings.HasSuffix(got, "..."))
}
