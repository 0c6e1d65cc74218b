package mcp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/substratelabs/memcore/internal/search"
	"github.com/substratelabs/memcore/internal/store"
)

const snippetMaxLen = 300

// FormatSearchResults formats search results as markdown.
func FormatSearchResults(query string, resp *search.Response) string {
	valid := filterValidResults(resp.Results)

	if len(valid) == 0 {
		return fmt.Sprintf("No memories found for \"%s\"", query)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Memories matching \"%s\"\n\n", query))
	sb.WriteString(fmt.Sprintf("Found %d result", len(valid)))
	if len(valid) != 1 {
		sb.WriteString("s")
	}
	if resp.TotalCount > len(valid) {
		sb.WriteString(fmt.Sprintf(" of %d", resp.TotalCount))
	}
	sb.WriteString(fmt.Sprintf(" (%s, %dms", resp.Strategy, resp.QueryTimeMs))
	if resp.Cached {
		sb.WriteString(", cached")
	}
	sb.WriteString(")\n\n")

	for i, r := range valid {
		formatResult(&sb, i+1, r)
	}
	return sb.String()
}

// FormatRecord formats one record as markdown.
func FormatRecord(rec *store.Record) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Memory %s\n\n", rec.ID))
	sb.WriteString(rec.Content)
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("**Type:** %s | **Importance:** %.2f | **Accessed:** %d times\n",
		rec.Type, rec.ImportanceScore, rec.AccessCount))
	if len(rec.Metadata) > 0 {
		sb.WriteString("\n**Metadata:**\n")
		writeMetadata(&sb, rec.Metadata)
	}
	return sb.String()
}

// filterValidResults removes results with nil records.
func filterValidResults(results []*search.Result) []*search.Result {
	valid := make([]*search.Result, 0, len(results))
	for _, r := range results {
		if r != nil && r.Record != nil {
			valid = append(valid, r)
		}
	}
	return valid
}

// formatResult formats a single result entry.
func formatResult(sb *strings.Builder, rank int, r *search.Result) {
	rec := r.Record
	sb.WriteString(fmt.Sprintf("### %d. %s (score %.3f)\n\n", rank, rec.ID, r.Score))
	sb.WriteString(snippet(rec.Content))
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("*type %s, importance %.2f*\n\n", rec.Type, rec.ImportanceScore))
}

// snippet truncates content for display, cutting at a word boundary.
func snippet(content string) string {
	if len(content) <= snippetMaxLen {
		return content
	}
	cut := content[:snippetMaxLen]
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "..."
}

// formatConsolidation renders a consolidation summary as markdown.
func formatConsolidation(out ConsolidateOutput) string {
	if out.Merged == 0 {
		return fmt.Sprintf("No duplicates found among %d memories.", out.Scanned)
	}
	return fmt.Sprintf("## Consolidation complete\n\n"+
		"- Scanned: %d memories\n"+
		"- Merged: %d pairs\n"+
		"- Deleted: %d records\n",
		out.Scanned, out.Merged, out.Deleted)
}

// formatStats renders store and cache counters as markdown.
func formatStats(out MemoryStatsOutput) string {
	var sb strings.Builder
	sb.WriteString("## Memory Store Statistics\n\n")
	sb.WriteString(fmt.Sprintf("- Records: %d\n", out.Records))
	sb.WriteString(fmt.Sprintf("- Word index entries: %d\n", out.WordEntries))
	sb.WriteString(fmt.Sprintf("- Trigram index rows: %d\n", out.TrigramRows))
	sb.WriteString(fmt.Sprintf("- Vectors: %d\n", out.Vectors))
	if out.Cache != nil {
		sb.WriteString(fmt.Sprintf("\n**Cache:** %d/%d entries, %d hits, %d misses, %d evictions\n",
			out.Cache.Size, out.Cache.Capacity, out.Cache.Hits, out.Cache.Misses, out.Cache.Evictions))
	}
	if len(out.Queries) > 0 {
		sb.WriteString(fmt.Sprintf("\n**Searches:** %d unique queries\n", out.UniqueQueries))
		for _, q := range out.Queries {
			sb.WriteString(fmt.Sprintf("- %s: %d queries, %d zero-result, %d cache hits\n",
				q.Strategy, q.Queries, q.ZeroResults, q.CacheHits))
		}
	}
	return sb.String()
}

// writeMetadata renders metadata as a sorted bullet list.
func writeMetadata(sb *strings.Builder, metadata map[string]any) {
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("- %s: %v\n", k, metadata[k]))
	}
}
