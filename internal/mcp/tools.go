package mcp

// StoreMemoryInput defines the input schema for the store_memory tool.
type StoreMemoryInput struct {
	Content    string         `json:"content" jsonschema:"the text to remember"`
	Type       string         `json:"type,omitempty" jsonschema:"record type, e.g. note, fact, doc (default note)"`
	Metadata   map[string]any `json:"metadata,omitempty" jsonschema:"arbitrary key-value metadata"`
	Importance *float64       `json:"importance,omitempty" jsonschema:"importance score between 0 and 1, default 0.5"`
}

// StoreMemoryOutput defines the output schema for the store_memory tool.
type StoreMemoryOutput struct {
	ID string `json:"id" jsonschema:"identifier of the stored record"`
}

// MemoryRecordOutput is the record shape returned by get_memory and
// update_memory.
type MemoryRecordOutput struct {
	ID         string         `json:"id"`
	Content    string         `json:"content"`
	Type       string         `json:"type"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Importance float64        `json:"importance"`
	Accessed   int64          `json:"access_count"`
	CreatedAt  string         `json:"created_at"`
	UpdatedAt  string         `json:"updated_at"`
}

// GetMemoryInput defines the input schema for the get_memory tool.
type GetMemoryInput struct {
	ID string `json:"id" jsonschema:"identifier of the record to fetch"`
}

// UpdateMemoryInput defines the input schema for the update_memory tool.
// Omitted fields are left unchanged.
type UpdateMemoryInput struct {
	ID         string         `json:"id" jsonschema:"identifier of the record to update"`
	Content    *string        `json:"content,omitempty" jsonschema:"replacement content"`
	Type       *string        `json:"type,omitempty" jsonschema:"replacement record type"`
	Metadata   map[string]any `json:"metadata,omitempty" jsonschema:"replacement metadata (replaces the whole map)"`
	Importance *float64       `json:"importance,omitempty" jsonschema:"replacement importance score between 0 and 1"`
}

// DeleteMemoryInput defines the input schema for the delete_memory tool.
type DeleteMemoryInput struct {
	ID string `json:"id" jsonschema:"identifier of the record to delete"`
}

// DeleteMemoryOutput defines the output schema for the delete_memory tool.
type DeleteMemoryOutput struct {
	Deleted bool `json:"deleted" jsonschema:"true when the record was removed"`
}

// SearchMemoriesInput defines the input schema for the search_memories tool.
type SearchMemoriesInput struct {
	Query         string  `json:"query" jsonschema:"the search query"`
	Strategy      string  `json:"strategy,omitempty" jsonschema:"search strategy: exact, fuzzy, semantic, or hybrid (default hybrid)"`
	Limit         int     `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
	MinImportance float64 `json:"min_importance,omitempty" jsonschema:"filter out records below this importance score"`
	Type          string  `json:"type,omitempty" jsonschema:"restrict results to one record type"`
}

// AutocompleteInput defines the input schema for the autocomplete tool.
type AutocompleteInput struct {
	Prefix string `json:"prefix" jsonschema:"word prefix to complete"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of completions, default 10"`
}

// AutocompleteOutput defines the output schema for the autocomplete tool.
type AutocompleteOutput struct {
	Words []string `json:"words" jsonschema:"indexed words with the prefix, by descending frequency"`
}

// ConsolidateInput defines the input schema for the consolidate_memories tool.
type ConsolidateInput struct {
	Threshold float64 `json:"threshold,omitempty" jsonschema:"Jaccard similarity threshold for merging, default 0.8"`
	Confirm   bool    `json:"confirm" jsonschema:"must be true; consolidation deletes records"`
}

// ConsolidateOutput defines the output schema for the consolidate_memories tool.
type ConsolidateOutput struct {
	Merged  int `json:"merged" jsonschema:"number of record pairs merged"`
	Deleted int `json:"deleted" jsonschema:"number of records deleted"`
	Scanned int `json:"scanned" jsonschema:"number of records examined"`
}

// RebuildIndexInput defines the input schema for the rebuild_index tool.
type RebuildIndexInput struct {
	Confirm bool `json:"confirm" jsonschema:"must be true; rebuilding clears all indexes first"`
}

// RebuildIndexOutput defines the output schema for the rebuild_index tool.
type RebuildIndexOutput struct {
	Indexed int `json:"indexed" jsonschema:"number of records reindexed"`
}

// MemoryStatsInput defines the input schema for the memory_stats tool (no parameters).
type MemoryStatsInput struct{}

// MemoryStatsOutput defines the output schema for the memory_stats tool.
type MemoryStatsOutput struct {
	Records     int         `json:"records" jsonschema:"number of stored records"`
	WordEntries int         `json:"word_entries" jsonschema:"rows in the word index"`
	TrigramRows int         `json:"trigram_rows" jsonschema:"rows in the trigram index"`
	Vectors     int         `json:"vectors" jsonschema:"rows in the vector index"`
	Cache       *CacheStats `json:"cache,omitempty" jsonschema:"query cache counters"`

	UniqueQueries uint64       `json:"unique_queries,omitempty" jsonschema:"distinct queries seen this session"`
	Queries       []QueryStats `json:"queries,omitempty" jsonschema:"per-strategy search counters for this session"`
}

// QueryStats summarizes search traffic for one strategy.
type QueryStats struct {
	Strategy    string `json:"strategy"`
	Queries     uint64 `json:"queries"`
	ZeroResults uint64 `json:"zero_results"`
	CacheHits   uint64 `json:"cache_hits"`
}

// CacheStats mirrors the query cache counters for the stats tool.
type CacheStats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
	Size      int    `json:"size"`
	Capacity  int    `json:"capacity"`
}
