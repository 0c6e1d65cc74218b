package cache

import (
	"fmt"
	"strings"
)

// SearchKey builds the normalized cache key for a search call:
// strategy, query, and the options that change the result set.
func SearchKey(strategy, query string, limit int, minImportance float64, typeFilter string) string {
	return fmt.Sprintf("search:%s:%s:limit=%d:min=%.3f:type=%s",
		strategy, strings.ToLower(strings.TrimSpace(query)), limit, minImportance, typeFilter)
}

// RecordKey builds the cache key for a get-record-by-id call.
func RecordKey(id string) string {
	return "get_" + id
}

// SearchPattern matches every cached search result; used to invalidate
// all search entries after any write that could change result sets.
const SearchPattern = "search:"
