// Package search implements the four retrieval strategies over the
// persisted indexes: exact (inverted word index), fuzzy (trigram index),
// semantic (TF-IDF cosine), and hybrid (weighted score fusion of the
// other three). The Engine dispatches queries, serves them through the
// query cache, and degrades to a substring scan when a strategy fails.
package search

import (
	"fmt"
	"sort"

	"github.com/substratelabs/memcore/internal/store"
)

// Strategy selects the retrieval algorithm for a search call.
type Strategy string

const (
	StrategyExact    Strategy = "exact"
	StrategyFuzzy    Strategy = "fuzzy"
	StrategySemantic Strategy = "semantic"
	StrategyHybrid   Strategy = "hybrid"
)

// ParseStrategy validates a strategy name. An empty name defaults to
// hybrid.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyExact, StrategyFuzzy, StrategySemantic, StrategyHybrid:
		return Strategy(s), nil
	case "":
		return StrategyHybrid, nil
	default:
		return "", fmt.Errorf("unknown search strategy %q (use exact, fuzzy, semantic, or hybrid)", s)
	}
}

// Options are the caller-controlled search parameters.
type Options struct {
	// Limit caps the number of returned results (default 10).
	Limit int
	// MinImportance filters out records below this importance score.
	MinImportance float64
	// TypeFilter restricts results to records of one type when set.
	TypeFilter string
}

// DefaultLimit is applied when Options.Limit is not positive.
const DefaultLimit = 10

func (o Options) withDefaults() Options {
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	return o
}

// Match is a scored candidate produced by one strategy.
type Match struct {
	RecordID string
	Score    float64
}

// Result is a ranked search hit enriched with its record.
type Result struct {
	Record *store.Record `json:"record"`
	Score  float64       `json:"score"`
}

// Response is the full answer to a search call.
type Response struct {
	Results []*Result `json:"results"`
	// TotalCount is the number of candidates that matched before
	// truncation to the limit.
	TotalCount int `json:"total_count"`
	// QueryTimeMs is the wall-clock query duration in milliseconds.
	QueryTimeMs int64 `json:"query_time_ms"`
	// Strategy is the strategy that actually produced the results;
	// "fallback" when the substring scan served the query.
	Strategy string `json:"strategy"`
	// Cached reports whether the response was served from the cache.
	Cached bool `json:"cached"`
}

// FusionWeights are the weights for hybrid score fusion.
type FusionWeights struct {
	Exact    float64 `yaml:"exact" json:"exact"`
	Fuzzy    float64 `yaml:"fuzzy" json:"fuzzy"`
	Semantic float64 `yaml:"semantic" json:"semantic"`
}

// DefaultFusionWeights returns the standard hybrid weighting.
func DefaultFusionWeights() FusionWeights {
	return FusionWeights{Exact: 0.4, Fuzzy: 0.3, Semantic: 0.3}
}

// Similarity floors below which fuzzy and semantic candidates are
// discarded.
const (
	FuzzySimilarityFloor    = 0.3
	SemanticSimilarityFloor = 0.1
)

// sortMatches orders matches by score descending with record id as a
// deterministic tie-break.
func sortMatches(matches []Match) []Match {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].RecordID < matches[j].RecordID
	})
	return matches
}

// truncateMatches caps a sorted match list at limit. Strategies return
// their full candidate lists; the engine truncates after it has counted
// them, so TotalCount reports candidates rather than returned results.
func truncateMatches(matches []Match, limit int) []Match {
	if limit > 0 && len(matches) > limit {
		return matches[:limit]
	}
	return matches
}
