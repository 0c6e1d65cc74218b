package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/substratelabs/memcore/internal/cache"
	"github.com/substratelabs/memcore/internal/store"
	"github.com/substratelabs/memcore/internal/telemetry"
	"github.com/substratelabs/memcore/internal/textutil"
)

// StrategyFallback names the substring scan used when a strategy fails.
const StrategyFallback = "fallback"

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// Engine dispatches search calls to a strategy, serves repeated queries
// from the query cache, and falls back to a plain substring scan when a
// strategy errors, so read paths always produce a result list.
type Engine struct {
	store   store.Store
	cache   *cache.QueryCache
	logger  *slog.Logger
	metrics *telemetry.QueryMetrics

	mu            sync.RWMutex
	weights       FusionWeights
	trigramBudget int
}

// EngineOption configures the search engine.
type EngineOption func(*Engine)

// WithFusionWeights overrides the default hybrid fusion weights.
func WithFusionWeights(w FusionWeights) EngineOption {
	return func(e *Engine) {
		e.weights = w
	}
}

// WithTrigramBudget bounds fuzzy-search candidate fan-out per query word.
func WithTrigramBudget(budget int) EngineOption {
	return func(e *Engine) {
		e.trigramBudget = budget
	}
}

// NewEngine creates a search engine over the given store and cache.
// The cache may be nil, which disables caching.
func NewEngine(s store.Store, qc *cache.QueryCache, opts ...EngineOption) (*Engine, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: store is required", ErrNilDependency)
	}

	metrics, err := telemetry.NewQueryMetrics(telemetry.DefaultSeenWindow)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		store:         s,
		cache:         qc,
		logger:        slog.Default(),
		metrics:       metrics,
		weights:       DefaultFusionWeights(),
		trigramBudget: DefaultTrigramBudget,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Metrics returns a snapshot of the per-strategy query counters.
func (e *Engine) Metrics() telemetry.Snapshot {
	return e.metrics.Snapshot()
}

// SetFusionWeights updates hybrid weights at runtime (config reload).
func (e *Engine) SetFusionWeights(w FusionWeights) {
	e.mu.Lock()
	e.weights = w
	e.mu.Unlock()
}

func (e *Engine) fusionWeights() FusionWeights {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.weights
}

// Search runs one query under the chosen strategy. Results come from
// the cache when a fresh entry exists; otherwise the strategy runs, its
// response is cached, and any strategy failure degrades to the substring
// fallback instead of surfacing an error.
func (e *Engine) Search(ctx context.Context, query string, strategy Strategy, opts Options) (*Response, error) {
	start := time.Now()
	opts = opts.withDefaults()

	query = strings.TrimSpace(query)
	if query == "" {
		return &Response{Results: []*Result{}, Strategy: string(strategy)}, nil
	}

	key := cache.SearchKey(string(strategy), query, opts.Limit, opts.MinImportance, opts.TypeFilter)
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			if resp, ok := cached.(*Response); ok {
				out := *resp
				out.Cached = true
				out.QueryTimeMs = time.Since(start).Milliseconds()
				e.metrics.Record(telemetry.Query{
					Text:        query,
					Strategy:    out.Strategy,
					ResultCount: len(out.Results),
					Latency:     time.Since(start),
					Cached:      true,
				})
				return &out, nil
			}
		}
	}

	matches, searchErr := e.dispatch(ctx, query, strategy, opts)
	servedBy := string(strategy)

	if searchErr != nil {
		e.logger.Warn("search strategy failed, using substring fallback",
			slog.String("strategy", string(strategy)),
			slog.String("query", query),
			slog.String("error", searchErr.Error()))
		matches = e.substringFallback(ctx, query, opts)
		servedBy = StrategyFallback
	}

	totalCount := len(matches)
	matches = truncateMatches(matches, opts.Limit)

	results, err := e.enrich(ctx, matches)
	if err != nil {
		// Enrichment reads the record table; if that fails the
		// fallback path cannot do better, so degrade to empty.
		e.logger.Error("failed to enrich search results",
			slog.String("error", err.Error()))
		results = []*Result{}
	}

	resp := &Response{
		Results:     results,
		TotalCount:  totalCount,
		QueryTimeMs: time.Since(start).Milliseconds(),
		Strategy:    servedBy,
	}

	if e.cache != nil && searchErr == nil {
		e.cache.Set(key, resp)
	}

	e.metrics.Record(telemetry.Query{
		Text:        query,
		Strategy:    servedBy,
		ResultCount: len(results),
		Latency:     time.Since(start),
	})
	return resp, nil
}

// dispatch routes to one strategy implementation.
func (e *Engine) dispatch(ctx context.Context, query string, strategy Strategy, opts Options) ([]Match, error) {
	switch strategy {
	case StrategyExact:
		return e.searchExact(ctx, query, opts)
	case StrategyFuzzy:
		return e.searchFuzzy(ctx, query, opts)
	case StrategySemantic:
		return e.searchSemantic(ctx, query, opts)
	case StrategyHybrid:
		return e.searchHybrid(ctx, query, opts)
	default:
		return nil, fmt.Errorf("unknown search strategy %q", strategy)
	}
}

// substringFallback is the last-resort read path: a case-insensitive
// substring scan over record content ordered by importance, access
// count, and creation time. It must never fail; any store error yields
// an empty result set.
func (e *Engine) substringFallback(ctx context.Context, query string, opts Options) []Match {
	records, err := e.store.ListRecords(ctx)
	if err != nil {
		e.logger.Error("substring fallback could not list records",
			slog.String("error", err.Error()))
		return nil
	}

	needle := strings.ToLower(query)
	var hits []*store.Record
	for _, rec := range records {
		if rec.ImportanceScore < opts.MinImportance {
			continue
		}
		if opts.TypeFilter != "" && rec.Type != opts.TypeFilter {
			continue
		}
		if strings.Contains(strings.ToLower(rec.Content), needle) {
			hits = append(hits, rec)
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.ImportanceScore != b.ImportanceScore {
			return a.ImportanceScore > b.ImportanceScore
		}
		if a.AccessCount != b.AccessCount {
			return a.AccessCount > b.AccessCount
		}
		return a.CreatedAt.After(b.CreatedAt)
	})

	matches := make([]Match, len(hits))
	for i, rec := range hits {
		matches[i] = Match{RecordID: rec.ID, Score: rec.ImportanceScore}
	}
	return matches
}

// enrich attaches full records to scored matches, dropping matches
// whose record vanished between scoring and enrichment.
func (e *Engine) enrich(ctx context.Context, matches []Match) ([]*Result, error) {
	results := make([]*Result, 0, len(matches))
	for _, m := range matches {
		rec, err := e.store.GetRecord(ctx, m.RecordID)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			continue
		}
		results = append(results, &Result{Record: rec, Score: m.Score})
	}
	return results, nil
}

// Autocomplete returns distinct indexed words starting with prefix,
// ordered by descending total frequency. It reads the word index
// directly and is not cached.
func (e *Engine) Autocomplete(ctx context.Context, prefix string, limit int) ([]string, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	words, err := e.store.PrefixWords(ctx, prefix, limit)
	if err != nil {
		return nil, fmt.Errorf("autocomplete failed: %w", err)
	}

	// Equal-frequency completions surface the one closest to what was
	// typed first.
	sort.SliceStable(words, func(i, j int) bool {
		if words[i].Frequency != words[j].Frequency {
			return words[i].Frequency > words[j].Frequency
		}
		return textutil.EditDistance(prefix, words[i].Word) < textutil.EditDistance(prefix, words[j].Word)
	})

	out := make([]string, len(words))
	for i, w := range words {
		out[i] = w.Word
	}
	return out, nil
}
