package search

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// searchHybrid runs all three strategies concurrently, takes each
// strategy's top candidates up to twice the requested limit, and fuses
// the ranked lists by weighted score summation keyed on record id. A
// record appearing in several
// lists accumulates each list's weighted contribution exactly once per
// list, so it can never be duplicated in the fused output.
func (e *Engine) searchHybrid(ctx context.Context, query string, opts Options) ([]Match, error) {
	candidateLimit := opts.Limit * 2

	var (
		mu      sync.Mutex
		fused   = make(map[string]float64)
		weights = e.fusionWeights()
	)

	accumulate := func(matches []Match, weight float64) {
		mu.Lock()
		defer mu.Unlock()
		for _, m := range truncateMatches(matches, candidateLimit) {
			fused[m.RecordID] += weight * m.Score
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		matches, err := e.searchExact(gctx, query, opts)
		if err != nil {
			return err
		}
		accumulate(matches, weights.Exact)
		return nil
	})
	g.Go(func() error {
		matches, err := e.searchFuzzy(gctx, query, opts)
		if err != nil {
			return err
		}
		accumulate(matches, weights.Fuzzy)
		return nil
	})
	g.Go(func() error {
		matches, err := e.searchSemantic(gctx, query, opts)
		if err != nil {
			return err
		}
		accumulate(matches, weights.Semantic)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return toMatches(fused), nil
}
