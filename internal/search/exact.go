package search

import (
	"context"
	"math"

	"github.com/substratelabs/memcore/internal/textutil"
)

// searchExact scores records from the inverted word index. Each query
// token contributes frequency x importance x ln(access_count+1) to
// every record containing it; per-record scores sum across tokens.
func (e *Engine) searchExact(ctx context.Context, query string, opts Options) ([]Match, error) {
	tokens := textutil.Tokenize(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	scores := make(map[string]float64)
	for _, token := range tokens {
		matches, err := e.store.LookupWord(ctx, token, opts.MinImportance, opts.TypeFilter)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			scores[m.RecordID] += float64(m.Frequency) *
				m.ImportanceScore *
				math.Log(float64(m.AccessCount)+1)
		}
	}

	return toMatches(scores), nil
}

// toMatches converts a score map into a sorted match list.
func toMatches(scores map[string]float64) []Match {
	matches := make([]Match, 0, len(scores))
	for id, score := range scores {
		matches = append(matches, Match{RecordID: id, Score: score})
	}
	return sortMatches(matches)
}
