package search

import (
	"context"

	"github.com/substratelabs/memcore/internal/textutil"
)

// DefaultTrigramBudget caps how many (record, word) candidates a single
// query word may pull out of the trigram index. Common trigrams fan out
// across large collections; the budget bounds worst-case latency at the
// cost of recall on very common fragments.
const DefaultTrigramBudget = 500

// searchFuzzy finds typo-tolerant matches through the trigram index.
// Each query word's trigrams select candidate indexed words; candidates
// scoring below the similarity floor are discarded, the rest contribute
// similarity x shared-trigram count x importance.
func (e *Engine) searchFuzzy(ctx context.Context, query string, opts Options) ([]Match, error) {
	tokens := textutil.Tokenize(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	budget := e.trigramBudget
	if budget <= 0 {
		budget = DefaultTrigramBudget
	}

	scores := make(map[string]float64)
	for _, word := range tokens {
		grams := textutil.Trigrams(word)
		candidates, err := e.store.LookupTrigrams(ctx, grams, opts.MinImportance, opts.TypeFilter, budget)
		if err != nil {
			return nil, err
		}

		for _, c := range candidates {
			similarity := textutil.TrigramSimilarity(word, c.Word)
			if similarity < FuzzySimilarityFloor {
				continue
			}
			scores[c.RecordID] += similarity * float64(c.MatchCount) * c.ImportanceScore
		}
	}

	return toMatches(scores), nil
}
