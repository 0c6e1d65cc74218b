package search

import (
	"context"
	"math"

	"github.com/substratelabs/memcore/internal/store"
	"github.com/substratelabs/memcore/internal/textutil"
)

// searchSemantic ranks records by cosine similarity between the query's
// term-frequency vector and each stored TF-IDF vector. Vectors that
// failed to parse carry a zero norm and naturally score 0, so corrupt
// rows degrade a record's rank instead of failing the search.
func (e *Engine) searchSemantic(ctx context.Context, query string, opts Options) ([]Match, error) {
	tokens := textutil.Tokenize(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	queryVec := make(map[string]float64)
	for term, count := range textutil.TermFrequencies(tokens) {
		queryVec[term] = float64(count) / float64(len(tokens))
	}
	queryNorm := textutil.Norm(queryVec)
	if queryNorm == 0 {
		return nil, nil
	}

	vectors, err := e.store.AllVectors(ctx, opts.MinImportance, opts.TypeFilter)
	if err != nil {
		return nil, err
	}

	records, err := e.recordRanking(ctx)
	if err != nil {
		return nil, err
	}

	scores := make(map[string]float64)
	for _, vec := range vectors {
		similarity := cosineAgainstStored(queryVec, queryNorm, vec)
		if similarity < SemanticSimilarityFloor {
			continue
		}
		rank, ok := records[vec.RecordID]
		if !ok {
			continue
		}
		scores[vec.RecordID] = similarity *
			rank.importance *
			math.Log(float64(rank.accessCount)+1)
	}

	return toMatches(scores), nil
}

// cosineAgainstStored computes cosine similarity using the vector's
// persisted norm rather than recomputing it, honoring the invariant
// that the stored norm is authoritative for the stored weights.
func cosineAgainstStored(queryVec map[string]float64, queryNorm float64, stored *store.VectorEntry) float64 {
	if stored.Norm == 0 || len(stored.Weights) == 0 {
		return 0
	}

	var dot float64
	for term, w := range queryVec {
		if sw, ok := stored.Weights[term]; ok {
			dot += w * sw
		}
	}
	return dot / (queryNorm * stored.Norm)
}

type recordRank struct {
	importance  float64
	accessCount int64
}

// recordRanking loads the per-record scoring fields once per query.
func (e *Engine) recordRanking(ctx context.Context) (map[string]recordRank, error) {
	records, err := e.store.ListRecords(ctx)
	if err != nil {
		return nil, err
	}

	ranks := make(map[string]recordRank, len(records))
	for _, rec := range records {
		ranks[rec.ID] = recordRank{
			importance:  rec.ImportanceScore,
			accessCount: rec.AccessCount,
		}
	}
	return ranks, nil
}
