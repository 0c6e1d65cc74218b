// Package consolidate merges near-duplicate records. A consolidation
// pass computes pairwise Jaccard similarity over record contents and
// folds each sufficiently similar pair into the more important record.
package consolidate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/substratelabs/memcore/internal/cache"
	coreerrors "github.com/substratelabs/memcore/internal/errors"
	"github.com/substratelabs/memcore/internal/index"
	"github.com/substratelabs/memcore/internal/store"
	"github.com/substratelabs/memcore/internal/textutil"
)

// DefaultThreshold is the Jaccard similarity above which two records
// are considered duplicates.
const DefaultThreshold = 0.8

// ImportanceBump is added to a surviving record's importance score per
// absorbed duplicate, capped at 1.0.
const ImportanceBump = 0.1

// Result summarizes one consolidation pass.
type Result struct {
	// Merged is the number of pairs folded together.
	Merged int `json:"merged"`
	// Deleted is the number of records removed. Equal to Merged since
	// each merge deletes exactly one record.
	Deleted int `json:"deleted"`
	// Scanned is the number of records examined.
	Scanned int `json:"scanned"`
}

// Engine performs consolidation passes over the record store.
type Engine struct {
	store  store.Store
	index  *index.Maintainer
	cache  *cache.QueryCache
	logger *slog.Logger
}

// NewEngine creates a consolidation engine. The cache may be nil.
func NewEngine(s store.Store, m *index.Maintainer, qc *cache.QueryCache) *Engine {
	return &Engine{
		store:  s,
		index:  m,
		cache:  qc,
		logger: slog.Default(),
	}
}

// Run scans every unordered record pair and merges those whose content
// Jaccard similarity meets the threshold. The lower-importance record
// of a pair is deleted; the survivor absorbs its access count and any
// metadata keys it did not already have, and gains an importance bump.
// A record deleted mid-pass is excluded from all later comparisons.
//
// Run mutates and deletes records, so callers must pass confirm=true;
// without it the pass fails fast and performs no writes.
func (e *Engine) Run(ctx context.Context, threshold float64, confirm bool) (*Result, error) {
	if !confirm {
		return nil, coreerrors.ConfirmationRequired("consolidate")
	}
	if threshold <= 0 || threshold > 1 {
		return nil, coreerrors.New(coreerrors.ErrCodeInvalidInput,
			fmt.Sprintf("consolidation threshold must be in (0, 1], got %v", threshold), nil)
	}

	records, err := e.store.ListRecords(ctx)
	if err != nil {
		return nil, coreerrors.Wrap(coreerrors.ErrCodeSearchFailed, err)
	}

	result := &Result{Scanned: len(records)}
	deleted := make(map[string]bool)

	for i := 0; i < len(records); i++ {
		if deleted[records[i].ID] {
			continue
		}
		for j := i + 1; j < len(records); j++ {
			if deleted[records[i].ID] {
				break
			}
			if deleted[records[j].ID] {
				continue
			}

			sim := textutil.JaccardSimilarity(records[i].Content, records[j].Content)
			if sim < threshold {
				continue
			}

			survivor, victim := orderPair(records[i], records[j])
			if err := e.merge(ctx, survivor, victim); err != nil {
				e.logger.Error("failed to merge duplicate records",
					slog.String("survivor", survivor.ID),
					slog.String("victim", victim.ID),
					slog.String("error", err.Error()))
				continue
			}

			deleted[victim.ID] = true
			result.Merged++
			result.Deleted++

			e.logger.Info("merged duplicate records",
				slog.String("survivor", survivor.ID),
				slog.String("victim", victim.ID),
				slog.Float64("similarity", sim))
		}
	}

	if e.cache != nil && result.Merged > 0 {
		e.cache.Purge()
	}
	return result, nil
}

// orderPair picks the survivor of a duplicate pair. Higher importance
// wins; on a tie the earlier-created record survives.
func orderPair(a, b *store.Record) (survivor, victim *store.Record) {
	if a.ImportanceScore > b.ImportanceScore {
		return a, b
	}
	if b.ImportanceScore > a.ImportanceScore {
		return b, a
	}
	if a.CreatedAt.Before(b.CreatedAt) || a.CreatedAt.Equal(b.CreatedAt) {
		return a, b
	}
	return b, a
}

// merge folds victim into survivor and removes victim. The survivor's
// existing metadata keys take precedence over the victim's.
func (e *Engine) merge(ctx context.Context, survivor, victim *store.Record) error {
	if len(victim.Metadata) > 0 {
		if survivor.Metadata == nil {
			survivor.Metadata = make(map[string]any, len(victim.Metadata))
		}
		for k, v := range victim.Metadata {
			if _, exists := survivor.Metadata[k]; !exists {
				survivor.Metadata[k] = v
			}
		}
	}

	survivor.AccessCount += victim.AccessCount
	survivor.ImportanceScore += ImportanceBump
	if survivor.ImportanceScore > 1.0 {
		survivor.ImportanceScore = 1.0
	}
	survivor.UpdatedAt = time.Now()

	if err := e.store.UpdateRecord(ctx, survivor); err != nil {
		return fmt.Errorf("update survivor %s: %w", survivor.ID, err)
	}
	if err := e.store.DeleteRecord(ctx, victim.ID); err != nil {
		return fmt.Errorf("delete victim %s: %w", victim.ID, err)
	}

	// The survivor's content is unchanged, but its vector ranking
	// inputs moved, so refresh its indexes. A failure here leaves the
	// index stale until the next rebuild, not the merge undone.
	if e.index != nil {
		if err := e.index.BuildIndexes(ctx, survivor.ID, survivor.Content, survivor.Metadata); err != nil {
			e.logger.Warn("failed to refresh survivor indexes after merge",
				slog.String("record_id", survivor.ID),
				slog.String("error", err.Error()))
		}
	}
	return nil
}
