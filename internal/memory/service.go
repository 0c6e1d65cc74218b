// Package memory is the write-side service: record CRUD wired to index
// maintenance and cache invalidation. Search goes through the search
// engine; this package owns every mutation of the record store.
package memory

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/substratelabs/memcore/internal/cache"
	coreerrors "github.com/substratelabs/memcore/internal/errors"
	"github.com/substratelabs/memcore/internal/index"
	"github.com/substratelabs/memcore/internal/store"
)

// DefaultImportance is assigned when a record is stored without an
// explicit importance score.
const DefaultImportance = 0.5

// StoreInput are the caller-supplied fields for a new record.
type StoreInput struct {
	Content    string
	Type       string
	Metadata   map[string]any
	Importance *float64
}

// UpdateInput carries partial updates; nil fields are left unchanged.
type UpdateInput struct {
	Content    *string
	Type       *string
	Metadata   map[string]any
	Importance *float64
}

// Stats aggregates store, index, and cache counters.
type Stats struct {
	Records     int          `json:"records"`
	WordEntries int          `json:"word_entries"`
	TrigramRows int          `json:"trigram_rows"`
	Vectors     int          `json:"vectors"`
	Cache       *cache.Stats `json:"cache,omitempty"`
}

// Service owns record mutations. Writes are serialized through a single
// mutex so index builds observe a consistent record set; reads go
// straight to the store.
type Service struct {
	store  store.Store
	index  *index.Maintainer
	cache  *cache.QueryCache
	logger *slog.Logger

	writeMu sync.Mutex
}

// NewService wires the write path. The cache may be nil.
func NewService(s store.Store, m *index.Maintainer, qc *cache.QueryCache) *Service {
	return &Service{
		store:  s,
		index:  m,
		cache:  qc,
		logger: slog.Default(),
	}
}

// Store creates a record, builds its indexes, and invalidates cached
// search results. The index build is awaited but its failure does not
// fail the write; the indexes stay stale until the next rebuild.
func (s *Service) Store(ctx context.Context, in StoreInput) (*store.Record, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, coreerrors.ValidationError("content is required", nil)
	}

	importance := DefaultImportance
	if in.Importance != nil {
		importance = *in.Importance
	}
	if importance < 0 || importance > 1 {
		return nil, coreerrors.ValidationError("importance_score must be in [0, 1]", nil)
	}

	recordType := in.Type
	if recordType == "" {
		recordType = "note"
	}

	now := time.Now()
	rec := &store.Record{
		ID:              uuid.NewString(),
		Content:         content,
		Type:            recordType,
		Metadata:        in.Metadata,
		ImportanceScore: importance,
		CreatedAt:       now,
		UpdatedAt:       now,
		LastAccessed:    now,
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.store.InsertRecord(ctx, rec); err != nil {
		return nil, coreerrors.Wrap(coreerrors.ErrCodeStoreOpen, err)
	}
	s.buildIndexes(ctx, rec)
	s.invalidate(rec.ID)
	return rec, nil
}

// Get fetches a record and bumps its access count. A cache hit skips
// the store read but still records the access.
func (s *Service) Get(ctx context.Context, id string) (*store.Record, error) {
	if id == "" {
		return nil, coreerrors.ValidationError("record id is required", nil)
	}

	if s.cache != nil {
		if v, ok := s.cache.Get(cache.RecordKey(id)); ok {
			if rec, ok := v.(*store.Record); ok {
				out := *rec
				if at, touched := s.touch(ctx, id); touched {
					out.AccessCount++
					out.LastAccessed = at
					s.cache.Set(cache.RecordKey(id), &out)
				}
				return &out, nil
			}
		}
	}

	rec, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return nil, coreerrors.Wrap(coreerrors.ErrCodeStoreOpen, err)
	}
	if rec == nil {
		return nil, coreerrors.RecordNotFound(id)
	}

	if at, touched := s.touch(ctx, id); touched {
		rec.AccessCount++
		rec.LastAccessed = at
	}
	if s.cache != nil {
		s.cache.Set(cache.RecordKey(id), rec)
	}
	return rec, nil
}

// Update applies a partial update, rebuilds the record's indexes, and
// invalidates cached results referencing it.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*store.Record, error) {
	if id == "" {
		return nil, coreerrors.ValidationError("record id is required", nil)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	rec, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return nil, coreerrors.Wrap(coreerrors.ErrCodeStoreOpen, err)
	}
	if rec == nil {
		return nil, coreerrors.RecordNotFound(id)
	}

	if in.Content != nil {
		content := strings.TrimSpace(*in.Content)
		if content == "" {
			return nil, coreerrors.ValidationError("content cannot be emptied", nil)
		}
		rec.Content = content
	}
	if in.Type != nil {
		rec.Type = *in.Type
	}
	if in.Metadata != nil {
		rec.Metadata = in.Metadata
	}
	if in.Importance != nil {
		if *in.Importance < 0 || *in.Importance > 1 {
			return nil, coreerrors.ValidationError("importance_score must be in [0, 1]", nil)
		}
		rec.ImportanceScore = *in.Importance
	}
	rec.UpdatedAt = time.Now()

	if err := s.store.UpdateRecord(ctx, rec); err != nil {
		return nil, coreerrors.Wrap(coreerrors.ErrCodeStoreOpen, err)
	}
	s.buildIndexes(ctx, rec)
	s.invalidate(id)
	return rec, nil
}

// Delete removes a record and its index rows.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return coreerrors.ValidationError("record id is required", nil)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	rec, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return coreerrors.Wrap(coreerrors.ErrCodeStoreOpen, err)
	}
	if rec == nil {
		return coreerrors.RecordNotFound(id)
	}

	if err := s.index.RemoveIndexes(ctx, id); err != nil {
		s.logger.Warn("failed to remove indexes before delete",
			slog.String("record_id", id),
			slog.String("error", err.Error()))
	}
	if err := s.store.DeleteRecord(ctx, id); err != nil {
		return coreerrors.Wrap(coreerrors.ErrCodeStoreOpen, err)
	}
	s.invalidate(id)
	return nil
}

// Rebuild clears and rebuilds all indexes from the record table.
func (s *Service) Rebuild(ctx context.Context) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	count, err := s.index.RebuildAll(ctx)
	if err != nil {
		return 0, coreerrors.Wrap(coreerrors.ErrCodeIndexRebuild, err)
	}
	if s.cache != nil {
		s.cache.Purge()
	}
	return count, nil
}

// Stats reports record, index, and cache counters.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	records, err := s.store.CountRecords(ctx)
	if err != nil {
		return nil, coreerrors.Wrap(coreerrors.ErrCodeStoreOpen, err)
	}
	words, trigrams, vectors, err := s.store.IndexCounts(ctx)
	if err != nil {
		return nil, coreerrors.Wrap(coreerrors.ErrCodeStoreOpen, err)
	}

	stats := &Stats{
		Records:     records,
		WordEntries: words,
		TrigramRows: trigrams,
		Vectors:     vectors,
	}
	if s.cache != nil {
		cs := s.cache.Stats()
		stats.Cache = &cs
	}
	return stats, nil
}

// buildIndexes runs the index build for one record. Failures are logged
// and swallowed so the record write always wins.
func (s *Service) buildIndexes(ctx context.Context, rec *store.Record) {
	if err := s.index.BuildIndexes(ctx, rec.ID, rec.Content, rec.Metadata); err != nil {
		s.logger.Error("index build failed, indexes stale until rebuild",
			slog.String("record_id", rec.ID),
			slog.String("error", err.Error()))
	}
}

// touch bumps access tracking without failing the read. Reports the
// access time so callers can mirror the bump on the copy they return.
func (s *Service) touch(ctx context.Context, id string) (time.Time, bool) {
	now := time.Now()
	if err := s.store.TouchRecord(ctx, id, now); err != nil {
		s.logger.Warn("failed to record access",
			slog.String("record_id", id),
			slog.String("error", err.Error()))
		return time.Time{}, false
	}
	return now, true
}

// invalidate drops cached searches and the record's own cache entry.
func (s *Service) invalidate(id string) {
	if s.cache == nil {
		return
	}
	s.cache.Invalidate(cache.SearchPattern, cache.RecordKey(id))
}
