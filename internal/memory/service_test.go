package memory

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/substratelabs/memcore/internal/cache"
	coreerrors "github.com/substratelabs/memcore/internal/errors"
	"github.com/substratelabs/memcore/internal/index"
	"github.com/substratelabs/memcore/internal/search"
	"github.com/substratelabs/memcore/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.SQLiteStore, *cache.QueryCache) {
	t.Helper()

	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	qc := cache.New(32, time.Minute)
	return NewService(s, index.NewMaintainer(s), qc), s, qc
}

func TestStore_Validation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Store(ctx, StoreInput{Content: "   "})
	require.Error(t, err)
	assert.Equal(t, coreerrors.ErrCodeInvalidInput, coreerrors.GetCode(err))

	bad := 1.5
	_, err = svc.Store(ctx, StoreInput{Content: "x y z content", Importance: &bad})
	require.Error(t, err)
	assert.Equal(t, coreerrors.ErrCodeInvalidInput, coreerrors.GetCode(err))
}

func TestStore_Defaults(t *testing.T) {
	svc, _, _ := newTestService(t)

	rec, err := svc.Store(context.Background(), StoreInput{Content: "remember this fact"})
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "note", rec.Type)
	assert.Equal(t, DefaultImportance, rec.ImportanceScore)
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestStore_RoundTripFreshness(t *testing.T) {
	// A freshly stored record must be findable by exact search with
	// no rebuild in between: the write awaits the index build.
	svc, s, _ := newTestService(t)
	ctx := context.Background()

	rec, err := svc.Store(ctx, StoreInput{Content: "distinctive retrieval probe phrase"})
	require.NoError(t, err)

	eng, err := search.NewEngine(s, nil)
	require.NoError(t, err)

	resp, err := eng.Search(ctx, "distinctive retrieval", search.StrategyExact, search.Options{})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, rec.ID, resp.Results[0].Record.ID)
}

func TestGet_BumpsAccessCount(t *testing.T) {
	svc, s, _ := newTestService(t)
	ctx := context.Background()

	rec, err := svc.Store(ctx, StoreInput{Content: "access counting target"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, rec.ID)
	require.NoError(t, err)
	_, err = svc.Get(ctx, rec.ID)
	require.NoError(t, err)

	stored, err := s.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, int64(2), stored.AccessCount)
}

func TestGet_ReturnedRecordReflectsAccessBump(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	rec, err := svc.Store(ctx, StoreInput{Content: "freshness of the returned copy"})
	require.NoError(t, err)

	first, err := svc.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.AccessCount, "store read includes its own bump")
	assert.False(t, first.LastAccessed.IsZero())

	second, err := svc.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.AccessCount, "cache hit includes its own bump")
	assert.False(t, second.LastAccessed.Before(first.LastAccessed))
}

func TestGet_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Get(context.Background(), "no-such-id")
	require.Error(t, err)
	assert.Equal(t, coreerrors.ErrCodeRecordNotFound, coreerrors.GetCode(err))
}

func TestUpdate_PartialAndReindex(t *testing.T) {
	svc, s, _ := newTestService(t)
	ctx := context.Background()

	rec, err := svc.Store(ctx, StoreInput{Content: "original searchable wording", Type: "doc"})
	require.NoError(t, err)

	newContent := "completely different replacement text"
	updated, err := svc.Update(ctx, rec.ID, UpdateInput{Content: &newContent})
	require.NoError(t, err)
	assert.Equal(t, newContent, updated.Content)
	assert.Equal(t, "doc", updated.Type, "unset fields untouched")

	eng, err := search.NewEngine(s, nil)
	require.NoError(t, err)

	resp, err := eng.Search(ctx, "replacement text", search.StrategyExact, search.Options{})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)

	stale, err := eng.Search(ctx, "original searchable", search.StrategyExact, search.Options{})
	require.NoError(t, err)
	assert.Empty(t, stale.Results, "old tokens no longer indexed")
}

func TestDelete_RemovesRecordAndIndexes(t *testing.T) {
	svc, s, _ := newTestService(t)
	ctx := context.Background()

	rec, err := svc.Store(ctx, StoreInput{Content: "ephemeral deletable entry"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, rec.ID))

	gone, err := s.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	words, trigrams, vectors, err := s.IndexCounts(ctx)
	require.NoError(t, err)
	assert.Zero(t, words)
	assert.Zero(t, trigrams)
	assert.Zero(t, vectors)

	err = svc.Delete(ctx, rec.ID)
	require.Error(t, err)
	assert.Equal(t, coreerrors.ErrCodeRecordNotFound, coreerrors.GetCode(err))
}

func TestWrite_InvalidatesSearchCache(t *testing.T) {
	svc, _, qc := newTestService(t)
	ctx := context.Background()

	qc.Set(cache.SearchKey("exact", "some query", 10, 0, ""), "stale")
	require.Equal(t, 1, qc.Len())

	_, err := svc.Store(ctx, StoreInput{Content: "cache invalidation trigger"})
	require.NoError(t, err)

	assert.Zero(t, qc.Len(), "stored record must drop cached searches")
}

func TestRebuild_Idempotent(t *testing.T) {
	svc, s, _ := newTestService(t)
	ctx := context.Background()

	for _, content := range []string{"first indexed document", "second indexed document"} {
		_, err := svc.Store(ctx, StoreInput{Content: content})
		require.NoError(t, err)
	}

	count, err := svc.Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	wordsA, trigramsA, vectorsA, err := s.IndexCounts(ctx)
	require.NoError(t, err)

	count, err = svc.Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	wordsB, trigramsB, vectorsB, err := s.IndexCounts(ctx)
	require.NoError(t, err)

	assert.Equal(t, wordsA, wordsB)
	assert.Equal(t, trigramsA, trigramsB)
	assert.Equal(t, vectorsA, vectorsB)
}

func TestStats(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Store(ctx, StoreInput{Content: "stats probe alpha beta"})
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Records)
	assert.Positive(t, stats.WordEntries)
	assert.Positive(t, stats.TrigramRows)
	assert.Equal(t, 1, stats.Vectors)
	require.NotNil(t, stats.Cache)
}
