package consolidate

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/substratelabs/memcore/internal/errors"
	"github.com/substratelabs/memcore/internal/index"
	"github.com/substratelabs/memcore/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, *store.SQLiteStore) {
	t.Helper()

	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "consolidate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return NewEngine(s, index.NewMaintainer(s), nil), s
}

func insertRecord(t *testing.T, s *store.SQLiteStore, id, content string, importance float64, access int64, metadata map[string]any) {
	t.Helper()

	now := time.Now()
	require.NoError(t, s.InsertRecord(context.Background(), &store.Record{
		ID:              id,
		Content:         content,
		Type:            "doc",
		Metadata:        metadata,
		ImportanceScore: importance,
		AccessCount:     access,
		CreatedAt:       now,
		UpdatedAt:       now,
		LastAccessed:    now,
	}))
}

func TestRun_RequiresConfirmation(t *testing.T) {
	eng, s := newTestEngine(t)
	insertRecord(t, s, "a", "some content", 0.5, 1, nil)

	_, err := eng.Run(context.Background(), DefaultThreshold, false)
	require.Error(t, err)
	assert.Equal(t, coreerrors.ErrCodeConfirmationMissing, coreerrors.GetCode(err))

	// No mutation happened.
	count, err := s.CountRecords(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRun_RejectsInvalidThreshold(t *testing.T) {
	eng, _ := newTestEngine(t)

	for _, threshold := range []float64{0, -0.5, 1.5} {
		_, err := eng.Run(context.Background(), threshold, true)
		require.Error(t, err, "threshold %v", threshold)
		assert.Equal(t, coreerrors.ErrCodeInvalidInput, coreerrors.GetCode(err))
	}
}

func TestRun_MergesReorderedDuplicate(t *testing.T) {
	eng, s := newTestEngine(t)
	insertRecord(t, s, "a", "Enhanced Memory MCP Server", 0.7, 3, nil)
	insertRecord(t, s, "b", "Enhanced Memory Server MCP", 0.4, 2, nil)

	result, err := eng.Run(context.Background(), 0.8, true)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Merged)
	assert.Equal(t, 1, result.Deleted)
	assert.Equal(t, 2, result.Scanned)

	ctx := context.Background()
	count, err := s.CountRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	survivor, err := s.GetRecord(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, survivor, "higher-importance record survives")
	assert.InDelta(t, 0.8, survivor.ImportanceScore, 1e-9, "importance bumped by 0.1")
	assert.Equal(t, int64(5), survivor.AccessCount, "access counts combined")
	assert.True(t, survivor.UpdatedAt.After(survivor.CreatedAt), "merge counts as a modification")

	victim, err := s.GetRecord(ctx, "b")
	require.NoError(t, err)
	assert.Nil(t, victim)
}

func TestRun_DissimilarRecordsUntouched(t *testing.T) {
	eng, s := newTestEngine(t)
	insertRecord(t, s, "a", "postgres connection pooling guide", 0.5, 1, nil)
	insertRecord(t, s, "b", "favorite pasta recipes", 0.5, 1, nil)

	result, err := eng.Run(context.Background(), 0.8, true)
	require.NoError(t, err)

	assert.Zero(t, result.Merged)
	count, err := s.CountRecords(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRun_SurvivorMetadataWinsOnConflict(t *testing.T) {
	eng, s := newTestEngine(t)
	insertRecord(t, s, "a", "identical duplicate content here", 0.8, 0,
		map[string]any{"source": "survivor", "kept": true})
	insertRecord(t, s, "b", "identical duplicate content here", 0.3, 0,
		map[string]any{"source": "victim", "extra": "carried over"})

	_, err := eng.Run(context.Background(), 0.9, true)
	require.NoError(t, err)

	survivor, err := s.GetRecord(context.Background(), "a")
	require.NoError(t, err)
	require.NotNil(t, survivor)

	assert.Equal(t, "survivor", survivor.Metadata["source"])
	assert.Equal(t, "carried over", survivor.Metadata["extra"])
	assert.Equal(t, true, survivor.Metadata["kept"])
}

func TestRun_ImportanceCappedAtOne(t *testing.T) {
	eng, s := newTestEngine(t)
	insertRecord(t, s, "a", "same words again and again", 0.95, 1, nil)
	insertRecord(t, s, "b", "same words again and again", 0.5, 1, nil)

	_, err := eng.Run(context.Background(), 0.9, true)
	require.NoError(t, err)

	survivor, err := s.GetRecord(context.Background(), "a")
	require.NoError(t, err)
	require.NotNil(t, survivor)
	assert.Equal(t, 1.0, survivor.ImportanceScore)
}

func TestRun_DeletedRecordExcludedFromLaterPairs(t *testing.T) {
	// Three mutual duplicates: the pass must fold b and c into a
	// without ever comparing against a record it already deleted.
	eng, s := newTestEngine(t)
	insertRecord(t, s, "a", "triple duplicate cluster content", 0.9, 1, nil)
	insertRecord(t, s, "b", "triple duplicate cluster content", 0.5, 2, nil)
	insertRecord(t, s, "c", "triple duplicate cluster content", 0.3, 4, nil)

	result, err := eng.Run(context.Background(), 0.9, true)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Merged)
	assert.Equal(t, 2, result.Deleted)

	ctx := context.Background()
	count, err := s.CountRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	survivor, err := s.GetRecord(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, survivor)
	assert.Equal(t, int64(7), survivor.AccessCount, "absorbs both victims' access counts")
}

func TestRun_EmptyStore(t *testing.T) {
	eng, _ := newTestEngine(t)

	result, err := eng.Run(context.Background(), DefaultThreshold, true)
	require.NoError(t, err)
	assert.Zero(t, result.Merged)
	assert.Zero(t, result.Scanned)
}
