package mcp

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/substratelabs/memcore/internal/cache"
	"github.com/substratelabs/memcore/internal/config"
	"github.com/substratelabs/memcore/internal/consolidate"
	"github.com/substratelabs/memcore/internal/index"
	"github.com/substratelabs/memcore/internal/memory"
	"github.com/substratelabs/memcore/internal/search"
	"github.com/substratelabs/memcore/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "mcp.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	qc := cache.New(32, time.Minute)
	maintainer := index.NewMaintainer(s)
	service := memory.NewService(s, maintainer, qc)

	engine, err := search.NewEngine(s, qc)
	require.NoError(t, err)

	consolidator := consolidate.NewEngine(s, maintainer, qc)

	srv, err := NewServer(service, engine, consolidator, config.NewConfig(), "test")
	require.NoError(t, err)
	return srv
}

func TestNewServer_RequiresDependencies(t *testing.T) {
	_, err := NewServer(nil, nil, nil, nil, "test")
	require.Error(t, err)
}

func TestListTools(t *testing.T) {
	srv := newTestServer(t)

	tools := srv.ListTools()
	require.Len(t, tools, 9)

	names := make(map[string]bool)
	for _, tool := range tools {
		names[tool.Name] = true
		assert.NotEmpty(t, tool.Description)
	}
	for _, want := range []string{
		"store_memory", "get_memory", "update_memory", "delete_memory",
		"search_memories", "autocomplete", "consolidate_memories",
		"rebuild_index", "memory_stats",
	} {
		assert.True(t, names[want], "missing tool %s", want)
	}
}

func TestStoreAndSearchTools(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	_, stored, err := srv.handleStoreMemory(ctx, nil, StoreMemoryInput{
		Content: "the staging cluster runs kubernetes 1.29",
		Type:    "fact",
	})
	require.NoError(t, err)
	require.NotEmpty(t, stored.ID)

	result, resp, err := srv.handleSearchMemories(ctx, nil, SearchMemoriesInput{
		Query:    "kubernetes staging",
		Strategy: "exact",
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, stored.ID, resp.Results[0].Record.ID)
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
}

func TestStoreMemory_RequiresContent(t *testing.T) {
	srv := newTestServer(t)

	_, _, err := srv.handleStoreMemory(context.Background(), nil, StoreMemoryInput{Content: "  "})
	require.Error(t, err)

	mcpErr, ok := err.(*MCPError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
}

func TestSearchMemories_UnknownStrategy(t *testing.T) {
	srv := newTestServer(t)

	_, _, err := srv.handleSearchMemories(context.Background(), nil, SearchMemoriesInput{
		Query:    "anything",
		Strategy: "regex",
	})
	require.Error(t, err)

	mcpErr, ok := err.(*MCPError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
}

func TestGetUpdateDeleteTools(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	_, stored, err := srv.handleStoreMemory(ctx, nil, StoreMemoryInput{Content: "initial wording here"})
	require.NoError(t, err)

	_, got, err := srv.handleGetMemory(ctx, nil, GetMemoryInput{ID: stored.ID})
	require.NoError(t, err)
	assert.Equal(t, "initial wording here", got.Content)

	newContent := "revised wording entirely"
	_, updated, err := srv.handleUpdateMemory(ctx, nil, UpdateMemoryInput{
		ID:      stored.ID,
		Content: &newContent,
	})
	require.NoError(t, err)
	assert.Equal(t, newContent, updated.Content)

	_, deleted, err := srv.handleDeleteMemory(ctx, nil, DeleteMemoryInput{ID: stored.ID})
	require.NoError(t, err)
	assert.True(t, deleted.Deleted)

	_, _, err = srv.handleGetMemory(ctx, nil, GetMemoryInput{ID: stored.ID})
	require.Error(t, err)
	mcpErr, ok := err.(*MCPError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeRecordNotFound, mcpErr.Code)
}

func TestConsolidateTool_RequiresConfirm(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	_, _, err := srv.handleStoreMemory(ctx, nil, StoreMemoryInput{Content: "duplicate candidate text"})
	require.NoError(t, err)

	_, _, err = srv.handleConsolidate(ctx, nil, ConsolidateInput{Confirm: false})
	require.Error(t, err)

	mcpErr, ok := err.(*MCPError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeConfirmationRequired, mcpErr.Code)
}

func TestConsolidateTool_MergesDuplicates(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	for _, content := range []string{"Enhanced Memory MCP Server", "Enhanced Memory Server MCP"} {
		_, _, err := srv.handleStoreMemory(ctx, nil, StoreMemoryInput{Content: content, Type: "doc"})
		require.NoError(t, err)
	}

	_, out, err := srv.handleConsolidate(ctx, nil, ConsolidateInput{Threshold: 0.8, Confirm: true})
	require.NoError(t, err)

	assert.Equal(t, 1, out.Merged)
	assert.Equal(t, 1, out.Deleted)
}

func TestRebuildIndexTool(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	_, _, err := srv.handleRebuildIndex(ctx, nil, RebuildIndexInput{Confirm: false})
	require.Error(t, err)

	_, _, err = srv.handleStoreMemory(ctx, nil, StoreMemoryInput{Content: "rebuild target record"})
	require.NoError(t, err)

	_, out, err := srv.handleRebuildIndex(ctx, nil, RebuildIndexInput{Confirm: true})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Indexed)
}

func TestAutocompleteTool(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	_, _, err := srv.handleStoreMemory(ctx, nil, StoreMemoryInput{Content: "deployment deployed deploys"})
	require.NoError(t, err)

	_, out, err := srv.handleAutocomplete(ctx, nil, AutocompleteInput{Prefix: "deplo"})
	require.NoError(t, err)
	assert.NotEmpty(t, out.Words)

	_, _, err = srv.handleAutocomplete(ctx, nil, AutocompleteInput{Prefix: " "})
	require.Error(t, err)
}

func TestMemoryStatsTool(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	_, _, err := srv.handleStoreMemory(ctx, nil, StoreMemoryInput{Content: "stats sample entry"})
	require.NoError(t, err)

	_, _, err = srv.handleSearchMemories(ctx, nil, SearchMemoriesInput{Query: "stats sample", Strategy: "exact"})
	require.NoError(t, err)

	_, out, err := srv.handleMemoryStats(ctx, nil, MemoryStatsInput{})
	require.NoError(t, err)

	assert.Equal(t, 1, out.Records)
	assert.Positive(t, out.WordEntries)
	require.NotNil(t, out.Cache)

	require.Len(t, out.Queries, 1)
	assert.Equal(t, "exact", out.Queries[0].Strategy)
	assert.Equal(t, uint64(1), out.Queries[0].Queries)
	assert.Equal(t, uint64(1), out.UniqueQueries)
}
