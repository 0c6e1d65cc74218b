package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/substratelabs/memcore/internal/config"
	"github.com/substratelabs/memcore/internal/consolidate"
	coreerrors "github.com/substratelabs/memcore/internal/errors"
	"github.com/substratelabs/memcore/internal/memory"
	"github.com/substratelabs/memcore/internal/search"
	"github.com/substratelabs/memcore/internal/store"
)

// Server is the MCP server for memcore. It bridges AI clients with the
// memory service and the search engine.
type Server struct {
	mcp          *mcp.Server
	service      *memory.Service
	engine       *search.Engine
	consolidator *consolidate.Engine
	config       *config.Config
	logger       *slog.Logger
}

// ToolInfo describes a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

// NewServer creates the MCP server and registers all tools.
func NewServer(service *memory.Service, engine *search.Engine, consolidator *consolidate.Engine, cfg *config.Config, version string) (*Server, error) {
	if service == nil {
		return nil, errors.New("memory service is required")
	}
	if engine == nil {
		return nil, errors.New("search engine is required")
	}
	if consolidator == nil {
		return nil, errors.New("consolidation engine is required")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}

	s := &Server{
		service:      service,
		engine:       engine,
		consolidator: consolidator,
		config:       cfg,
		logger:       slog.Default(),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "memcore",
			Version: version,
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// ListTools returns the registered tools.
func (s *Server) ListTools() []ToolInfo {
	return []ToolInfo{
		{Name: "store_memory", Description: "Store a new memory record. Indexes the content immediately so it is searchable right away."},
		{Name: "get_memory", Description: "Fetch one memory record by id. Bumps its access count, which raises its search ranking."},
		{Name: "update_memory", Description: "Update a memory record's content, type, metadata, or importance. Omitted fields are left unchanged."},
		{Name: "delete_memory", Description: "Delete a memory record and its index entries."},
		{Name: "search_memories", Description: "Search memories by exact words, fuzzy (typo-tolerant) matching, semantic similarity, or a hybrid of all three. Hybrid is the default and usually the best choice."},
		{Name: "autocomplete", Description: "Complete a word prefix against the indexed vocabulary, most frequent words first."},
		{Name: "consolidate_memories", Description: "Merge near-duplicate memories. Destructive: requires confirm=true."},
		{Name: "rebuild_index", Description: "Clear and rebuild all search indexes from stored records. Requires confirm=true."},
		{Name: "memory_stats", Description: "Report record, index, and cache statistics."},
	}
}

// registerTools wires the typed tool handlers into the MCP server.
func (s *Server) registerTools() {
	s.logger.Debug("Registering MCP tools")

	for _, t := range s.ListTools() {
		tool := &mcp.Tool{Name: t.Name, Description: t.Description}
		switch t.Name {
		case "store_memory":
			mcp.AddTool(s.mcp, tool, s.handleStoreMemory)
		case "get_memory":
			mcp.AddTool(s.mcp, tool, s.handleGetMemory)
		case "update_memory":
			mcp.AddTool(s.mcp, tool, s.handleUpdateMemory)
		case "delete_memory":
			mcp.AddTool(s.mcp, tool, s.handleDeleteMemory)
		case "search_memories":
			mcp.AddTool(s.mcp, tool, s.handleSearchMemories)
		case "autocomplete":
			mcp.AddTool(s.mcp, tool, s.handleAutocomplete)
		case "consolidate_memories":
			mcp.AddTool(s.mcp, tool, s.handleConsolidate)
		case "rebuild_index":
			mcp.AddTool(s.mcp, tool, s.handleRebuildIndex)
		case "memory_stats":
			mcp.AddTool(s.mcp, tool, s.handleMemoryStats)
		}
	}

	s.logger.Info("MCP tools registered", slog.Int("count", len(s.ListTools())))
}

func (s *Server) handleStoreMemory(ctx context.Context, req *mcp.CallToolRequest, input StoreMemoryInput) (
	*mcp.CallToolResult,
	StoreMemoryOutput,
	error,
) {
	if strings.TrimSpace(input.Content) == "" {
		return nil, StoreMemoryOutput{}, NewInvalidParamsError("content is required and must not be blank")
	}

	rec, err := s.service.Store(ctx, memory.StoreInput{
		Content:    input.Content,
		Type:       input.Type,
		Metadata:   input.Metadata,
		Importance: input.Importance,
	})
	if err != nil {
		return nil, StoreMemoryOutput{}, MapError(err)
	}

	s.logger.Info("memory stored",
		slog.String("record_id", rec.ID),
		slog.String("type", rec.Type))

	return textResult("Stored memory " + rec.ID), StoreMemoryOutput{ID: rec.ID}, nil
}

func (s *Server) handleGetMemory(ctx context.Context, req *mcp.CallToolRequest, input GetMemoryInput) (
	*mcp.CallToolResult,
	MemoryRecordOutput,
	error,
) {
	if input.ID == "" {
		return nil, MemoryRecordOutput{}, NewInvalidParamsError("id is required")
	}

	rec, err := s.service.Get(ctx, input.ID)
	if err != nil {
		return nil, MemoryRecordOutput{}, MapError(err)
	}
	return textResult(FormatRecord(rec)), recordOutput(rec), nil
}

func (s *Server) handleUpdateMemory(ctx context.Context, req *mcp.CallToolRequest, input UpdateMemoryInput) (
	*mcp.CallToolResult,
	MemoryRecordOutput,
	error,
) {
	if input.ID == "" {
		return nil, MemoryRecordOutput{}, NewInvalidParamsError("id is required")
	}

	rec, err := s.service.Update(ctx, input.ID, memory.UpdateInput{
		Content:    input.Content,
		Type:       input.Type,
		Metadata:   input.Metadata,
		Importance: input.Importance,
	})
	if err != nil {
		return nil, MemoryRecordOutput{}, MapError(err)
	}

	s.logger.Info("memory updated", slog.String("record_id", rec.ID))
	return textResult("Updated memory " + rec.ID), recordOutput(rec), nil
}

func (s *Server) handleDeleteMemory(ctx context.Context, req *mcp.CallToolRequest, input DeleteMemoryInput) (
	*mcp.CallToolResult,
	DeleteMemoryOutput,
	error,
) {
	if input.ID == "" {
		return nil, DeleteMemoryOutput{}, NewInvalidParamsError("id is required")
	}

	if err := s.service.Delete(ctx, input.ID); err != nil {
		return nil, DeleteMemoryOutput{}, MapError(err)
	}

	s.logger.Info("memory deleted", slog.String("record_id", input.ID))
	return textResult("Deleted memory " + input.ID), DeleteMemoryOutput{Deleted: true}, nil
}

func (s *Server) handleSearchMemories(ctx context.Context, req *mcp.CallToolRequest, input SearchMemoriesInput) (
	*mcp.CallToolResult,
	search.Response,
	error,
) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, search.Response{}, NewInvalidParamsError("query is required and must not be blank")
	}

	strategy, err := search.ParseStrategy(input.Strategy)
	if err != nil {
		return nil, search.Response{}, NewInvalidParamsError(err.Error())
	}

	start := time.Now()
	requestID := generateRequestID()

	limit := input.Limit
	if limit <= 0 {
		limit = s.config.Search.MaxResults
	}

	s.logger.Info("search started",
		slog.String("request_id", requestID),
		slog.String("query", input.Query),
		slog.String("strategy", string(strategy)),
		slog.Int("limit", limit))

	resp, err := s.engine.Search(ctx, input.Query, strategy, search.Options{
		Limit:         limit,
		MinImportance: input.MinImportance,
		TypeFilter:    input.Type,
	})
	if err != nil {
		s.logger.Error("search failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()))
		return nil, search.Response{}, MapError(err)
	}

	s.logger.Info("search completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", time.Since(start)),
		slog.Int("result_count", len(resp.Results)))

	return textResult(FormatSearchResults(input.Query, resp)), *resp, nil
}

func (s *Server) handleAutocomplete(ctx context.Context, req *mcp.CallToolRequest, input AutocompleteInput) (
	*mcp.CallToolResult,
	AutocompleteOutput,
	error,
) {
	if strings.TrimSpace(input.Prefix) == "" {
		return nil, AutocompleteOutput{}, NewInvalidParamsError("prefix is required")
	}

	words, err := s.engine.Autocomplete(ctx, input.Prefix, input.Limit)
	if err != nil {
		return nil, AutocompleteOutput{}, MapError(err)
	}
	return textResult(strings.Join(words, "\n")), AutocompleteOutput{Words: words}, nil
}

func (s *Server) handleConsolidate(ctx context.Context, req *mcp.CallToolRequest, input ConsolidateInput) (
	*mcp.CallToolResult,
	ConsolidateOutput,
	error,
) {
	threshold := input.Threshold
	if threshold == 0 {
		threshold = s.config.Consolidation.Threshold
	}

	result, err := s.consolidator.Run(ctx, threshold, input.Confirm)
	if err != nil {
		return nil, ConsolidateOutput{}, MapError(err)
	}

	s.logger.Info("consolidation completed",
		slog.Int("merged", result.Merged),
		slog.Int("scanned", result.Scanned))

	out := ConsolidateOutput{
		Merged:  result.Merged,
		Deleted: result.Deleted,
		Scanned: result.Scanned,
	}
	return textResult(formatConsolidation(out)), out, nil
}

func (s *Server) handleRebuildIndex(ctx context.Context, req *mcp.CallToolRequest, input RebuildIndexInput) (
	*mcp.CallToolResult,
	RebuildIndexOutput,
	error,
) {
	if !input.Confirm {
		return nil, RebuildIndexOutput{}, MapError(
			coreerrors.ConfirmationRequired("rebuild_index"))
	}

	count, err := s.service.Rebuild(ctx)
	if err != nil {
		return nil, RebuildIndexOutput{}, MapError(err)
	}

	s.logger.Info("index rebuilt", slog.Int("records", count))
	return textResult(fmt.Sprintf("Rebuilt indexes for %d records", count)), RebuildIndexOutput{Indexed: count}, nil
}

func (s *Server) handleMemoryStats(ctx context.Context, req *mcp.CallToolRequest, _ MemoryStatsInput) (
	*mcp.CallToolResult,
	MemoryStatsOutput,
	error,
) {
	stats, err := s.service.Stats(ctx)
	if err != nil {
		return nil, MemoryStatsOutput{}, MapError(err)
	}

	out := MemoryStatsOutput{
		Records:     stats.Records,
		WordEntries: stats.WordEntries,
		TrigramRows: stats.TrigramRows,
		Vectors:     stats.Vectors,
	}
	if stats.Cache != nil {
		out.Cache = &CacheStats{
			Hits:      stats.Cache.Hits,
			Misses:    stats.Cache.Misses,
			Evictions: stats.Cache.Evictions,
			Size:      stats.Cache.Size,
			Capacity:  stats.Cache.Capacity,
		}
	}

	snap := s.engine.Metrics()
	out.UniqueQueries = snap.UniqueQueries
	for _, strategy := range snap.Strategies() {
		ss := snap.PerStrategy[strategy]
		out.Queries = append(out.Queries, QueryStats{
			Strategy:    strategy,
			Queries:     ss.Queries,
			ZeroResults: ss.ZeroResults,
			CacheHits:   ss.CacheHits,
		})
	}
	return textResult(formatStats(out)), out, nil
}

// Serve runs the server over stdio until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("Starting MCP server", slog.String("transport", "stdio"))

	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && err != context.Canceled {
		s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("MCP server stopped")
	return nil
}

// recordOutput converts a record to the tool output shape.
func recordOutput(rec *store.Record) MemoryRecordOutput {
	return MemoryRecordOutput{
		ID:         rec.ID,
		Content:    rec.Content,
		Type:       rec.Type,
		Metadata:   rec.Metadata,
		Importance: rec.ImportanceScore,
		Accessed:   rec.AccessCount,
		CreatedAt:  rec.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  rec.UpdatedAt.Format(time.RFC3339),
	}
}

// textResult wraps markdown text in a tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
