package cmd

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/substratelabs/memcore/internal/output"
	"github.com/substratelabs/memcore/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	strategy      string
	limit         int
	minImportance float64
	typeFilter    string
	format        string // "text", "json"
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search stored memories",
		Long: `Search stored memories from the command line.

Uses the same strategies as the MCP search_memories tool: exact word
matching, trigram fuzzy matching, TF-IDF semantic similarity, or a
weighted hybrid of all three.

Examples:
  memcore search "deploy checklist"
  memcore search "database migration" --strategy exact --limit 5
  memcore search "auth" --type decision --min-importance 0.5
  memcore search "rollback" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.strategy, "strategy", "s", "hybrid", "Search strategy: exact, fuzzy, semantic, hybrid")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().Float64Var(&opts.minImportance, "min-importance", 0, "Drop results below this importance")
	cmd.Flags().StringVarP(&opts.typeFilter, "type", "t", "", "Restrict results to one record type")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	strategy, err := search.ParseStrategy(opts.strategy)
	if err != nil {
		return err
	}

	rt, err := openRuntime(false)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	limit := opts.limit
	if limit <= 0 {
		limit = rt.cfg.Search.MaxResults
	}

	resp, err := rt.engine.Search(ctx, query, strategy, search.Options{
		Limit:         limit,
		MinImportance: opts.minImportance,
		TypeFilter:    opts.typeFilter,
	})
	if err != nil {
		return err
	}

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	out := output.New(cmd.OutOrStdout())
	out.SearchResults(query, resp)
	return nil
}
