package cmd

import (
	"github.com/spf13/cobra"

	"github.com/substratelabs/memcore/internal/output"
)

// newReindexCmd creates the reindex command.
func newReindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the word, trigram, and vector indexes",
		Long: `Drop and rebuild all search indexes from the stored records.

Use this after upgrading memcore or if search results look stale.
The query cache is cleared when the rebuild finishes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := openRuntime(true)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			out := output.New(cmd.OutOrStdout())
			out.Info("rebuilding indexes...")

			n, err := rt.service.Rebuild(cmd.Context())
			if err != nil {
				return err
			}

			out.Successf("reindexed %d records", n)
			return nil
		},
	}
}
