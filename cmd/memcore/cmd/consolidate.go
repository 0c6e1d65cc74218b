package cmd

import (
	"github.com/spf13/cobra"

	"github.com/substratelabs/memcore/internal/output"
)

// newConsolidateCmd creates the consolidate command.
func newConsolidateCmd() *cobra.Command {
	var threshold float64
	var confirm bool

	cmd := &cobra.Command{
		Use:   "consolidate",
		Short: "Merge near-duplicate memories",
		Long: `Scan all records pairwise and merge those whose token sets overlap
above the similarity threshold. The less important record of each pair
is deleted and its access history folded into the survivor.

This deletes records, so it requires --confirm.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := openRuntime(true)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			out := output.New(cmd.OutOrStdout())

			if threshold == 0 {
				threshold = rt.cfg.Consolidation.Threshold
			}

			if !confirm {
				out.Warning("consolidation merges and deletes records; re-run with --confirm to proceed")
				return nil
			}

			result, err := rt.consolidator.Run(cmd.Context(), threshold, confirm)
			if err != nil {
				return err
			}

			if result.Merged == 0 {
				out.Infof("scanned %d records, no duplicates above %.2f", result.Scanned, threshold)
				return nil
			}
			out.Successf("merged %d pairs (%d records deleted, %d scanned)",
				result.Merged, result.Deleted, result.Scanned)
			return nil
		},
	}

	cmd.Flags().Float64VarP(&threshold, "threshold", "t", 0, "Jaccard similarity threshold (default from config)")
	cmd.Flags().BoolVar(&confirm, "confirm", false, "Actually merge and delete records")

	return cmd
}
