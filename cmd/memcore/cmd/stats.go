package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/substratelabs/memcore/internal/output"
)

// newStatsCmd creates the stats command.
func newStatsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show record, index, and cache statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := openRuntime(false)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			stats, err := rt.service.Stats(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}

			output.New(cmd.OutOrStdout()).Stats(stats)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output statistics as JSON")

	return cmd
}
