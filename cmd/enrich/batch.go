package main

import (
	"github.com/spf13/cobra"

	"webstar/fundraise-enrichment-worker/internal/dto"
	"webstar/fundraise-enrichment-worker/internal/services"
)

func newBatchCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "batch [record-id...]",
		Short: "Enrich pending records in the local store",
		Long: `Enrich the named records, or the oldest pending records when none are named,
one at a time. Prints the batch summary as JSON.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, pipeline, closeStore, err := localPipeline(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			summary, err := pipeline.Batch.ProcessBatch(cmd.Context(), dto.BatchRequest{
				RecordIDs: args,
				Limit:     limit,
			})
			if summary != nil {
				if printErr := printJSON(cmd.OutOrStdout(), summary); printErr != nil {
					return printErr
				}
			}
			return err
		},
	}

	cmd.Flags().IntVar(&limit, "limit", services.DefaultBatchLimit, "Maximum number of pending records to process")
	return cmd
}
