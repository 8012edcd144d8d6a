package main

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"webstar/fundraise-enrichment-worker/internal/dto"
)

type recordFlags struct {
	company   string
	date      string
	investors string
	amount    string
}

func (f *recordFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.company, "company", "", "Company name (required)")
	cmd.Flags().StringVar(&f.date, "date", "", "Raise date, free text or spreadsheet serial")
	cmd.Flags().StringVar(&f.investors, "investors", "", "Known investors, comma separated")
	cmd.Flags().StringVar(&f.amount, "amount", "", "Known amount raised")
	_ = cmd.MarkFlagRequired("company")
}

func (f *recordFlags) record() *dto.FundraiseRecord {
	return dto.NewPendingRecord(uuid.NewString(), f.company, f.date, f.amount, f.investors)
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	flags := &recordFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Enrich one funding round and print the result",
		Long: `Create a record for the funding round, enrich it immediately and print the
stored record as JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, pipeline, closeStore, err := localPipeline(ctx, opts.cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			record := flags.record()
			if err := store.CreateRecord(ctx, record); err != nil {
				return err
			}

			enriched, err := pipeline.Processor.ProcessRecord(ctx, record.ID)
			if err != nil {
				// print the stored error state before failing
				if stored, getErr := store.GetRecord(ctx, record.ID); getErr == nil {
					_ = printJSON(cmd.OutOrStdout(), stored)
				}
				return err
			}
			return printJSON(cmd.OutOrStdout(), enriched)
		},
	}

	flags.register(cmd)
	return cmd
}
