package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"webstar/fundraise-enrichment-worker/internal/storage/badger"
)

func newAddCmd(opts *rootOptions) *cobra.Command {
	flags := &recordFlags{}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a pending record to the local store",
		Long:  `Insert a pending record without enriching it. Use "enrich batch" to process pending records.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := badger.NewBadgerDB(opts.cfg.LocalStorePath)
			if err != nil {
				return eris.Wrapf(err, "open local store %s", opts.cfg.LocalStorePath)
			}
			defer db.Close()

			record := flags.record()
			if err := badger.NewRecordStorage(db).CreateRecord(cmd.Context(), record); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), record)
		},
	}

	flags.register(cmd)
	return cmd
}
