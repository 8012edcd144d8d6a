package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"webstar/fundraise-enrichment-worker/internal/config"
	"webstar/fundraise-enrichment-worker/internal/logging"
	"webstar/fundraise-enrichment-worker/internal/services"
	"webstar/fundraise-enrichment-worker/internal/storage/badger"
)

// rootOptions carries state shared by every subcommand
type rootOptions struct {
	storePath string
	cfg       *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Enrich fundraise records from the command line",
		Long: `Find press releases for funding rounds and extract the amount raised and
investor contacts. Records are kept in the local embedded store.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.cfg = config.Load()
			if opts.storePath != "" {
				opts.cfg.LocalStorePath = opts.storePath
			}
			logging.Setup(opts.cfg.LogLevel, opts.cfg.LogFormat)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.storePath, "store", "", "Local record store directory (default $LOCAL_STORE_PATH or ./data/records)")

	cmd.AddCommand(
		newRunCmd(opts),
		newBatchCmd(opts),
		newAddCmd(opts),
	)
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// localPipeline opens the local store and wires the enrichment pipeline on it.
// The returned close function releases the store.
func localPipeline(ctx context.Context, cfg *config.Config) (*badger.RecordStorage, *services.Pipeline, func(), error) {
	db, err := badger.NewBadgerDB(cfg.LocalStorePath)
	if err != nil {
		return nil, nil, nil, eris.Wrapf(err, "open local store %s", cfg.LocalStorePath)
	}
	store := badger.NewRecordStorage(db)
	pipeline := services.NewPipeline(ctx, cfg, store, nil)
	return store, pipeline, func() { _ = db.Close() }, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
