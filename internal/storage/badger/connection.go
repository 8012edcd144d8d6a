// Package badger is the embedded record store used by the CLI and by the API
// when Supabase is not configured.
package badger

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/timshannon/badgerhold/v4"

	"webstar/fundraise-enrichment-worker/internal/logging"
)

// BadgerDB manages the Badger database connection
type BadgerDB struct {
	store  *badgerhold.Store
	path   string
	logger zerolog.Logger
}

// NewBadgerDB opens (creating if needed) the database at path
func NewBadgerDB(path string) (*BadgerDB, error) {
	logger := logging.Component("BadgerDB")

	if err := os.MkdirAll(filepath.Clean(path), 0o755); err != nil {
		return nil, eris.Wrapf(err, "failed to create database directory %s", path)
	}

	options := badgerhold.DefaultOptions
	options.Options = badger.DefaultOptions(path).WithLogger(badgerLogger{logger: logger})

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to open badger database at %s", path)
	}

	logger.Debug().Str("path", path).Msg("badger database opened")

	return &BadgerDB{
		store:  store,
		path:   path,
		logger: logger,
	}, nil
}

// badgerLogger routes badger's internal logging through zerolog.
// Badger is chatty at info level, so info is demoted to debug.
type badgerLogger struct {
	logger zerolog.Logger
}

var _ badger.Logger = badgerLogger{}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msgf(strings.TrimSpace(format), args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn().Msgf(strings.TrimSpace(format), args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug().Msgf(strings.TrimSpace(format), args...)
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Trace().Msgf(strings.TrimSpace(format), args...)
}

// Store returns the underlying badgerhold store
func (b *BadgerDB) Store() *badgerhold.Store {
	return b.store
}

// Close closes the database connection
func (b *BadgerDB) Close() error {
	if b.store != nil {
		return b.store.Close()
	}
	return nil
}
