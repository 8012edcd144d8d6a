package badger

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/timshannon/badgerhold/v4"

	"webstar/fundraise-enrichment-worker/internal/dto"
	"webstar/fundraise-enrichment-worker/internal/logging"
)

// RecordStorage keeps fundraise records in Badger
type RecordStorage struct {
	db *BadgerDB
	// mu serializes read-check-write status transitions
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewRecordStorage creates a new RecordStorage instance
func NewRecordStorage(db *BadgerDB) *RecordStorage {
	return &RecordStorage{
		db:     db,
		logger: logging.Component("RecordStorage"),
	}
}

// GetRecord loads a record by ID
func (s *RecordStorage) GetRecord(ctx context.Context, id string) (*dto.FundraiseRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var record dto.FundraiseRecord
	if err := s.db.Store().Get(id, &record); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, eris.Wrapf(dto.ErrRecordNotFound, "id %s", id)
		}
		return nil, eris.Wrapf(err, "failed to get record %s", id)
	}
	return &record, nil
}

// CreateRecord inserts a new record. Existing IDs are rejected.
func (s *RecordStorage) CreateRecord(ctx context.Context, record *dto.FundraiseRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if record.ID == "" {
		return eris.Wrap(dto.ErrInvalidRecord, "record ID is required")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	if err := s.db.Store().Insert(record.ID, record); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return eris.Wrapf(dto.ErrInvalidRecord, "record %s already exists", record.ID)
		}
		return eris.Wrapf(err, "failed to insert record %s", record.ID)
	}

	s.logger.Debug().Str("record_id", record.ID).Str("company", record.CompanyName).Msg("record inserted")
	return nil
}

// UpdateRecordStatus moves a record to status, refusing illegal transitions
func (s *RecordStorage) UpdateRecordStatus(ctx context.Context, id string, status dto.RecordStatus, errorMessage *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.GetRecord(ctx, id)
	if err != nil {
		return err
	}
	if !record.Status.CanTransitionTo(status) {
		return eris.Wrapf(dto.ErrInvalidTransition, "%s -> %s for record %s", record.Status, status, id)
	}

	now := time.Now().UTC()
	record.Status = status
	switch status {
	case dto.RecordStatusProcessing:
		record.StartedAt = &now
	case dto.RecordStatusCompleted:
		record.CompletedAt = &now
	case dto.RecordStatusError:
		record.CompletedAt = &now
		record.ErrorMessage = errorMessage
	}

	if err := s.db.Store().Update(id, record); err != nil {
		return eris.Wrapf(err, "failed to update status of record %s", id)
	}

	s.logger.Debug().Str("record_id", id).Str("status", string(status)).Msg("record status updated")
	return nil
}

// SaveEnrichment writes the enrichment fields of a record
func (s *RecordStorage) SaveEnrichment(ctx context.Context, id string, outcome *dto.EnrichmentOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.GetRecord(ctx, id)
	if err != nil {
		return err
	}

	record.SetPressURLs(outcome.PressURLs)
	record.InvestorContacts = dto.NormalizeField(outcome.InvestorContacts)
	record.AmountRaised = dto.NormalizeField(outcome.AmountRaised)

	if err := s.db.Store().Update(id, record); err != nil {
		return eris.Wrapf(err, "failed to save enrichment for record %s", id)
	}
	return nil
}

// ListRecordsByStatus returns up to limit records with the given status, oldest first
func (s *RecordStorage) ListRecordsByStatus(ctx context.Context, status dto.RecordStatus, limit int) ([]dto.FundraiseRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := badgerhold.Where("Status").Eq(status).SortBy("CreatedAt")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var records []dto.FundraiseRecord
	if err := s.db.Store().Find(&records, query); err != nil {
		return nil, eris.Wrapf(err, "failed to list %s records", status)
	}
	return records, nil
}
