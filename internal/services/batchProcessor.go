package services

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"webstar/fundraise-enrichment-worker/internal/config"
	"webstar/fundraise-enrichment-worker/internal/dto"
	"webstar/fundraise-enrichment-worker/internal/logging"
	"webstar/fundraise-enrichment-worker/internal/retry"
)

// DefaultBatchLimit is how many pending records a batch picks when none are named
const DefaultBatchLimit = 25

// RecordProcessor enriches a single record by ID. EnrichmentProcessor satisfies it.
type RecordProcessor interface {
	ProcessRecord(ctx context.Context, id string) (*dto.FundraiseRecord, error)
}

// BatchProcessor enriches records one at a time with a pause between records
type BatchProcessor struct {
	store       RecordStore
	processor   RecordProcessor
	recordDelay time.Duration
	logger      zerolog.Logger
}

// NewBatchProcessor creates a new BatchProcessor instance
func NewBatchProcessor(store RecordStore, processor RecordProcessor, pipeline config.PipelineConfig) *BatchProcessor {
	return &BatchProcessor{
		store:       store,
		processor:   processor,
		recordDelay: pipeline.RecordDelay,
		logger:      logging.Component("BatchProcessor"),
	}
}

// ProcessBatch enriches the records named in req, or the oldest pending
// records when req names none. A failing record does not stop the batch;
// cancelling ctx does.
func (b *BatchProcessor) ProcessBatch(ctx context.Context, req dto.BatchRequest) (*dto.BatchSummary, error) {
	startTime := time.Now()

	ids, err := b.selectRecords(ctx, req)
	if err != nil {
		return nil, err
	}

	summary := &dto.BatchSummary{Total: len(ids), Results: make([]dto.BatchResult, 0, len(ids))}
	b.logger.Info().Int("records", len(ids)).Msg("batch started")

	for i, id := range ids {
		if i > 0 {
			if err := retry.Sleep(ctx, b.recordDelay); err != nil {
				break
			}
		}
		if ctx.Err() != nil {
			break
		}

		result := b.processOne(ctx, id)
		summary.Results = append(summary.Results, result)
		switch {
		case result.Skipped:
			summary.Skipped++
		case result.Status == dto.RecordStatusCompleted:
			summary.Completed++
		case result.Status == dto.RecordStatusError:
			summary.Failed++
		}
		if result.Enriched {
			summary.Enriched++
		}

		b.logger.Info().
			Int("processed", i+1).
			Int("total", len(ids)).
			Str("record_id", id).
			Str("status", string(result.Status)).
			Msg("batch progress")
	}

	b.logger.Info().
		Int("total", summary.Total).
		Int("completed", summary.Completed).
		Int("failed", summary.Failed).
		Int("enriched", summary.Enriched).
		Dur("duration", time.Since(startTime)).
		Msg("batch complete")

	return summary, ctx.Err()
}

func (b *BatchProcessor) selectRecords(ctx context.Context, req dto.BatchRequest) ([]string, error) {
	if len(req.RecordIDs) > 0 {
		return req.RecordIDs, nil
	}

	limit := req.Limit
	if limit <= 0 {
		limit = DefaultBatchLimit
	}
	records, err := b.store.ListRecordsByStatus(ctx, dto.RecordStatusPending, limit)
	if err != nil {
		return nil, eris.Wrap(err, "list pending records")
	}

	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

func (b *BatchProcessor) processOne(ctx context.Context, id string) dto.BatchResult {
	result := dto.BatchResult{RecordID: id}

	record, err := b.processor.ProcessRecord(ctx, id)
	if err != nil {
		result.Error = err.Error()
		result.Status = dto.RecordStatusError
		if errors.Is(err, dto.ErrInvalidTransition) && record != nil {
			result.Status = record.Status
			result.Skipped = true
		}
		return result
	}

	result.Status = record.Status
	result.Enriched = recordEnriched(record)
	return result
}

// recordEnriched reports whether enrichment produced at least one value
func recordEnriched(r *dto.FundraiseRecord) bool {
	if !dto.IsNotAvailable(r.InvestorContacts) || dto.IsValidAmount(r.AmountRaised) {
		return true
	}
	for _, u := range r.PressURLs() {
		if !dto.IsNotAvailable(u) {
			return true
		}
	}
	return false
}
