package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"

	"webstar/fundraise-enrichment-worker/internal/dto"
	"webstar/fundraise-enrichment-worker/internal/logging"
)

const (
	// FundraisesTable holds the funding round records
	FundraisesTable = "fundraises"
	// UsageMetricsTable holds one row per model or scraping call
	UsageMetricsTable = "usage_metrics"
)

// SupabaseHandler handles database operations using Supabase
type SupabaseHandler struct {
	client *supabase.Client
	logger zerolog.Logger
}

// NewSupabaseHandler creates a new SupabaseHandler instance
// url is the Supabase project URL (e.g., "https://xxx.supabase.co")
// key is the Supabase anon or service role key
func NewSupabaseHandler(url, key string) (*SupabaseHandler, error) {
	if url == "" {
		return nil, fmt.Errorf("supabase URL is required")
	}
	if key == "" {
		return nil, fmt.Errorf("supabase key is required")
	}

	logger := logging.Component("SupabaseHandler")

	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		logger.Error().Err(err).Msg("failed to create client")
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}

	logger.Info().Str("url", url).Msg("supabase client ready")

	return &SupabaseHandler{
		client: client,
		logger: logger,
	}, nil
}

// GetClient returns the underlying Supabase client for advanced operations
func (h *SupabaseHandler) GetClient() *supabase.Client {
	return h.client
}

// GetRecord loads a fundraise record by ID
func (h *SupabaseHandler) GetRecord(ctx context.Context, id string) (*dto.FundraiseRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, _, err := h.client.From(FundraisesTable).Select("*", "exact", false).Eq("id", id).Execute()
	if err != nil {
		return nil, eris.Wrapf(err, "failed to get record %s", id)
	}

	var records []dto.FundraiseRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, eris.Wrap(err, "failed to parse record response")
	}
	if len(records) == 0 {
		return nil, eris.Wrapf(dto.ErrRecordNotFound, "id %s", id)
	}

	return &records[0], nil
}

// CreateRecord inserts a new record
func (h *SupabaseHandler) CreateRecord(ctx context.Context, record *dto.FundraiseRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	insertData := map[string]interface{}{
		"id":                record.ID,
		"company_name":      record.CompanyName,
		"raise_date":        record.RaiseDate,
		"amount_raised":     record.AmountRaised,
		"investors":         record.KnownInvestors,
		"press_url_1":       record.PressURL1,
		"press_url_2":       record.PressURL2,
		"press_url_3":       record.PressURL3,
		"investor_contacts": record.InvestorContacts,
		"status":            record.Status,
	}

	_, _, err := h.client.From(FundraisesTable).Insert(insertData, false, "", "", "").Execute()
	if err != nil {
		return eris.Wrapf(err, "failed to insert record for %s", record.CompanyName)
	}

	h.logger.Info().Str("record_id", record.ID).Str("company", record.CompanyName).Msg("record inserted")
	return nil
}

// UpdateRecordStatus moves a record to status. The update is conditional on
// the status read beforehand, so a concurrent worker cannot claim the same record.
func (h *SupabaseHandler) UpdateRecordStatus(ctx context.Context, id string, status dto.RecordStatus, errorMessage *string) error {
	current, err := h.GetRecord(ctx, id)
	if err != nil {
		return err
	}
	if !current.Status.CanTransitionTo(status) {
		return eris.Wrapf(dto.ErrInvalidTransition, "%s -> %s for record %s", current.Status, status, id)
	}

	update := statusUpdate(status, errorMessage, time.Now().UTC())

	data, _, err := h.client.From(FundraisesTable).
		Update(update, "representation", "").
		Eq("id", id).
		Eq("status", string(current.Status)).
		Execute()
	if err != nil {
		return eris.Wrapf(err, "failed to update status of record %s", id)
	}

	var updated []map[string]interface{}
	if err := json.Unmarshal(data, &updated); err != nil {
		return eris.Wrap(err, "failed to parse update response")
	}
	if len(updated) == 0 {
		return eris.Wrapf(dto.ErrInvalidTransition, "record %s changed status concurrently", id)
	}

	h.logger.Info().Str("record_id", id).Str("status", string(status)).Msg("record status updated")
	return nil
}

// statusUpdate builds the column changes for a status transition
func statusUpdate(status dto.RecordStatus, errorMessage *string, now time.Time) map[string]interface{} {
	update := map[string]interface{}{
		"status": status,
	}

	switch status {
	case dto.RecordStatusProcessing:
		update["started_at"] = now.Format(time.RFC3339)
	case dto.RecordStatusCompleted:
		update["completed_at"] = now.Format(time.RFC3339)
	case dto.RecordStatusError:
		update["completed_at"] = now.Format(time.RFC3339)
		if errorMessage != nil {
			update["error_message"] = *errorMessage
		}
	}
	return update
}

// SaveEnrichment writes the enrichment fields of a record
func (h *SupabaseHandler) SaveEnrichment(ctx context.Context, id string, outcome *dto.EnrichmentOutcome) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, _, err := h.client.From(FundraisesTable).Update(enrichmentUpdate(outcome), "", "").Eq("id", id).Execute()
	if err != nil {
		return eris.Wrapf(err, "failed to save enrichment for record %s", id)
	}

	h.logger.Info().Str("record_id", id).Msg("enrichment saved")
	return nil
}

// enrichmentUpdate maps an outcome onto columns
func enrichmentUpdate(outcome *dto.EnrichmentOutcome) map[string]interface{} {
	urls := dto.PadURLs(outcome.PressURLs)
	return map[string]interface{}{
		"press_url_1":       urls[0],
		"press_url_2":       urls[1],
		"press_url_3":       urls[2],
		"investor_contacts": dto.NormalizeField(outcome.InvestorContacts),
		"amount_raised":     dto.NormalizeField(outcome.AmountRaised),
	}
}

// ListRecordsByStatus returns up to limit records with the given status, oldest first
func (h *SupabaseHandler) ListRecordsByStatus(ctx context.Context, status dto.RecordStatus, limit int) ([]dto.FundraiseRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := h.client.From(FundraisesTable).Select("*", "exact", false).
		Eq("status", string(status)).
		Order("created_at", &postgrest.OrderOpts{Ascending: true})
	if limit > 0 {
		query = query.Limit(limit, "")
	}

	data, _, err := query.Execute()
	if err != nil {
		return nil, eris.Wrapf(err, "failed to list %s records", status)
	}

	var records []dto.FundraiseRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, eris.Wrap(err, "failed to parse records response")
	}

	h.logger.Debug().Str("status", string(status)).Int("count", len(records)).Msg("records listed")
	return records, nil
}

// InsertUsageMetric inserts a new usage metric record
func (h *SupabaseHandler) InsertUsageMetric(metric *dto.UsageMetricInput) error {
	_, _, err := h.client.From(UsageMetricsTable).Insert(metric, false, "", "", "").Execute()
	if err != nil {
		return eris.Wrap(err, "failed to insert usage metric")
	}
	return nil
}
