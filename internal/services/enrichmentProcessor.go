package services

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"webstar/fundraise-enrichment-worker/internal/config"
	"webstar/fundraise-enrichment-worker/internal/dto"
	"webstar/fundraise-enrichment-worker/internal/handlers"
	"webstar/fundraise-enrichment-worker/internal/logging"
	"webstar/fundraise-enrichment-worker/internal/retry"
)

// Stage is a step of the enrichment of one record
type Stage string

const (
	StagePending    Stage = "pending"
	StageSearching  Stage = "searching"
	StageValidating Stage = "validating"
	StageExtracting Stage = "extracting"
	StageFallback   Stage = "fallback-generating"
	StageCompleted  Stage = "completed"
	StageError      Stage = "error"
)

// ArticleSeparator joins the texts of the validated articles
const ArticleSeparator = "\n\n---\n\n"

// Sentinel errors re-exported for callers that only import services
var (
	ErrRecordNotFound    = dto.ErrRecordNotFound
	ErrInvalidTransition = dto.ErrInvalidTransition
)

// validatedArticle is a candidate URL whose content passed validation
type validatedArticle struct {
	URL  string
	Text string
}

// EnrichmentProcessor drives one record from pending to a terminal status
type EnrichmentProcessor struct {
	store       RecordStore
	search      SearchStrategy
	fetcher     ContentFetcher
	validation  ValidationStrategy
	extractor   ExtractionStrategy
	fallback    FallbackStrategy
	validate    *validator.Validate
	targetCount int
	topUp       retry.Policy
	logger      zerolog.Logger
}

// NewEnrichmentProcessor creates a new EnrichmentProcessor instance.
// search, extractor and fallback may be nil; the matching stage is then skipped.
func NewEnrichmentProcessor(
	store RecordStore,
	search SearchStrategy,
	fetcher ContentFetcher,
	validation ValidationStrategy,
	extractor ExtractionStrategy,
	fallback FallbackStrategy,
	pipeline config.PipelineConfig,
) *EnrichmentProcessor {
	targetCount := pipeline.TargetURLCount
	if targetCount <= 0 || targetCount > dto.MaxPressURLs {
		targetCount = dto.MaxPressURLs
	}

	logger := logging.Component("EnrichmentProcessor")
	logger.Info().
		Bool("search_enabled", search != nil).
		Bool("extractor_enabled", extractor != nil).
		Bool("fallback_enabled", fallback != nil).
		Int("target_urls", targetCount).
		Int("top_up_retries", pipeline.TopUpRetries).
		Msg("initializing enrichment processor")

	return &EnrichmentProcessor{
		store:       store,
		search:      search,
		fetcher:     fetcher,
		validation:  validation,
		extractor:   extractor,
		fallback:    fallback,
		validate:    validator.New(),
		targetCount: targetCount,
		topUp:       retry.Policy{MaxAttempts: pipeline.TopUpRetries, Backoff: pipeline.TopUpBackoff},
		logger:      logger,
	}
}

// ProcessRecord loads a pending record, enriches it and stores the result.
// The record ends completed whenever enrichment finishes, even if every field
// is N/A. It ends in error only when loading, validation, storing or the
// enrichment itself fails.
func (p *EnrichmentProcessor) ProcessRecord(ctx context.Context, id string) (*dto.FundraiseRecord, error) {
	startTime := time.Now()
	logger := p.logger.With().Str("record_id", id).Logger()

	record, err := p.store.GetRecord(ctx, id)
	if err != nil {
		if !errors.Is(err, dto.ErrRecordNotFound) && ctx.Err() == nil {
			p.failRecord(ctx, id, fmt.Sprintf("record cannot be loaded: %v", err))
		}
		logger.Error().Err(err).Msg("failed to load record")
		return nil, eris.Wrapf(err, "load record %s", id)
	}

	if record.Status != dto.RecordStatusPending {
		logger.Info().Str("status", string(record.Status)).Msg("record already processed or in progress - skipping")
		return record, eris.Wrapf(dto.ErrInvalidTransition, "record %s is %s", id, record.Status)
	}

	if err := p.validate.Struct(record); err != nil {
		msg := fmt.Sprintf("malformed record: %v", err)
		p.failRecord(ctx, id, msg)
		logger.Error().Err(err).Msg("record failed validation")
		return nil, eris.Wrap(dto.ErrInvalidRecord, msg)
	}

	if err := p.store.UpdateRecordStatus(ctx, id, dto.RecordStatusProcessing, nil); err != nil {
		logger.Error().Err(err).Msg("failed to claim record")
		return nil, eris.Wrapf(err, "claim record %s", id)
	}
	logger.Info().Str("company", record.CompanyName).Msg("record started")

	ctx = handlers.WithRecordID(ctx, id)
	outcome, err := p.safeEnrich(ctx, record)
	if err != nil {
		p.markError(ctx, id, err.Error())
		logger.Error().Err(err).Msg("enrichment failed")
		return nil, err
	}

	if err := p.store.SaveEnrichment(ctx, id, &outcome); err != nil {
		p.markError(ctx, id, fmt.Sprintf("failed to save enrichment: %v", err))
		logger.Error().Err(err).Msg("failed to save enrichment")
		return nil, eris.Wrapf(err, "save enrichment for %s", id)
	}

	if err := p.store.UpdateRecordStatus(ctx, id, dto.RecordStatusCompleted, nil); err != nil {
		logger.Error().Err(err).Msg("failed to mark record completed")
		return nil, eris.Wrapf(err, "complete record %s", id)
	}

	logger.Info().
		Str("stage", string(StageCompleted)).
		Strs("press_urls", dto.PadURLs(outcome.PressURLs)).
		Str("amount", dto.NormalizeField(outcome.AmountRaised)).
		Str("investor_contacts", dto.NormalizeField(outcome.InvestorContacts)).
		Bool("used_fallback", outcome.UsedFallback).
		Dur("duration", time.Since(startTime)).
		Msg("record completed")

	return p.store.GetRecord(ctx, id)
}

// safeEnrich runs Enrich, converting a panic into an error
func (p *EnrichmentProcessor) safeEnrich(ctx context.Context, record *dto.FundraiseRecord) (outcome dto.EnrichmentOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().
				Str("record_id", record.ID).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("enrichment panicked")
			err = eris.Errorf("enrichment panicked: %v", r)
		}
	}()
	return p.Enrich(ctx, record), nil
}

// Enrich finds, validates and extracts the funding details of record without
// touching the store. Every missing field is N/A.
func (p *EnrichmentProcessor) Enrich(ctx context.Context, record *dto.FundraiseRecord) dto.EnrichmentOutcome {
	logger := p.logger.With().Str("record_id", record.ID).Str("company", record.CompanyName).Logger()
	query := handlers.SearchQuery{
		CompanyName: record.CompanyName,
		Investors:   record.KnownInvestors,
		RaiseDate:   record.RaiseDate,
	}

	// 1. Search
	p.enterStage(logger, StageSearching)
	var candidates []string
	if p.search != nil {
		candidates = p.search.FindPressURLs(ctx, query)
	}

	// 2. Validate, topping up with the broader search while short of the target
	p.enterStage(logger, StageValidating)
	seen := make(map[string]bool)
	articles := p.validateCandidates(ctx, candidates, record.CompanyName, seen, nil)

	if len(articles) < p.targetCount && p.search != nil {
		p.topUp.Do(ctx, func(attempt int) bool {
			logger.Info().Int("attempt", attempt+1).Int("validated", len(articles)).Msg("topping up with alternate search")
			alternates := p.search.FindAlternateURLs(ctx, query, seen)
			articles = p.validateCandidates(ctx, alternates, record.CompanyName, seen, articles)
			return len(articles) >= p.targetCount
		})
	}

	outcome := dto.EnrichmentOutcome{
		PressURLs:        articleURLs(articles),
		InvestorContacts: dto.NotAvailable,
		AmountRaised:     dto.NotAvailable,
	}

	// 3. Extract
	if len(articles) > 0 && p.extractor != nil {
		p.enterStage(logger, StageExtracting)
		result := p.extractor.Extract(ctx, handlers.ExtractionInput{
			CompanyName:    record.CompanyName,
			KnownInvestors: record.KnownInvestors,
			Text:           joinArticles(articles),
		})
		// an amount without a currency marker counts as not found
		if amount := dto.NormalizeField(result.Amount); dto.IsValidAmount(amount) {
			outcome.AmountRaised = amount
		}
		outcome.InvestorContacts = dto.NormalizeField(result.Investors)
	}

	// 4. Fallback when nothing usable was found
	if p.fallback != nil && (len(articles) == 0 || outcomeEmpty(outcome)) {
		p.enterStage(logger, StageFallback)
		fb := p.fallback.Lookup(ctx, handlers.FallbackInput{
			CompanyName:    record.CompanyName,
			KnownInvestors: record.KnownInvestors,
			RaiseDate:      record.RaiseDate,
		})
		outcome = MergeOutcome(outcome, fb)
	}

	outcome.AmountRaised = ResolveAmount(outcome.AmountRaised, record.AmountRaised)
	return outcome
}

// ResolveAmount picks the amount to store: the found amount when it carries a
// currency and a magnitude, else a valid amount already on the record, else N/A
func ResolveAmount(found, existing string) string {
	if dto.IsValidAmount(found) {
		return strings.TrimSpace(found)
	}
	if dto.IsValidAmount(existing) {
		return strings.TrimSpace(existing)
	}
	return dto.NotAvailable
}

// validateCandidates fetches each unseen URL and appends the validated ones to articles
func (p *EnrichmentProcessor) validateCandidates(ctx context.Context, urls []string, company string, seen map[string]bool, articles []validatedArticle) []validatedArticle {
	for _, u := range urls {
		if len(articles) >= p.targetCount || ctx.Err() != nil {
			break
		}
		if seen[u] {
			continue
		}
		seen[u] = true

		text := p.fetcher.FetchText(ctx, u)
		if text == "" {
			p.logger.Debug().Str("url", u).Msg("no content fetched")
			continue
		}
		if !p.validation.Validate(u, text, company) {
			p.logger.Debug().Str("url", u).Msg("content not relevant")
			continue
		}
		p.logger.Info().Str("url", u).Int("length", len(text)).Msg("url validated")
		articles = append(articles, validatedArticle{URL: u, Text: text})
	}
	return articles
}

func (p *EnrichmentProcessor) enterStage(logger zerolog.Logger, stage Stage) {
	logger.Info().Str("stage", string(stage)).Msg("stage transition")
}

// MergeOutcome fills the gaps of primary with an accepted fallback result.
// Primary values win; N/A never overwrites a value. Fallback URLs fill free
// slots without duplicates.
func MergeOutcome(primary dto.EnrichmentOutcome, fb *handlers.FallbackResult) dto.EnrichmentOutcome {
	if fb == nil || !fb.Accepted {
		return primary
	}

	merged := primary
	if dto.IsNotAvailable(merged.AmountRaised) && !dto.IsNotAvailable(fb.AmountRaised) {
		merged.AmountRaised = fb.AmountRaised
		merged.UsedFallback = true
	}
	if dto.IsNotAvailable(merged.InvestorContacts) && !dto.IsNotAvailable(fb.InvestorContacts) {
		merged.InvestorContacts = fb.InvestorContacts
		merged.UsedFallback = true
	}

	urls := append([]string(nil), primary.PressURLs...)
	present := make(map[string]bool, len(urls))
	for _, u := range urls {
		present[u] = true
	}
	for _, u := range fb.URLs {
		if len(urls) >= dto.MaxPressURLs {
			break
		}
		if present[u] || dto.IsNotAvailable(u) {
			continue
		}
		present[u] = true
		urls = append(urls, u)
		merged.UsedFallback = true
	}
	merged.PressURLs = urls
	return merged
}

// failRecord moves a record that never started into error
func (p *EnrichmentProcessor) failRecord(ctx context.Context, id, message string) {
	ctx = context.WithoutCancel(ctx)
	if err := p.store.UpdateRecordStatus(ctx, id, dto.RecordStatusProcessing, nil); err != nil && !errors.Is(err, dto.ErrInvalidTransition) {
		p.logger.Warn().Err(err).Str("record_id", id).Msg("failed to claim record before marking error")
	}
	p.markError(ctx, id, message)
}

// markError moves a processing record into error. It runs even when ctx was
// cancelled so a shutdown does not leave the record processing.
func (p *EnrichmentProcessor) markError(ctx context.Context, id, message string) {
	ctx = context.WithoutCancel(ctx)
	if err := p.store.UpdateRecordStatus(ctx, id, dto.RecordStatusError, &message); err != nil {
		p.logger.Error().Err(err).Str("record_id", id).Msg("failed to mark record as error")
	}
}

func articleURLs(articles []validatedArticle) []string {
	urls := make([]string, 0, len(articles))
	for _, a := range articles {
		urls = append(urls, a.URL)
	}
	return urls
}

func joinArticles(articles []validatedArticle) string {
	texts := make([]string, 0, len(articles))
	for _, a := range articles {
		texts = append(texts, a.Text)
	}
	return strings.Join(texts, ArticleSeparator)
}

func outcomeEmpty(o dto.EnrichmentOutcome) bool {
	return dto.IsNotAvailable(o.AmountRaised) && dto.IsNotAvailable(o.InvestorContacts)
}
