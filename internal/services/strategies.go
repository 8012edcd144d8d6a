package services

import (
	"context"
	"strings"

	"webstar/fundraise-enrichment-worker/internal/dto"
	"webstar/fundraise-enrichment-worker/internal/handlers"
)

// RecordStore loads and updates fundraise records.
// handlers.SupabaseHandler and badger.RecordStorage satisfy it.
type RecordStore interface {
	GetRecord(ctx context.Context, id string) (*dto.FundraiseRecord, error)
	CreateRecord(ctx context.Context, record *dto.FundraiseRecord) error
	UpdateRecordStatus(ctx context.Context, id string, status dto.RecordStatus, errorMessage *string) error
	SaveEnrichment(ctx context.Context, id string, outcome *dto.EnrichmentOutcome) error
	ListRecordsByStatus(ctx context.Context, status dto.RecordStatus, limit int) ([]dto.FundraiseRecord, error)
}

// SearchStrategy finds candidate press URLs for a funding round
type SearchStrategy interface {
	FindPressURLs(ctx context.Context, q handlers.SearchQuery) []string
	FindAlternateURLs(ctx context.Context, q handlers.SearchQuery, exclude map[string]bool) []string
}

// ContentFetcher downloads a page and returns its readable text, "" on failure
type ContentFetcher interface {
	FetchText(ctx context.Context, url string) string
}

// ValidationStrategy decides whether a fetched page is about the funding round
type ValidationStrategy interface {
	Validate(url, content, companyName string) bool
}

// ExtractionStrategy pulls the amount and investor contacts out of article text
type ExtractionStrategy interface {
	Extract(ctx context.Context, input handlers.ExtractionInput) handlers.ExtractionResult
}

// FallbackStrategy asks for the funding details directly when nothing was found
type FallbackStrategy interface {
	Lookup(ctx context.Context, input handlers.FallbackInput) *handlers.FallbackResult
}

// Validation modes selectable with VALIDATION_MODE
const (
	ValidationModeContent = "content"
	ValidationModeURL     = "url"
)

// ContentValidation accepts a page when its text scores as a funding
// announcement and mentions the company
type ContentValidation struct {
	Filter *handlers.RelevanceFilter
}

// Validate implements ValidationStrategy
func (v ContentValidation) Validate(url, content, companyName string) bool {
	return v.Filter.IsRelevantContent(url, content, companyName)
}

// URLValidation trusts the URL rule alone, as long as the page had text
type URLValidation struct {
	Filter *handlers.RelevanceFilter
}

// Validate implements ValidationStrategy
func (v URLValidation) Validate(url, content, companyName string) bool {
	return strings.TrimSpace(content) != "" && v.Filter.IsRelevantURL(url, companyName)
}

// NewValidationStrategy returns the strategy for mode, content validation by default
func NewValidationStrategy(mode string, filter *handlers.RelevanceFilter) ValidationStrategy {
	if strings.EqualFold(strings.TrimSpace(mode), ValidationModeURL) {
		return URLValidation{Filter: filter}
	}
	return ContentValidation{Filter: filter}
}
