package handlers

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"webstar/fundraise-enrichment-worker/internal/dto"
	"webstar/fundraise-enrichment-worker/internal/logging"
)

const (
	// CharsPerToken is the approximate number of characters per token for estimation
	CharsPerToken = 4
)

type recordIDKey struct{}

// WithRecordID attaches the record being enriched to ctx so usage metrics can be attributed to it
func WithRecordID(ctx context.Context, recordID string) context.Context {
	return context.WithValue(ctx, recordIDKey{}, recordID)
}

// RecordIDFromContext returns the record attached by WithRecordID, or ""
func RecordIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(recordIDKey{}).(string)
	return id
}

// UsageMetricStore persists usage metrics
type UsageMetricStore interface {
	InsertUsageMetric(metric *dto.UsageMetricInput) error
}

// UsageTrackerHandler tracks AI usage metrics
type UsageTrackerHandler struct {
	store   UsageMetricStore
	pricing map[string]dto.TokenPricing
	mu      sync.Mutex
	logger  zerolog.Logger
}

// NewUsageTrackerHandler creates a new UsageTrackerHandler. A nil store disables persistence.
func NewUsageTrackerHandler(store UsageMetricStore) *UsageTrackerHandler {
	return &UsageTrackerHandler{
		store:   store,
		pricing: dto.DefaultTokenPricing(),
		logger:  logging.Component("UsageTracker"),
	}
}

// EstimateTokens estimates token count from text length
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + CharsPerToken - 1) / CharsPerToken
}

// CalculateCost calculates the estimated cost for a given operation
func (h *UsageTrackerHandler) CalculateCost(model string, inputTokens, outputTokens int) float64 {
	h.mu.Lock()
	pricing, ok := h.pricing[model]
	if !ok {
		// Default to flash pricing if model not found
		pricing = h.pricing["gemini-2.5-flash"]
	}
	h.mu.Unlock()

	inputCost := float64(inputTokens) * pricing.InputPricePerMTok / 1_000_000
	outputCost := float64(outputTokens) * pricing.OutputPricePerMTok / 1_000_000

	return inputCost + outputCost
}

// ProviderForModel guesses the provider from a model name
func ProviderForModel(model string) string {
	m := strings.ToLower(model)
	switch {
	case strings.Contains(m, "/"):
		return "openrouter"
	case strings.HasPrefix(m, "claude"):
		return "anthropic"
	case strings.HasPrefix(m, "gemini"):
		return "gemini"
	case m == "firecrawl":
		return "firecrawl"
	default:
		return "unknown"
	}
}

// TrackOperationInput contains the data needed to track an operation
type TrackOperationInput struct {
	RecordID      string
	OperationType dto.OperationType
	Model         string
	InputText     string
	OutputText    string
	// InputTokens and OutputTokens are used when the provider reported them;
	// otherwise the counts are estimated from the texts.
	InputTokens  int
	OutputTokens int
	StartTime    time.Time
	Success      bool
	ErrorMessage string
}

// TrackOperation records an AI operation for usage tracking
func (h *UsageTrackerHandler) TrackOperation(input TrackOperationInput) error {
	if h == nil || h.store == nil {
		return nil
	}

	inputTokens := input.InputTokens
	if inputTokens == 0 {
		inputTokens = EstimateTokens(input.InputText)
	}
	outputTokens := input.OutputTokens
	if outputTokens == 0 {
		outputTokens = EstimateTokens(input.OutputText)
	}
	totalTokens := inputTokens + outputTokens
	durationMs := time.Since(input.StartTime).Milliseconds()
	cost := h.CalculateCost(input.Model, inputTokens, outputTokens)

	metric := dto.UsageMetricInput{
		OperationType:   input.OperationType,
		Provider:        ProviderForModel(input.Model),
		Model:           input.Model,
		InputTokens:     inputTokens,
		OutputTokens:    outputTokens,
		TotalTokens:     totalTokens,
		EstimatedCostUS: cost,
		DurationMs:      durationMs,
		Success:         input.Success,
	}
	if input.RecordID != "" {
		id := input.RecordID
		metric.RecordID = &id
	}
	if input.ErrorMessage != "" {
		msg := input.ErrorMessage
		metric.ErrorMessage = &msg
	}

	if err := h.store.InsertUsageMetric(&metric); err != nil {
		h.logger.Warn().Err(err).Msg("failed to insert usage metric")
		return err
	}

	h.logger.Debug().
		Str("operation", string(input.OperationType)).
		Str("model", input.Model).
		Int("tokens", totalTokens).
		Float64("cost_usd", cost).
		Int64("duration_ms", durationMs).
		Bool("success", input.Success).
		Msg("tracked usage")

	return nil
}

// TrackPressScraping records a Firecrawl scrape. Firecrawl bills separately, so cost is zero.
func (h *UsageTrackerHandler) TrackPressScraping(recordID, inputURL string, outputSize int, startTime time.Time, success bool) {
	if h == nil || h.store == nil {
		return
	}

	metric := dto.UsageMetricInput{
		OperationType: dto.OperationPressScraping,
		Provider:      "firecrawl",
		Model:         "firecrawl",
		OutputTokens:  outputSize / CharsPerToken,
		TotalTokens:   outputSize / CharsPerToken,
		DurationMs:    time.Since(startTime).Milliseconds(),
		Success:       success,
	}
	if recordID != "" {
		metric.RecordID = &recordID
	}

	if err := h.store.InsertUsageMetric(&metric); err != nil {
		h.logger.Warn().Err(err).Str("url", inputURL).Msg("failed to insert scraping metric")
	}
}
