package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"webstar/fundraise-enrichment-worker/internal/config"
	"webstar/fundraise-enrichment-worker/internal/dto"
	"webstar/fundraise-enrichment-worker/internal/logging"
)

// FallbackInput is what the model is told about the funding round
type FallbackInput struct {
	CompanyName    string
	KnownInvestors string
	RaiseDate      string
}

// FallbackResult is the model's direct answer. Fields are N/A unless Accepted.
// @Description Press URLs, amount and investor contacts proposed by a language model
type FallbackResult struct {
	URLs             []string `json:"urls"`
	InvestorContacts string   `json:"investor_contacts"`
	AmountRaised     string   `json:"amount_raised"`
	ConfidenceScore  float64  `json:"confidence_score"`
	Accepted         bool     `json:"accepted"`
}

func emptyFallbackResult() *FallbackResult {
	return &FallbackResult{
		InvestorContacts: dto.NotAvailable,
		AmountRaised:     dto.NotAvailable,
	}
}

// FallbackResponse is the JSON contract the model is asked to follow
type FallbackResponse struct {
	URLs             []string `json:"urls"`
	InvestorContacts string   `json:"investor_contacts"`
	AmountRaised     string   `json:"amount_raised"`
	ConfidenceScore  float64  `json:"confidence_score"`
}

// FallbackLookupHandler asks a language model directly for the press URLs,
// amount and investors when searching and extraction found nothing
type FallbackLookupHandler struct {
	generator TextGenerator
	usage     *UsageTrackerHandler
	threshold float64
	logger    zerolog.Logger
}

// NewFallbackLookupHandler creates a new FallbackLookupHandler
func NewFallbackLookupHandler(generator TextGenerator, pipeline config.PipelineConfig) *FallbackLookupHandler {
	threshold := pipeline.ConfidenceThreshold
	if threshold <= 0 {
		threshold = config.DefaultConfidenceThreshold
	}
	return &FallbackLookupHandler{
		generator: generator,
		threshold: threshold,
		logger:    logging.Component("FallbackLookup"),
	}
}

// SetUsageTracker sets the usage tracker for recording model calls
func (h *FallbackLookupHandler) SetUsageTracker(usage *UsageTrackerHandler) {
	h.usage = usage
}

// Configured reports whether at least one provider is available
func (h *FallbackLookupHandler) Configured() bool {
	return h.generator != nil && h.generator.Len() > 0
}

// Lookup asks the model for the funding details. The result is accepted only
// when the self-reported confidence reaches the threshold; a malformed answer
// or a low score yields an all-N/A result.
func (h *FallbackLookupHandler) Lookup(ctx context.Context, input FallbackInput) *FallbackResult {
	result := emptyFallbackResult()
	if !h.Configured() {
		return result
	}

	prompt := buildFallbackPrompt(input)
	start := time.Now()
	gen, err := h.generator.Generate(ctx, fallbackSystemPrompt, prompt)
	if err != nil {
		h.logger.Warn().Err(err).Str("company", input.CompanyName).Msg("fallback lookup failed")
		_ = h.usage.TrackOperation(TrackOperationInput{
			RecordID:      RecordIDFromContext(ctx),
			OperationType: dto.OperationFallbackLookup,
			InputText:     fallbackSystemPrompt + prompt,
			StartTime:     start,
			ErrorMessage:  err.Error(),
		})
		return result
	}
	_ = h.usage.TrackOperation(TrackOperationInput{
		RecordID:      RecordIDFromContext(ctx),
		OperationType: dto.OperationFallbackLookup,
		Model:         gen.Model,
		InputText:     fallbackSystemPrompt + prompt,
		OutputText:    gen.Text,
		InputTokens:   gen.InputTokens,
		OutputTokens:  gen.OutputTokens,
		StartTime:     start,
		Success:       true,
	})

	parsed, err := ParseFallbackResponse(gen.Text)
	if err != nil {
		h.logger.Warn().Err(err).Str("company", input.CompanyName).Msg("malformed fallback response")
		return result
	}

	result.ConfidenceScore = parsed.ConfidenceScore
	if parsed.ConfidenceScore < h.threshold {
		h.logger.Info().
			Str("company", input.CompanyName).
			Float64("confidence", parsed.ConfidenceScore).
			Float64("threshold", h.threshold).
			Msg("fallback answer below confidence threshold, discarded")
		return result
	}

	result.Accepted = true
	result.URLs = validURLs(parsed.URLs)
	result.AmountRaised = ValidateAmount(parsed.AmountRaised)
	result.InvestorContacts = ValidateInvestors(parsed.InvestorContacts, input.CompanyName)

	h.logger.Info().
		Str("company", input.CompanyName).
		Float64("confidence", parsed.ConfidenceScore).
		Int("urls", len(result.URLs)).
		Str("amount", result.AmountRaised).
		Msg("fallback answer accepted")
	return result
}

// ParseFallbackResponse decodes the JSON object in a model answer.
// Code fences and text around the object are ignored.
func ParseFallbackResponse(answer string) (*FallbackResponse, error) {
	answer = cleanJSONResponse(answer)
	start := strings.Index(answer, "{")
	end := strings.LastIndex(answer, "}")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var parsed FallbackResponse
	if err := json.Unmarshal([]byte(answer[start:end+1]), &parsed); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if parsed.ConfidenceScore < 0 || parsed.ConfidenceScore > 1 {
		return nil, fmt.Errorf("confidence_score out of range: %v", parsed.ConfidenceScore)
	}
	return &parsed, nil
}

// validURLs keeps absolute http(s) URLs, de-duplicated, at most MaxPressURLs
func validURLs(urls []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if dto.IsNotAvailable(u) || seen[u] {
			continue
		}
		parsed, err := url.Parse(u)
		if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			continue
		}
		seen[u] = true
		out = append(out, u)
		if len(out) == dto.MaxPressURLs {
			break
		}
	}
	return out
}

const fallbackSystemPrompt = `You are a venture funding research assistant.
Answer ONLY with a JSON object, no markdown and no explanation, in exactly this shape:
{"urls": ["<press url>", "<press url>", "<press url>"], "investor_contacts": "Full Name (Firm Name), Full Name (Firm Name)", "amount_raised": "<amount with currency>", "confidence_score": <number between 0 and 1>}
Use "N/A" for any value you do not know. Never invent URLs or people. confidence_score is your honest estimate that the whole answer is correct.`

func buildFallbackPrompt(input FallbackInput) string {
	investors := input.KnownInvestors
	if dto.IsNotAvailable(investors) {
		investors = "not provided"
	}
	when := ExtractYear(input.RaiseDate)
	if when == "" {
		when = "unknown"
	}
	return fmt.Sprintf(`Find the funding round announcement for this company.

Company: %s
Known investors: %s
Year of the round: %s

Return up to three press release or news URLs announcing the round, the amount raised, and the individual people from the investing firms named in the announcement.`, input.CompanyName, investors, when)
}
