package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"webstar/fundraise-enrichment-worker/internal/config"
	"webstar/fundraise-enrichment-worker/internal/dto"
	"webstar/fundraise-enrichment-worker/internal/logging"
	"webstar/fundraise-enrichment-worker/internal/model/provider"
)

// TextGenerator sends a system instruction and prompt to a language model.
// provider.Chain satisfies it.
type TextGenerator interface {
	Generate(ctx context.Context, system, prompt string) (*provider.Generation, error)
	Len() int
}

// negativePhrases mark a model answer that carries no value wherever they appear
var negativePhrases = []string{
	"n/a",
	"no amount",
	"not mentioned",
	"not specified",
	"no investors",
	"none found",
}

// negativeAnswers carry no value only when they are the whole answer;
// "$10 million (valuation undisclosed)" is still an amount
var negativeAnswers = []string{
	"undisclosed",
	"not disclosed",
	"unknown",
}

const (
	// MinAmountLength is the shortest accepted amount answer
	MinAmountLength = 2
	// MinInvestorsLength is the shortest accepted investors answer
	MinInvestorsLength = 5
)

// ExtractionInput is the article text and context for one extraction
type ExtractionInput struct {
	CompanyName    string
	KnownInvestors string
	Text           string
}

// ExtractionResult holds the extracted fields, N/A when not found
// @Description Funding amount and investor contacts extracted from press articles
type ExtractionResult struct {
	// Amount is the funding figure with its currency marker
	Amount string `json:"amount"`
	// Investors is "Full Name (Firm Name)" entries, comma-separated
	Investors string `json:"investors"`
}

// Empty reports whether both fields are N/A
func (r ExtractionResult) Empty() bool {
	return dto.IsNotAvailable(r.Amount) && dto.IsNotAvailable(r.Investors)
}

// DataExtractorHandler extracts the funding amount and investor contacts from article text
type DataExtractorHandler struct {
	generator TextGenerator
	usage     *UsageTrackerHandler
	maxChars  int
	logger    zerolog.Logger
}

// NewDataExtractorHandler creates a new DataExtractorHandler. A nil or empty
// generator makes every extraction return N/A without network calls.
func NewDataExtractorHandler(generator TextGenerator, pipeline config.PipelineConfig) *DataExtractorHandler {
	maxChars := pipeline.MaxArticleChars
	if maxChars <= 0 {
		maxChars = config.DefaultMaxArticleChars
	}
	return &DataExtractorHandler{
		generator: generator,
		maxChars:  maxChars,
		logger:    logging.Component("DataExtractor"),
	}
}

// SetUsageTracker sets the usage tracker for recording model calls
func (h *DataExtractorHandler) SetUsageTracker(usage *UsageTrackerHandler) {
	h.usage = usage
}

// Configured reports whether at least one provider is available
func (h *DataExtractorHandler) Configured() bool {
	return h.generator != nil && h.generator.Len() > 0
}

// Extract runs the amount and investor extractions concurrently
func (h *DataExtractorHandler) Extract(ctx context.Context, input ExtractionInput) ExtractionResult {
	result := ExtractionResult{Amount: dto.NotAvailable, Investors: dto.NotAvailable}
	if !h.Configured() {
		h.logger.Info().Str("company", input.CompanyName).Msg("no LLM providers configured, skipping extraction")
		return result
	}
	if strings.TrimSpace(input.Text) == "" {
		return result
	}

	input.Text = TruncateText(input.Text, h.maxChars)

	// Both sub-extractions swallow their own errors, the group only joins them
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		result.Amount = h.ExtractAmount(gctx, input)
		return nil
	})
	g.Go(func() error {
		result.Investors = h.ExtractInvestors(gctx, input)
		return nil
	})
	_ = g.Wait()

	h.logger.Info().
		Str("company", input.CompanyName).
		Str("amount", result.Amount).
		Str("investors", result.Investors).
		Msg("extraction complete")
	return result
}

// ExtractAmount asks the model for the funding amount
func (h *DataExtractorHandler) ExtractAmount(ctx context.Context, input ExtractionInput) string {
	if !h.Configured() {
		return dto.NotAvailable
	}
	prompt := buildAmountPrompt(input.CompanyName, TruncateText(input.Text, h.maxChars))
	answer := h.generate(ctx, dto.OperationAmountExtraction, amountSystemPrompt, prompt)
	return ValidateAmount(answer)
}

// ExtractInvestors asks the model for the individual investor representatives
func (h *DataExtractorHandler) ExtractInvestors(ctx context.Context, input ExtractionInput) string {
	if !h.Configured() {
		return dto.NotAvailable
	}
	prompt := buildInvestorsPrompt(input.CompanyName, input.KnownInvestors, TruncateText(input.Text, h.maxChars))
	answer := h.generate(ctx, dto.OperationInvestorExtraction, investorsSystemPrompt, prompt)
	return ValidateInvestors(answer, input.CompanyName)
}

// generate calls the provider chain and records usage. Failures yield "".
func (h *DataExtractorHandler) generate(ctx context.Context, op dto.OperationType, system, prompt string) string {
	start := time.Now()
	gen, err := h.generator.Generate(ctx, system, prompt)
	if err != nil {
		h.logger.Warn().Err(err).Str("operation", string(op)).Msg("all providers failed")
		_ = h.usage.TrackOperation(TrackOperationInput{
			RecordID:      RecordIDFromContext(ctx),
			OperationType: op,
			InputText:     system + prompt,
			StartTime:     start,
			Success:       false,
			ErrorMessage:  err.Error(),
		})
		return ""
	}

	_ = h.usage.TrackOperation(TrackOperationInput{
		RecordID:      RecordIDFromContext(ctx),
		OperationType: op,
		Model:         gen.Model,
		InputText:     system + prompt,
		OutputText:    gen.Text,
		InputTokens:   gen.InputTokens,
		OutputTokens:  gen.OutputTokens,
		StartTime:     start,
		Success:       true,
	})
	return gen.Text
}

// ValidateAmount accepts a model answer verbatim (trimmed, quotes stripped)
// unless it is too short or a negative phrase
func ValidateAmount(answer string) string {
	answer = cleanAnswer(answer)
	if utf8.RuneCountInString(answer) < MinAmountLength || hasNegativePhrase(answer) {
		return dto.NotAvailable
	}
	return answer
}

// ValidateInvestors accepts a model answer only when it carries at least one
// "Name (Firm)" entry. The answer is normalized into the display convention
// and entries whose firm is the subject company are dropped.
func ValidateInvestors(answer, companyName string) string {
	answer = cleanAnswer(answer)
	if utf8.RuneCountInString(answer) < MinInvestorsLength || hasNegativePhrase(answer) {
		return dto.NotAvailable
	}
	open := strings.Index(answer, "(")
	if open == -1 || !strings.Contains(answer[open:], ")") {
		return dto.NotAvailable
	}

	company := NormalizeCompanyName(companyName)
	var kept []dto.InvestorContact
	for _, c := range dto.ParseInvestorContacts(answer) {
		if company != "" && NormalizeCompanyName(c.Firm) == company {
			continue
		}
		kept = append(kept, c)
	}
	return dto.FormatInvestorContacts(kept)
}

// TruncateText limits text to maxChars runes
func TruncateText(text string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxChars])
}

func hasNegativePhrase(answer string) bool {
	lower := strings.ToLower(answer)
	for _, phrase := range negativePhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	whole := strings.TrimRight(strings.TrimSpace(lower), ".!")
	for _, phrase := range negativeAnswers {
		if whole == phrase {
			return true
		}
	}
	return dto.IsNotAvailable(answer)
}

// cleanAnswer strips code fences, surrounding quotes and whitespace
func cleanAnswer(answer string) string {
	answer = cleanJSONResponse(answer)
	answer = strings.Trim(answer, "\"'`")
	return strings.TrimSpace(answer)
}

// cleanJSONResponse removes markdown code fences around a model answer
func cleanJSONResponse(response string) string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	return strings.TrimSpace(response)
}

const amountSystemPrompt = `You extract funding amounts from press releases.
Answer with ONLY the amount raised in the funding round, including its currency symbol or code and magnitude, exactly as stated (for example "$25 million" or "EUR 4.5M").
If the article does not state the amount, answer with exactly N/A. Do not explain.`

const investorsSystemPrompt = `You extract investor representatives from press releases.
List ONLY individual people who invested or represent an investing firm, in the exact format "Full Name (Firm Name)", separated by commas.
Do NOT include founders, executives or employees of the company that raised the money. Do NOT list firms without a named person.
If no individual investor is named, answer with exactly N/A. Do not explain.`

func buildAmountPrompt(company, text string) string {
	return fmt.Sprintf(`Company: %s

---
ARTICLES:
%s
---

How much money did %s raise in this funding round?`, company, text, company)
}

func buildInvestorsPrompt(company, knownInvestors, text string) string {
	known := knownInvestors
	if dto.IsNotAvailable(known) {
		known = "not provided"
	}
	return fmt.Sprintf(`Company: %s
Known investing firms: %s

---
ARTICLES:
%s
---

Which individual people from the investing firms are named in connection with %s's funding round?`, company, known, text, company)
}
