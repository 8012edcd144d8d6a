package dto

// OperationType represents the kind of model or scraping operation performed for a record
type OperationType string

const (
	OperationAmountExtraction   OperationType = "amount_extraction"
	OperationInvestorExtraction OperationType = "investor_extraction"
	OperationFallbackLookup     OperationType = "fallback_lookup"
	OperationPressScraping      OperationType = "press_scraping"
)

// UsageMetricInput is the input for creating a new usage metric
type UsageMetricInput struct {
	RecordID        *string       `json:"record_id,omitempty"`
	OperationType   OperationType `json:"operation_type"`
	Provider        string        `json:"provider"`
	Model           string        `json:"model"`
	InputTokens     int           `json:"input_tokens"`
	OutputTokens    int           `json:"output_tokens"`
	TotalTokens     int           `json:"total_tokens"`
	EstimatedCostUS float64       `json:"estimated_cost_usd"`
	DurationMs      int64         `json:"duration_ms"`
	Success         bool          `json:"success"`
	ErrorMessage    *string       `json:"error_message,omitempty"`
}

// TokenPricing contains pricing information for token estimation
type TokenPricing struct {
	Model              string
	InputPricePerMTok  float64 // Price per million input tokens
	OutputPricePerMTok float64 // Price per million output tokens
}

// DefaultTokenPricing returns pricing for the models the provider chain defaults to
func DefaultTokenPricing() map[string]TokenPricing {
	return map[string]TokenPricing{
		"gemini-2.5-flash": {
			Model:              "gemini-2.5-flash",
			InputPricePerMTok:  0.075,
			OutputPricePerMTok: 0.30,
		},
		"gemini-2.5-pro": {
			Model:              "gemini-2.5-pro",
			InputPricePerMTok:  1.25,
			OutputPricePerMTok: 10.00,
		},
		"google/gemini-2.5-flash": {
			Model:              "google/gemini-2.5-flash",
			InputPricePerMTok:  0.30,
			OutputPricePerMTok: 2.50,
		},
		"claude-3-5-haiku-latest": {
			Model:              "claude-3-5-haiku-latest",
			InputPricePerMTok:  0.80,
			OutputPricePerMTok: 4.00,
		},
		"claude-sonnet-4-20250514": {
			Model:              "claude-sonnet-4-20250514",
			InputPricePerMTok:  3.00,
			OutputPricePerMTok: 15.00,
		},
	}
}
