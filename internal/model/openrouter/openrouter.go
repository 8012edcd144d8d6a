// Package openrouter implements model.LLM over the OpenRouter chat completions API.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"iter"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"webstar/fundraise-enrichment-worker/internal/logging"
)

const (
	// DefaultBaseURL is the OpenRouter API endpoint
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	// DefaultTimeout for API requests
	DefaultTimeout = 120 * time.Second

	// maxErrorBody bounds how much of an error response is kept in the error message
	maxErrorBody = 512
)

// ErrRateLimited is returned when OpenRouter answers 429
var ErrRateLimited = eris.New("openrouter rate limited")

// Config holds configuration for the OpenRouter model
type Config struct {
	// APIKey is the OpenRouter API key (required)
	APIKey string
	// BaseURL is the API base URL (defaults to OpenRouter)
	BaseURL string
	// HTTPClient allows custom HTTP client (optional)
	HTTPClient *http.Client
	// Timeout for requests (defaults to 120s)
	Timeout time.Duration
	// SiteName is sent as X-Title header for OpenRouter rankings (optional)
	SiteName string
	// SiteURL is sent as HTTP-Referer for OpenRouter rankings (optional)
	SiteURL string
	// RateLimiter bounds concurrent requests (defaults to the shared limiter)
	RateLimiter *RateLimiter
}

// Model answers extraction prompts through OpenRouter.
// Responses are never streamed.
type Model struct {
	name       string
	apiKey     string
	baseURL    string
	siteName   string
	siteURL    string
	httpClient *http.Client
	limiter    *RateLimiter
	logger     zerolog.Logger
}

var _ model.LLM = (*Model)(nil)

// NewModel creates a new OpenRouter model instance
func NewModel(ctx context.Context, modelName string, config *Config) (*Model, error) {
	if config == nil {
		return nil, eris.New("config is required")
	}
	if config.APIKey == "" {
		return nil, eris.New("APIKey is required")
	}
	if modelName == "" {
		return nil, eris.New("modelName is required")
	}

	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limiter := config.RateLimiter
	if limiter == nil {
		limiter = SharedRateLimiter()
	}

	return &Model{
		name:       modelName,
		apiKey:     config.APIKey,
		baseURL:    baseURL,
		siteName:   config.SiteName,
		siteURL:    config.SiteURL,
		httpClient: httpClient,
		limiter:    limiter,
		logger:     logging.Component("OpenRouter").With().Str("model", modelName).Logger(),
	}, nil
}

// Name returns the model name
func (m *Model) Name() string {
	return m.name
}

// GenerateContent yields exactly one complete response or one error.
// The stream flag is accepted for interface compatibility and ignored.
func (m *Model) GenerateContent(ctx context.Context, req *model.LLMRequest, _ bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		resp, err := m.complete(ctx, buildChatRequest(m.name, req))
		yield(resp, err)
	}
}

func (m *Model) complete(ctx context.Context, req *chatRequest) (*model.LLMResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "failed to marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "failed to create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)
	if m.siteName != "" {
		httpReq.Header.Set("X-Title", m.siteName)
	}
	if m.siteURL != "" {
		httpReq.Header.Set("HTTP-Referer", m.siteURL)
	}

	release, err := m.limiter.Acquire(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "rate limiter")
	}
	defer release()

	startTime := time.Now()
	httpResp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "request failed")
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBody))
		m.logger.Warn().Int("status", httpResp.StatusCode).Msg("completion rejected")
		if httpResp.StatusCode == http.StatusTooManyRequests {
			return nil, eris.Wrapf(ErrRateLimited, "status 429: %s", snippet)
		}
		return nil, eris.Errorf("API error (status %d): %s", httpResp.StatusCode, snippet)
	}

	var resp chatResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, eris.Wrap(err, "failed to decode response")
	}
	if resp.Error != nil {
		return nil, eris.Errorf("OpenRouter API error: %s (code: %v)", resp.Error.Message, resp.Error.Code)
	}
	if len(resp.Choices) == 0 {
		return nil, eris.New("OpenRouter returned no choices")
	}

	m.logger.Debug().Dur("duration", time.Since(startTime)).Msg("completion received")
	return toLLMResponse(&resp), nil
}

// buildChatRequest flattens the request's system instruction and text parts into chat messages
func buildChatRequest(modelName string, req *model.LLMRequest) *chatRequest {
	out := &chatRequest{Model: modelName}
	if req == nil {
		return out
	}

	if req.Config != nil && req.Config.SystemInstruction != nil {
		if text := joinText(req.Config.SystemInstruction); text != "" {
			out.Messages = append(out.Messages, chatMessage{Role: "system", Content: text})
		}
	}
	for _, content := range req.Contents {
		if text := joinText(content); text != "" {
			out.Messages = append(out.Messages, chatMessage{Role: chatRole(content.Role), Content: text})
		}
	}

	if cfg := req.Config; cfg != nil {
		out.Temperature = cfg.Temperature
		out.TopP = cfg.TopP
		if cfg.MaxOutputTokens > 0 {
			maxTokens := cfg.MaxOutputTokens
			out.MaxTokens = &maxTokens
		}
		out.Stop = cfg.StopSequences
	}
	return out
}

func toLLMResponse(resp *chatResponse) *model.LLMResponse {
	choice := resp.Choices[0]
	llmResp := &model.LLMResponse{
		Content: &genai.Content{
			Role:  genai.RoleModel,
			Parts: []*genai.Part{{Text: choice.Message.Content}},
		},
		FinishReason: finishReason(choice.FinishReason),
		TurnComplete: true,
	}
	if resp.Usage != nil {
		llmResp.UsageMetadata = &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     resp.Usage.PromptTokens,
			CandidatesTokenCount: resp.Usage.CompletionTokens,
			TotalTokenCount:      resp.Usage.TotalTokens,
		}
	}
	return llmResp
}

func joinText(content *genai.Content) string {
	if content == nil {
		return ""
	}
	var parts []string
	for _, part := range content.Parts {
		if part != nil && part.Text != "" {
			parts = append(parts, part.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func chatRole(role string) string {
	if role == genai.RoleModel {
		return "assistant"
	}
	if role == "" {
		return genai.RoleUser
	}
	return role
}

func finishReason(reason string) genai.FinishReason {
	switch reason {
	case "stop":
		return genai.FinishReasonStop
	case "length":
		return genai.FinishReasonMaxTokens
	case "content_filter":
		return genai.FinishReasonSafety
	default:
		return genai.FinishReasonUnspecified
	}
}
