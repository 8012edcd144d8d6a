// Package anthropic provides an Anthropic Claude model implementation for Google ADK.
package anthropic

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

const (
	// DefaultModel is used when no model name is configured
	DefaultModel = "claude-3-5-haiku-latest"
	// DefaultMaxTokens bounds the length of every response
	DefaultMaxTokens = 1024
	// DefaultTimeout for API requests
	DefaultTimeout = 60 * time.Second
)

// Config holds configuration for the Anthropic model
type Config struct {
	// APIKey is the Anthropic API key (required)
	APIKey string
	// BaseURL overrides the API endpoint (optional)
	BaseURL string
	// HTTPClient allows custom HTTP client (optional)
	HTTPClient *http.Client
	// MaxTokens bounds the response length (defaults to 1024)
	MaxTokens int64
	// MaxRetries is passed to the SDK client (defaults to the SDK default)
	MaxRetries *int
}

// Model implements the ADK model.LLM interface for Anthropic Messages API
type Model struct {
	name      string
	client    anthropic.Client
	maxTokens int64
}

// NewModel creates a new Anthropic model instance
func NewModel(ctx context.Context, modelName string, config *Config) (*Model, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("APIKey is required")
	}
	if modelName == "" {
		modelName = DefaultModel
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	opts = append(opts, option.WithHTTPClient(httpClient))
	if config.MaxRetries != nil {
		opts = append(opts, option.WithMaxRetries(*config.MaxRetries))
	}

	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	return &Model{
		name:      modelName,
		client:    anthropic.NewClient(opts...),
		maxTokens: maxTokens,
	}, nil
}

// Name returns the model name
func (m *Model) Name() string {
	return m.name
}

// GenerateContent implements the model.LLM interface.
// Streaming is not supported; a single complete response is yielded either way.
func (m *Model) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		params, err := m.convertRequest(req)
		if err != nil {
			yield(nil, fmt.Errorf("failed to convert request: %w", err))
			return
		}

		resp, err := m.client.Messages.New(ctx, params)
		if err != nil {
			yield(nil, fmt.Errorf("Anthropic API error: %w", err))
			return
		}

		yield(convertResponse(resp), nil)
	}
}

// convertRequest converts ADK LLMRequest to Anthropic message parameters
func (m *Model) convertRequest(req *model.LLMRequest) (anthropic.MessageNewParams, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(m.name),
		MaxTokens: m.maxTokens,
	}
	if req == nil {
		return params, fmt.Errorf("request is required")
	}

	for _, content := range req.Contents {
		if content == nil {
			continue
		}
		text := joinText(content)
		if text == "" {
			continue
		}
		block := anthropic.NewTextBlock(text)
		if content.Role == "model" {
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(block))
		} else {
			params.Messages = append(params.Messages, anthropic.NewUserMessage(block))
		}
	}
	if len(params.Messages) == 0 {
		return params, fmt.Errorf("request has no text content")
	}

	if req.Config != nil {
		if req.Config.SystemInstruction != nil {
			if system := joinText(req.Config.SystemInstruction); system != "" {
				params.System = []anthropic.TextBlockParam{{Text: system}}
			}
		}
		if req.Config.Temperature != nil {
			params.Temperature = anthropic.Float(float64(*req.Config.Temperature))
		}
		if req.Config.MaxOutputTokens > 0 {
			params.MaxTokens = int64(req.Config.MaxOutputTokens)
		}
	}

	return params, nil
}

func convertResponse(resp *anthropic.Message) *model.LLMResponse {
	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	llmResp := &model.LLMResponse{
		Content: &genai.Content{
			Role:  "model",
			Parts: []*genai.Part{{Text: text.String()}},
		},
		TurnComplete: true,
		FinishReason: convertStopReason(string(resp.StopReason)),
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     int32(resp.Usage.InputTokens),
			CandidatesTokenCount: int32(resp.Usage.OutputTokens),
			TotalTokenCount:      int32(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}
	return llmResp
}

func convertStopReason(reason string) genai.FinishReason {
	switch reason {
	case "end_turn", "stop_sequence", "tool_use":
		return genai.FinishReasonStop
	case "max_tokens":
		return genai.FinishReasonMaxTokens
	case "refusal":
		return genai.FinishReasonSafety
	default:
		return genai.FinishReasonUnspecified
	}
}

func joinText(content *genai.Content) string {
	var parts []string
	for _, part := range content.Parts {
		if part != nil && part.Text != "" {
			parts = append(parts, part.Text)
		}
	}
	return strings.Join(parts, "\n")
}
