package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"webstar/fundraise-enrichment-worker/internal/logging"
)

const (
	// DefaultCallTimeout bounds a single provider call
	DefaultCallTimeout = 60 * time.Second
	// DefaultTemperature keeps extraction answers close to the source text
	DefaultTemperature = 0.1
)

var (
	// ErrNoProviders is returned by Generate when the chain is empty
	ErrNoProviders = errors.New("no LLM providers configured")
	// ErrAllProvidersFailed is returned when every provider in the chain failed
	ErrAllProvidersFailed = errors.New("all LLM providers failed")
)

// Generation is a successful response from one provider of the chain
type Generation struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
	Duration     time.Duration
}

// Chain is an ordered list of models tried in sequence until one answers
type Chain struct {
	models      []model.LLM
	callTimeout time.Duration
	logger      zerolog.Logger
}

// NewChain creates a chain over models in the order given. Nil models are ignored.
func NewChain(models ...model.LLM) *Chain {
	var kept []model.LLM
	for _, m := range models {
		if m != nil {
			kept = append(kept, m)
		}
	}
	return &Chain{
		models:      kept,
		callTimeout: DefaultCallTimeout,
		logger:      logging.Component("ProviderChain"),
	}
}

// SetCallTimeout overrides the per-provider timeout
func (c *Chain) SetCallTimeout(d time.Duration) {
	c.callTimeout = d
}

// Len returns the number of providers in the chain
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.models)
}

// Names returns the model names in chain order
func (c *Chain) Names() []string {
	names := []string{}
	if c == nil {
		return names
	}
	for _, m := range c.models {
		names = append(names, m.Name())
	}
	return names
}

// Generate sends the system instruction and prompt to each provider in turn and
// returns the first non-empty answer. A provider error or empty answer moves on
// to the next provider.
func (c *Chain) Generate(ctx context.Context, system, prompt string) (*Generation, error) {
	if c.Len() == 0 {
		return nil, ErrNoProviders
	}

	var errs []error
	for i, m := range c.models {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		gen, err := c.generateOnce(ctx, m, system, prompt)
		if err == nil {
			if i > 0 {
				c.logger.Info().Str("model", m.Name()).Int("position", i+1).Msg("fallback provider answered")
			}
			return gen, nil
		}

		c.logger.Warn().Err(err).Str("model", m.Name()).Msg("provider failed, trying next")
		errs = append(errs, fmt.Errorf("%s: %w", m.Name(), err))
	}

	return nil, fmt.Errorf("%w: %w", ErrAllProvidersFailed, errors.Join(errs...))
}

func (c *Chain) generateOnce(ctx context.Context, m model.LLM, system, prompt string) (gen *Generation, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider panicked: %v", r)
		}
	}()

	if c.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.callTimeout)
		defer cancel()
	}

	temperature := float32(DefaultTemperature)
	req := &model.LLMRequest{
		Contents: []*genai.Content{
			{Role: "user", Parts: []*genai.Part{{Text: prompt}}},
		},
		Config: &genai.GenerateContentConfig{
			Temperature: &temperature,
		},
	}
	if system != "" {
		req.Config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}

	start := time.Now()
	var text strings.Builder
	result := &Generation{Model: m.Name()}

	for resp, respErr := range m.GenerateContent(ctx, req, false) {
		if respErr != nil {
			return nil, respErr
		}
		if resp == nil {
			continue
		}
		if resp.Content != nil {
			for _, part := range resp.Content.Parts {
				if part != nil && part.Text != "" {
					text.WriteString(part.Text)
				}
			}
		}
		if resp.UsageMetadata != nil {
			result.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
			result.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		}
	}

	result.Text = strings.TrimSpace(text.String())
	result.Duration = time.Since(start)
	if result.Text == "" {
		return nil, errors.New("empty response")
	}
	return result, nil
}
