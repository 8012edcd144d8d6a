// Package provider provides a unified interface for creating LLM models
// supporting Google Gemini, OpenRouter and Anthropic backends, and an ordered
// fallback chain over them.
package provider

import (
	"context"
	"fmt"
	"os"
	"strings"

	"google.golang.org/adk/model"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/genai"

	"webstar/fundraise-enrichment-worker/internal/config"
	"webstar/fundraise-enrichment-worker/internal/logging"
	"webstar/fundraise-enrichment-worker/internal/model/anthropic"
	"webstar/fundraise-enrichment-worker/internal/model/openrouter"
)

// Backend represents the LLM backend to use
type Backend string

const (
	// BackendGemini uses Google AI Studio (Gemini API)
	BackendGemini Backend = "gemini"
	// BackendVertexAI uses Google Cloud Vertex AI
	BackendVertexAI Backend = "vertexai"
	// BackendOpenRouter uses OpenRouter API
	BackendOpenRouter Backend = "openrouter"
	// BackendAnthropic uses the Anthropic Messages API
	BackendAnthropic Backend = "anthropic"
)

// Config holds configuration for creating an LLM model
type Config struct {
	// Backend specifies which LLM backend to use
	Backend Backend

	// Model name (required)
	// For Gemini: "gemini-2.5-flash", "gemini-2.5-pro", etc.
	// For OpenRouter: "anthropic/claude-3.5-sonnet", "openai/gpt-4o", etc.
	Model string

	// Google AI Studio configuration
	GoogleAPIKey string

	// Vertex AI configuration
	GCPProject  string
	GCPLocation string

	// OpenRouter configuration
	OpenRouterAPIKey   string
	OpenRouterBaseURL  string
	OpenRouterSiteURL  string // For OpenRouter rankings (HTTP-Referer)
	OpenRouterSiteName string // For OpenRouter rankings (X-Title)

	// Anthropic configuration
	AnthropicAPIKey string
}

// NewModel creates a new LLM model based on the configuration
func NewModel(ctx context.Context, cfg Config) (model.LLM, error) {
	switch cfg.Backend {
	case BackendGemini:
		return newGeminiModel(ctx, cfg)
	case BackendVertexAI:
		return newVertexAIModel(ctx, cfg)
	case BackendOpenRouter:
		return newOpenRouterModel(ctx, cfg)
	case BackendAnthropic:
		return newAnthropicModel(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported backend: %s", cfg.Backend)
	}
}

// newGeminiModel creates a Gemini model using Google AI Studio
func newGeminiModel(ctx context.Context, cfg Config) (model.LLM, error) {
	apiKey := cfg.GoogleAPIKey
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("Google API key is required for Gemini backend")
	}

	logger := logging.Component("Provider")
	logger.Info().Str("model", cfg.Model).Str("backend", "Google AI Studio").Msg("creating Gemini model")

	clientConfig := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	return gemini.NewModel(ctx, cfg.Model, clientConfig)
}

// newVertexAIModel creates a Gemini model using Vertex AI
func newVertexAIModel(ctx context.Context, cfg Config) (model.LLM, error) {
	project := cfg.GCPProject
	if project == "" {
		project = os.Getenv("GOOGLE_CLOUD_PROJECT")
	}
	if project == "" {
		return nil, fmt.Errorf("GCP Project is required for Vertex AI backend")
	}

	location := cfg.GCPLocation
	if location == "" {
		location = os.Getenv("GOOGLE_CLOUD_LOCATION")
	}
	if location == "" {
		return nil, fmt.Errorf("GCP Location is required for Vertex AI backend")
	}

	logger := logging.Component("Provider")
	logger.Info().Str("model", cfg.Model).Str("backend", "Vertex AI").
		Str("project", project).Str("location", location).Msg("creating Gemini model")

	clientConfig := &genai.ClientConfig{
		Project:  project,
		Location: location,
		Backend:  genai.BackendVertexAI,
	}

	return gemini.NewModel(ctx, cfg.Model, clientConfig)
}

// newOpenRouterModel creates an OpenRouter model
func newOpenRouterModel(ctx context.Context, cfg Config) (model.LLM, error) {
	apiKey := cfg.OpenRouterAPIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENROUTER_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenRouter API key is required for OpenRouter backend")
	}

	logger := logging.Component("Provider")
	logger.Info().Str("model", cfg.Model).Msg("creating OpenRouter model")

	orConfig := &openrouter.Config{
		APIKey:   apiKey,
		BaseURL:  cfg.OpenRouterBaseURL,
		SiteURL:  cfg.OpenRouterSiteURL,
		SiteName: cfg.OpenRouterSiteName,
	}

	return openrouter.NewModel(ctx, cfg.Model, orConfig)
}

// newAnthropicModel creates an Anthropic Claude model
func newAnthropicModel(ctx context.Context, cfg Config) (model.LLM, error) {
	apiKey := cfg.AnthropicAPIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required for Anthropic backend")
	}

	logger := logging.Component("Provider")
	logger.Info().Str("model", cfg.Model).Msg("creating Anthropic model")

	return anthropic.NewModel(ctx, cfg.Model, &anthropic.Config{APIKey: apiKey})
}

// DetectBackend maps a provider name from LLM_PROVIDERS to a backend.
// "gemini" resolves to Vertex AI when useVertexAI is set.
func DetectBackend(name string, useVertexAI bool) (Backend, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "gemini", "google":
		if useVertexAI {
			return BackendVertexAI, true
		}
		return BackendGemini, true
	case "vertexai", "vertex":
		return BackendVertexAI, true
	case "openrouter":
		return BackendOpenRouter, true
	case "anthropic", "claude":
		return BackendAnthropic, true
	default:
		return "", false
	}
}

// DefaultModel returns the default model for each backend
func DefaultModel(backend Backend) string {
	switch backend {
	case BackendOpenRouter:
		return "google/gemini-2.5-flash" // Fast and cost-effective
	case BackendAnthropic:
		return anthropic.DefaultModel
	case BackendVertexAI, BackendGemini:
		return "gemini-2.5-flash"
	default:
		return "gemini-2.5-flash"
	}
}

// ConfigFor builds the model configuration for backend from the application config.
// It returns false when the backend's credentials are not configured.
func ConfigFor(backend Backend, cfg *config.Config) (Config, bool) {
	pc := Config{Backend: backend}
	switch backend {
	case BackendGemini:
		pc.GoogleAPIKey = cfg.GoogleAPIKey
		pc.Model = cfg.GeminiModel
		if pc.GoogleAPIKey == "" {
			return pc, false
		}
	case BackendVertexAI:
		pc.GCPProject = cfg.GCPProject
		pc.GCPLocation = cfg.GCPLocation
		pc.Model = cfg.GeminiModel
		if pc.GCPProject == "" || pc.GCPLocation == "" {
			return pc, false
		}
	case BackendOpenRouter:
		pc.OpenRouterAPIKey = cfg.OpenRouterAPIKey
		pc.Model = cfg.OpenRouterModel
		pc.OpenRouterSiteName = "Fundraise Enrichment Worker"
		if pc.OpenRouterAPIKey == "" {
			return pc, false
		}
	case BackendAnthropic:
		pc.AnthropicAPIKey = cfg.AnthropicAPIKey
		pc.Model = cfg.AnthropicModel
		if pc.AnthropicAPIKey == "" {
			return pc, false
		}
	default:
		return pc, false
	}
	if pc.Model == "" {
		pc.Model = DefaultModel(backend)
	}
	return pc, true
}

// NewChainFromConfig builds the provider chain in the order given by
// cfg.LLMProviders. Providers without credentials, or whose construction
// fails, are skipped with a log line. The result may be empty.
func NewChainFromConfig(ctx context.Context, cfg *config.Config) *Chain {
	logger := logging.Component("Provider")
	var models []model.LLM
	seen := make(map[Backend]bool)

	for _, name := range cfg.LLMProviders {
		backend, ok := DetectBackend(name, cfg.UseVertexAI)
		if !ok {
			logger.Warn().Str("provider", name).Msg("unknown provider - skipped")
			continue
		}
		if seen[backend] {
			continue
		}
		seen[backend] = true

		pc, ok := ConfigFor(backend, cfg)
		if !ok {
			logger.Info().Str("provider", string(backend)).Msg("credentials not set - provider disabled")
			continue
		}
		m, err := NewModel(ctx, pc)
		if err != nil {
			logger.Warn().Err(err).Str("provider", string(backend)).Msg("failed to create model - provider disabled")
			continue
		}
		models = append(models, m)
	}

	chain := NewChain(models...)
	logger.Info().Strs("providers", chain.Names()).Msg("provider chain ready")
	return chain
}
