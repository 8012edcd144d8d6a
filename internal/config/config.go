package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Port            string
	SerpAPIKey      string
	FirecrawlAPIKey string
	FirecrawlAPIURL string // Optional: custom Firecrawl API URL (leave empty for default)

	// Supabase configuration
	SupabaseURL string
	SupabaseKey string

	// Webhook configuration
	WebhookSecret string

	// Gemini / Vertex AI configuration
	GoogleAPIKey string
	GeminiModel  string
	UseVertexAI  bool
	GCPProject   string
	GCPLocation  string

	// OpenRouter configuration
	OpenRouterAPIKey string
	OpenRouterModel  string

	// Anthropic configuration
	AnthropicAPIKey string
	AnthropicModel  string

	// LLMProviders is the ordered provider chain, e.g. ["gemini", "openrouter", "anthropic"]
	LLMProviders []string

	// LocalStorePath is the directory of the embedded record store used by the CLI
	LocalStorePath string

	// ValidationMode selects how candidate URLs are validated: "content" or "url"
	ValidationMode string

	LogLevel  string
	LogFormat string

	Pipeline PipelineConfig
}

// PipelineConfig carries the keyword lists, domain lists and tunables of the
// enrichment pipeline. It is passed explicitly to every component that needs it.
type PipelineConfig struct {
	// PressDomains are hosts treated as authoritative for funding announcements
	PressDomains []string
	// WireDomains are the top-tier press-release wire services
	WireDomains []string
	// NewsDomains are major news outlets
	NewsDomains []string
	// BlockedDomains are never fetched
	BlockedDomains []string
	// URLKeywords are funding hints looked for in a URL
	URLKeywords []string
	// ContentKeywords are funding hints looked for in article text
	ContentKeywords []string

	SearchDelay         time.Duration
	FetchAttempts       int
	FetchDelay          time.Duration
	FetchTimeout        time.Duration
	MinContentLength    int
	MaxArticleChars     int
	TargetURLCount      int
	TopUpRetries        int
	TopUpBackoff        time.Duration
	RecordDelay         time.Duration
	ConfidenceThreshold float64
	MinRelevanceScore   int
}

// Default values for the pipeline tunables
const (
	DefaultSearchDelay         = 1500 * time.Millisecond
	DefaultFetchAttempts       = 3
	DefaultFetchDelay          = time.Second
	DefaultFetchTimeout        = 15 * time.Second
	DefaultMinContentLength    = 200
	DefaultMaxArticleChars     = 12000
	DefaultTargetURLCount      = 3
	DefaultTopUpRetries        = 3
	DefaultTopUpBackoff        = 2 * time.Second
	DefaultRecordDelay         = 2 * time.Second
	DefaultConfidenceThreshold = 0.8
	DefaultMinRelevanceScore   = 2
	DefaultLocalStorePath      = "./data/records"
)

// DefaultLLMProviders is the provider order used when LLM_PROVIDERS is unset
var DefaultLLMProviders = []string{"gemini", "openrouter", "anthropic"}

// DefaultPipelineConfig returns the pipeline configuration with the built-in lists
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		PressDomains: []string{
			"businesswire.com",
			"prnewswire.com",
			"globenewswire.com",
			"accesswire.com",
			"newswire.com",
			"techcrunch.com",
			"venturebeat.com",
			"reuters.com",
			"bloomberg.com",
			"forbes.com",
			"fortune.com",
			"axios.com",
			"finsmes.com",
			"sifted.eu",
			"eu-startups.com",
			"crunchbase.com",
		},
		WireDomains: []string{
			"businesswire.com",
			"prnewswire.com",
			"globenewswire.com",
		},
		NewsDomains: []string{
			"techcrunch.com",
			"reuters.com",
			"bloomberg.com",
			"forbes.com",
			"wsj.com",
			"cnbc.com",
			"fortune.com",
			"venturebeat.com",
			"axios.com",
		},
		BlockedDomains: []string{
			"facebook.com",
			"twitter.com",
			"x.com",
			"linkedin.com",
			"instagram.com",
			"youtube.com",
			"tiktok.com",
			"reddit.com",
		},
		URLKeywords: []string{"funding", "investment", "raise", "round", "announcement"},
		ContentKeywords: []string{
			"raised",
			"funding",
			"investment",
			"round",
			"series a",
			"series b",
			"seed",
			"investors",
			"led by",
			"venture",
		},
		SearchDelay:         DefaultSearchDelay,
		FetchAttempts:       DefaultFetchAttempts,
		FetchDelay:          DefaultFetchDelay,
		FetchTimeout:        DefaultFetchTimeout,
		MinContentLength:    DefaultMinContentLength,
		MaxArticleChars:     DefaultMaxArticleChars,
		TargetURLCount:      DefaultTargetURLCount,
		TopUpRetries:        DefaultTopUpRetries,
		TopUpBackoff:        DefaultTopUpBackoff,
		RecordDelay:         DefaultRecordDelay,
		ConfidenceThreshold: DefaultConfidenceThreshold,
		MinRelevanceScore:   DefaultMinRelevanceScore,
	}
}

// Load reads configuration from environment variables.
// A .env file in the working directory is loaded first when present.
func Load() *Config {
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	validationMode := strings.ToLower(os.Getenv("VALIDATION_MODE"))
	if validationMode != "url" {
		validationMode = "content"
	}

	localStorePath := os.Getenv("LOCAL_STORE_PATH")
	if localStorePath == "" {
		localStorePath = DefaultLocalStorePath
	}

	pipeline := DefaultPipelineConfig()
	pipeline.SearchDelay = getEnvDurationMs("SEARCH_DELAY_MS", pipeline.SearchDelay)
	pipeline.FetchAttempts = getEnvInt("FETCH_ATTEMPTS", pipeline.FetchAttempts)
	pipeline.FetchDelay = getEnvDurationMs("FETCH_DELAY_MS", pipeline.FetchDelay)
	pipeline.MinContentLength = getEnvInt("MIN_CONTENT_LENGTH", pipeline.MinContentLength)
	pipeline.RecordDelay = getEnvDurationMs("RECORD_DELAY_MS", pipeline.RecordDelay)
	pipeline.ConfidenceThreshold = getEnvFloat("CONFIDENCE_THRESHOLD", pipeline.ConfidenceThreshold)

	return &Config{
		Port:             port,
		SerpAPIKey:       os.Getenv("SERPAPI_KEY"),
		FirecrawlAPIKey:  os.Getenv("FIRECRAWL_API_KEY"),
		FirecrawlAPIURL:  os.Getenv("FIRECRAWL_API_URL"), // Optional
		SupabaseURL:      os.Getenv("SUPABASE_URL"),
		SupabaseKey:      getEnvWithFallback("SUPABASE_SECRET_KEY", "SUPABASE_KEY"),
		WebhookSecret:    os.Getenv("WEBHOOK_SECRET"),
		GoogleAPIKey:     os.Getenv("GOOGLE_API_KEY"),
		GeminiModel:      os.Getenv("GEMINI_MODEL"),
		UseVertexAI:      strings.EqualFold(os.Getenv("GOOGLE_GENAI_USE_VERTEXAI"), "true"),
		GCPProject:       os.Getenv("GOOGLE_CLOUD_PROJECT"),
		GCPLocation:      os.Getenv("GOOGLE_CLOUD_LOCATION"),
		OpenRouterAPIKey: os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterModel:  os.Getenv("OPENROUTER_MODEL"),
		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:   os.Getenv("ANTHROPIC_MODEL"),
		LLMProviders:     getEnvList("LLM_PROVIDERS", DefaultLLMProviders),
		LocalStorePath:   localStorePath,
		ValidationMode:   validationMode,
		LogLevel:         os.Getenv("LOG_LEVEL"),
		LogFormat:        os.Getenv("LOG_FORMAT"),
		Pipeline:         pipeline,
	}
}

// getEnvWithFallback returns the value of primary, or fallback if primary is empty
func getEnvWithFallback(primary, fallback string) string {
	if v := os.Getenv(primary); v != "" {
		return v
	}
	return os.Getenv(fallback)
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return def
	}
	return f
}

// getEnvDurationMs reads a millisecond count. Zero is allowed to disable a delay.
func getEnvDurationMs(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return time.Duration(n) * time.Millisecond
}

func getEnvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return append([]string(nil), def...)
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), def...)
	}
	return out
}
