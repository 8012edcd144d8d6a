package services

import (
	"context"

	"webstar/fundraise-enrichment-worker/internal/config"
	"webstar/fundraise-enrichment-worker/internal/handlers"
	"webstar/fundraise-enrichment-worker/internal/logging"
	"webstar/fundraise-enrichment-worker/internal/model/provider"
)

// Pipeline holds the enrichment components built from configuration
type Pipeline struct {
	// Search is nil when SERPAPI_KEY is not set
	Search    *handlers.GoogleSearchHandler
	Chain     *provider.Chain
	Processor *EnrichmentProcessor
	Batch     *BatchProcessor
}

// NewPipeline wires search, fetching, validation, extraction and fallback
// around store. Optional dependencies that are not configured are left out
// with a log line; the pipeline still runs and yields N/A fields.
// usage may be nil.
func NewPipeline(ctx context.Context, cfg *config.Config, store RecordStore, usage *handlers.UsageTrackerHandler) *Pipeline {
	logger := logging.Component("Pipeline")
	p := &Pipeline{}

	var search SearchStrategy
	if cfg.SerpAPIKey != "" {
		p.Search = handlers.NewGoogleSearchHandler(cfg.SerpAPIKey, cfg.Pipeline)
		search = p.Search
	} else {
		logger.Warn().Msg("SERPAPI_KEY not set - press search disabled")
	}

	fetcher := handlers.NewContentFetcher(cfg.Pipeline)
	if usage != nil {
		fetcher.SetUsageTracker(usage)
	}
	if cfg.FirecrawlAPIKey != "" {
		firecrawlHandler, err := handlers.NewFirecrawlHandler(cfg.FirecrawlAPIKey, cfg.FirecrawlAPIURL)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to initialize Firecrawl - continuing without scrape fallback")
		} else {
			fetcher.SetScraper(firecrawlHandler)
			logger.Info().Msg("Firecrawl scrape fallback enabled")
		}
	} else {
		logger.Info().Msg("FIRECRAWL_API_KEY not set - scrape fallback disabled")
	}

	validation := NewValidationStrategy(cfg.ValidationMode, handlers.NewRelevanceFilter(cfg.Pipeline))

	p.Chain = provider.NewChainFromConfig(ctx, cfg)

	var extractor ExtractionStrategy
	var fallback FallbackStrategy
	if p.Chain.Len() > 0 {
		dataExtractor := handlers.NewDataExtractorHandler(p.Chain, cfg.Pipeline)
		fallbackLookup := handlers.NewFallbackLookupHandler(p.Chain, cfg.Pipeline)
		if usage != nil {
			dataExtractor.SetUsageTracker(usage)
			fallbackLookup.SetUsageTracker(usage)
		}
		extractor = dataExtractor
		fallback = fallbackLookup
	} else {
		logger.Warn().Msg("no LLM provider configured - extraction and fallback disabled")
	}

	p.Processor = NewEnrichmentProcessor(store, search, fetcher, validation, extractor, fallback, cfg.Pipeline)
	p.Batch = NewBatchProcessor(store, p.Processor, cfg.Pipeline)
	return p
}
