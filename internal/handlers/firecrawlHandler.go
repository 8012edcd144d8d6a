package handlers

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/mendableai/firecrawl-go/v2"
	"github.com/rs/zerolog"

	"webstar/fundraise-enrichment-worker/internal/logging"
)

const (
	// DefaultScrapeTimeout is the timeout for scraping a single URL
	DefaultScrapeTimeout = 30 * time.Second
)

// ScrapedPage represents the scraped content from a single URL
type ScrapedPage struct {
	// URL that was scraped
	URL string `json:"url"`
	// HTML of the page as rendered by Firecrawl
	HTML string `json:"html,omitempty"`
	// Error message if scraping failed
	Error string `json:"error,omitempty"`
	// Success indicates whether the scrape was successful
	Success bool `json:"success"`
}

type scrapeFunc func(targetURL string) (*firecrawl.FirecrawlDocument, error)

// FirecrawlHandler scrapes pages through the Firecrawl API. It is the
// fallback used by ContentFetcher when direct downloads are blocked.
type FirecrawlHandler struct {
	scrape  scrapeFunc
	timeout time.Duration
	logger  zerolog.Logger
}

// NewFirecrawlHandler creates a new FirecrawlHandler instance
// apiKey is required, apiURL can be empty to use the default Firecrawl API
func NewFirecrawlHandler(apiKey string, apiURL string) (*FirecrawlHandler, error) {
	logger := logging.Component("FirecrawlHandler")
	app, err := firecrawl.NewFirecrawlApp(apiKey, apiURL)
	if err != nil {
		logger.Error().Err(err).Msg("failed to create FirecrawlApp")
		return nil, err
	}

	logger.Info().Str("api_url", apiURL).Msg("firecrawl client ready")
	return &FirecrawlHandler{
		scrape: func(targetURL string) (*firecrawl.FirecrawlDocument, error) {
			return app.ScrapeURL(targetURL, &firecrawl.ScrapeParams{Formats: []string{"html"}})
		},
		timeout: DefaultScrapeTimeout,
		logger:  logger,
	}, nil
}

// SetTimeout allows customizing the scrape timeout
func (h *FirecrawlHandler) SetTimeout(timeout time.Duration) {
	h.timeout = timeout
}

// ScrapeURL scrapes a single URL and returns its rendered HTML.
// Failures are reported in the returned page; the error is only set when ctx is done.
func (h *FirecrawlHandler) ScrapeURL(ctx context.Context, targetURL string) (*ScrapedPage, error) {
	result := &ScrapedPage{
		URL:     targetURL,
		Success: false,
	}

	parsedURL, err := url.Parse(targetURL)
	if err != nil || parsedURL.Host == "" || (parsedURL.Scheme != "http" && parsedURL.Scheme != "https") {
		h.logger.Debug().Str("url", targetURL).Msg("invalid URL")
		result.Error = "invalid URL"
		return result, nil
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	type scrapeResult struct {
		data *firecrawl.FirecrawlDocument
		err  error
	}
	resultChan := make(chan scrapeResult, 1)

	// The SDK takes no context, so the call runs in a goroutine to honor the timeout
	go func() {
		scrapedData, err := h.scrape(targetURL)
		resultChan <- scrapeResult{data: scrapedData, err: err}
	}()

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			h.logger.Warn().Str("url", targetURL).Msg("scrape timeout exceeded")
			result.Error = "scrape timeout exceeded"
			return result, nil
		}
		return result, ctx.Err()
	case res := <-resultChan:
		if res.err != nil {
			h.logger.Warn().Err(res.err).Str("url", targetURL).Msg("scrape error")
			result.Error = res.err.Error()
			return result, nil
		}
		if res.data != nil {
			h.logger.Debug().Str("url", targetURL).Int("html_length", len(res.data.HTML)).Msg("scraped page")
			result.HTML = res.data.HTML
			result.Success = true
		}
	}

	return result, nil
}
