package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"webstar/fundraise-enrichment-worker/internal/config"
	"webstar/fundraise-enrichment-worker/internal/logging"
	"webstar/fundraise-enrichment-worker/internal/retry"
)

const (
	// MaxFetchBodyBytes caps how much of a response body is read
	MaxFetchBodyBytes = 5 << 20
)

// DefaultUserAgents is the client identity rotation used by ContentFetcher
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
}

// PageScraper scrapes a page through a third-party service.
// FirecrawlHandler satisfies it.
type PageScraper interface {
	ScrapeURL(ctx context.Context, targetURL string) (*ScrapedPage, error)
}

// ContentFetcher downloads a URL and extracts its readable text
type ContentFetcher struct {
	client           *http.Client
	policy           retry.Policy
	minContentLength int
	blockedDomains   []string
	userAgents       []string
	scraper          PageScraper
	usage            *UsageTrackerHandler
	logger           zerolog.Logger
}

// NewContentFetcher creates a ContentFetcher from the pipeline configuration
func NewContentFetcher(pipeline config.PipelineConfig) *ContentFetcher {
	timeout := pipeline.FetchTimeout
	if timeout == 0 {
		timeout = config.DefaultFetchTimeout
	}
	minLength := pipeline.MinContentLength
	if minLength <= 0 {
		minLength = config.DefaultMinContentLength
	}

	return &ContentFetcher{
		client:           &http.Client{Timeout: timeout},
		policy:           retry.Policy{MaxAttempts: pipeline.FetchAttempts, Backoff: pipeline.FetchDelay},
		minContentLength: minLength,
		blockedDomains:   pipeline.BlockedDomains,
		userAgents:       DefaultUserAgents,
		logger:           logging.Component("ContentFetcher"),
	}
}

// SetUsageTracker records scraper calls as usage metrics
func (f *ContentFetcher) SetUsageTracker(usage *UsageTrackerHandler) {
	f.usage = usage
}

// SetHTTPClient replaces the HTTP client used for direct fetches
func (f *ContentFetcher) SetHTTPClient(client *http.Client) {
	f.client = client
}

// SetScraper sets the scraping service used when every direct attempt fails
func (f *ContentFetcher) SetScraper(scraper PageScraper) {
	f.scraper = scraper
}

// SetRetryPolicy overrides the attempt count and delay between attempts
func (f *ContentFetcher) SetRetryPolicy(policy retry.Policy) {
	f.policy = policy
}

// IsBlocked reports whether the URL belongs to a domain that is never fetched
func (f *ContentFetcher) IsBlocked(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	return hostMatches(parsed.Hostname(), f.blockedDomains)
}

// FetchText returns the extracted text of targetURL, or "" when nothing usable
// could be retrieved. Failures are logged, never returned.
func (f *ContentFetcher) FetchText(ctx context.Context, targetURL string) string {
	parsed, err := url.Parse(targetURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		f.logger.Debug().Str("url", targetURL).Msg("skipping invalid URL")
		return ""
	}
	if f.IsBlocked(targetURL) {
		f.logger.Debug().Str("url", targetURL).Msg("skipping blocked domain")
		return ""
	}

	var text string
	ok := f.policy.Do(ctx, func(attempt int) bool {
		content, err := f.fetchOnce(ctx, targetURL, attempt)
		if err != nil {
			f.logger.Debug().Err(err).Str("url", targetURL).Int("attempt", attempt+1).Msg("fetch attempt failed")
			return false
		}
		if len(content) < f.minContentLength {
			f.logger.Debug().Str("url", targetURL).Int("attempt", attempt+1).Int("length", len(content)).
				Msg("fetched content below minimum length")
			return false
		}
		text = content
		return true
	})
	if ok {
		f.logger.Info().Str("url", targetURL).Int("length", len(text)).Msg("fetched content")
		return text
	}

	if f.scraper != nil && ctx.Err() == nil {
		if content := f.scrapeFallback(ctx, targetURL); content != "" {
			return content
		}
	}

	f.logger.Warn().Str("url", targetURL).Int("attempts", f.policy.Attempts()).Msg("all fetch attempts failed")
	return ""
}

func (f *ContentFetcher) fetchOnce(ctx context.Context, targetURL string, attempt int) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", f.userAgent(attempt))
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Referer", "https://www.google.com/")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxFetchBodyBytes))
	if err != nil {
		return "", err
	}
	return ExtractText(string(body)), nil
}

func (f *ContentFetcher) userAgent(attempt int) string {
	if len(f.userAgents) == 0 {
		return DefaultUserAgents[0]
	}
	return f.userAgents[attempt%len(f.userAgents)]
}

func (f *ContentFetcher) scrapeFallback(ctx context.Context, targetURL string) string {
	start := time.Now()
	page, err := f.scraper.ScrapeURL(ctx, targetURL)
	success := err == nil && page != nil && page.Success
	size := 0
	if page != nil {
		size = len(page.HTML)
	}
	f.usage.TrackPressScraping(RecordIDFromContext(ctx), targetURL, size, start, success)

	if !success {
		reason := "no content"
		if err != nil {
			reason = err.Error()
		} else if page != nil && page.Error != "" {
			reason = page.Error
		}
		f.logger.Debug().Str("url", targetURL).Str("reason", reason).Msg("scrape fallback failed")
		return ""
	}

	text := ExtractText(page.HTML)
	if len(text) < f.minContentLength {
		f.logger.Debug().Str("url", targetURL).Int("length", len(text)).Msg("scraped content below minimum length")
		return ""
	}
	f.logger.Info().Str("url", targetURL).Int("length", len(text)).Msg("fetched content through scraper")
	return text
}

// hostMatches reports whether host equals one of domains or is a subdomain of one
func hostMatches(host string, domains []string) bool {
	host = strings.ToLower(strings.TrimPrefix(host, "www."))
	if host == "" {
		return false
	}
	for _, d := range domains {
		d = strings.ToLower(d)
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
