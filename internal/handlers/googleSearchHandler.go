package handlers

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	g "github.com/serpapi/google-search-results-golang"
	"golang.org/x/time/rate"

	"webstar/fundraise-enrichment-worker/internal/config"
	"webstar/fundraise-enrichment-worker/internal/dto"
	"webstar/fundraise-enrichment-worker/internal/logging"
	"webstar/fundraise-enrichment-worker/internal/retry"
)

const (
	// ResultsPerPage is the number of results requested from SerpAPI per query
	ResultsPerPage = 10
	// MaxResultsPerRequest caps the debug search endpoint
	MaxResultsPerRequest = 100
	// excelEpochOffset is the number of days between 1899-12-30 and 1970-01-01
	excelEpochOffset = 25569
	// minDateSerial (1927-05-18) and maxDateSerial (9999-12-31) bound the numbers read
	// as spreadsheet dates; other digit runs such as 20240315 are searched for a year
	minDateSerial = 10000
	maxDateSerial = 2958465
)

// ErrSearchRateLimited is returned when the search API rejects a query with HTTP 429
var ErrSearchRateLimited = errors.New("search API rate limit reached")

// SearchQuery describes the funding round being looked up
type SearchQuery struct {
	CompanyName string
	Investors   string
	RaiseDate   string
}

// OrganicResult represents a single organic search result
// @Description A single organic search result from Google
type OrganicResult struct {
	// Position of the result in the search results
	Position int `json:"position" example:"1"`
	// Title of the search result
	Title string `json:"title" example:"Acme Robotics Raises $10M Series A"`
	// URL of the search result
	Link string `json:"link" example:"https://www.businesswire.com/news/home/acme-robotics-raises-10m"`
	// Displayed URL shown in search results
	DisplayedLink string `json:"displayed_link" example:"www.businesswire.com"`
	// Snippet/description of the search result
	Snippet string `json:"snippet" example:"Acme Robotics today announced a $10 million Series A led by Acme Ventures."`
}

// searchBackend executes one SerpAPI query and returns the decoded JSON
type searchBackend func(parameters map[string]string, apiKey string) (map[string]interface{}, error)

func serpAPIBackend(parameters map[string]string, apiKey string) (map[string]interface{}, error) {
	search := g.NewGoogleSearch(parameters, apiKey)
	return search.GetJSON()
}

// GoogleSearchHandler finds candidate press-release URLs through SerpAPI
type GoogleSearchHandler struct {
	apiKey      string
	backend     searchBackend
	limiter     *rate.Limiter
	policy      retry.Policy
	filter      *RelevanceFilter
	wireDomains []string
	newsDomains []string
	blocked     []string
	targetCount int
	logger      zerolog.Logger
}

// NewGoogleSearchHandler creates a search client. Queries are paced by pipeline.SearchDelay
// and a query that fails for any reason other than rate limiting is retried once.
func NewGoogleSearchHandler(apiKey string, pipeline config.PipelineConfig) *GoogleSearchHandler {
	target := pipeline.TargetURLCount
	if target <= 0 {
		target = config.DefaultTargetURLCount
	}
	return &GoogleSearchHandler{
		apiKey:      apiKey,
		backend:     serpAPIBackend,
		limiter:     newQueryLimiter(pipeline.SearchDelay),
		policy:      retry.Policy{MaxAttempts: 2, Backoff: pipeline.SearchDelay},
		filter:      NewRelevanceFilter(pipeline),
		wireDomains: pipeline.WireDomains,
		newsDomains: pipeline.NewsDomains,
		blocked:     pipeline.BlockedDomains,
		targetCount: target,
		logger:      logging.Component("SearchClient"),
	}
}

func newQueryLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

// SetRetryPolicy overrides how often a failed query is attempted
func (h *GoogleSearchHandler) SetRetryPolicy(policy retry.Policy) {
	h.policy = policy
}

// Configured reports whether an API key is available
func (h *GoogleSearchHandler) Configured() bool {
	return h != nil && h.apiKey != ""
}

// FindPressURLs runs the primary query variants and returns up to the target
// number of relevant, de-duplicated URLs
func (h *GoogleSearchHandler) FindPressURLs(ctx context.Context, q SearchQuery) []string {
	return h.collect(ctx, q, BuildQueries(q, h.wireDomains), nil)
}

// FindAlternateURLs runs broader query variants, skipping URLs in exclude
func (h *GoogleSearchHandler) FindAlternateURLs(ctx context.Context, q SearchQuery, exclude map[string]bool) []string {
	return h.collect(ctx, q, AlternateQueries(q, h.newsDomains), exclude)
}

func (h *GoogleSearchHandler) collect(ctx context.Context, q SearchQuery, queries []string, exclude map[string]bool) []string {
	urls := []string{}
	if !h.Configured() {
		h.logger.Info().Msg("SERPAPI_KEY not set - search skipped")
		return urls
	}
	if strings.TrimSpace(q.CompanyName) == "" {
		return urls
	}

	seen := make(map[string]bool)
	for _, query := range queries {
		if len(urls) >= h.targetCount {
			break
		}

		results, err := h.Search(ctx, query, ResultsPerPage)
		if err != nil {
			if errors.Is(err, ErrSearchRateLimited) {
				h.logger.Warn().Str("query", query).Int("found", len(urls)).Msg("rate limited, returning partial results")
				break
			}
			if ctx.Err() != nil {
				break
			}
			h.logger.Warn().Err(err).Str("query", query).Msg("query failed, trying next")
			continue
		}

		for _, result := range results {
			link := strings.TrimSpace(result.Link)
			if link == "" || seen[link] || exclude[link] {
				continue
			}
			seen[link] = true
			if hostMatches(urlHost(link), h.blocked) {
				continue
			}
			if !h.filter.IsRelevantURL(link, q.CompanyName) {
				continue
			}
			urls = append(urls, link)
			if len(urls) >= h.targetCount {
				break
			}
		}
		h.logger.Debug().Str("query", query).Int("results", len(results)).Int("found", len(urls)).Msg("query complete")
	}

	if len(urls) > h.targetCount {
		urls = urls[:h.targetCount]
	}
	h.logger.Info().Str("company", q.CompanyName).Int("found", len(urls)).Msg("search complete")
	return urls
}

// Search runs a single query. Every attempt waits for the pacing limiter.
func (h *GoogleSearchHandler) Search(ctx context.Context, query string, num int) ([]OrganicResult, error) {
	if num <= 0 {
		num = ResultsPerPage
	} else if num > MaxResultsPerRequest {
		num = MaxResultsPerRequest
	}

	parameters := map[string]string{
		"engine": "google",
		"q":      query,
		"hl":     "en",
		"gl":     "us",
		"num":    strconv.Itoa(num),
	}

	var (
		resp    map[string]interface{}
		lastErr error
	)
	ok := h.policy.Do(ctx, func(attempt int) bool {
		if lastErr = h.limiter.Wait(ctx); lastErr != nil {
			return false
		}
		resp, lastErr = h.backend(parameters, h.apiKey)
		if lastErr == nil {
			return true
		}
		if isRateLimitError(lastErr) {
			// retrying a rate-limited key only burns quota
			lastErr = fmt.Errorf("%w: %v", ErrSearchRateLimited, lastErr)
			return true
		}
		h.logger.Debug().Err(lastErr).Str("query", query).Int("attempt", attempt+1).Msg("search attempt failed")
		return false
	})
	if lastErr == nil && !ok {
		lastErr = ctx.Err()
	}
	if lastErr != nil {
		if errors.Is(lastErr, ErrSearchRateLimited) {
			return nil, lastErr
		}
		return nil, fmt.Errorf("search %q: %w", query, lastErr)
	}

	return parseOrganicResults(resp), nil
}

func parseOrganicResults(resp map[string]interface{}) []OrganicResult {
	var results []OrganicResult
	organicResults, ok := resp["organic_results"].([]interface{})
	if !ok {
		return results
	}
	for _, item := range organicResults {
		itemMap, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		results = append(results, OrganicResult{
			Position:      getInt(itemMap, "position"),
			Title:         getString(itemMap, "title"),
			Link:          getString(itemMap, "link"),
			DisplayedLink: getString(itemMap, "displayed_link"),
			Snippet:       getString(itemMap, "snippet"),
		})
	}
	return results
}

func isRateLimitError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"429", "too many requests", "rate limit", "run out of searches", "searches for the month"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// BuildQueries returns the primary query variants in the order they are tried
func BuildQueries(q SearchQuery, wireDomains []string) []string {
	company := strings.TrimSpace(q.CompanyName)
	if company == "" {
		return nil
	}
	quoted := `"` + company + `"`
	year := ExtractYear(q.RaiseDate)

	queries := []string{
		joinQuery(quoted, "funding", year),
		joinQuery(quoted, "raises", year),
		joinQuery(quoted, "funding round press release"),
		joinQuery(quoted, "investment announcement", FirstInvestor(q.Investors)),
	}
	for _, domain := range wireDomains {
		queries = append(queries, joinQuery("site:"+domain, quoted, "funding"))
	}
	return queries
}

// AlternateQueries returns the broader phrasings used to top up a short result list
func AlternateQueries(q SearchQuery, newsDomains []string) []string {
	company := strings.TrimSpace(q.CompanyName)
	if company == "" {
		return nil
	}
	quoted := `"` + company + `"`
	year := ExtractYear(q.RaiseDate)

	queries := []string{
		joinQuery(company, "raised million investors", year),
		joinQuery(quoted, "announces", "series funding"),
		joinQuery(quoted, "led by", FirstInvestor(q.Investors)),
		joinQuery(quoted, "seed round news"),
	}
	for _, domain := range newsDomains {
		queries = append(queries, joinQuery("site:"+domain, quoted, "raises"))
	}
	return queries
}

func joinQuery(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " ")
}

var (
	yearPattern   = regexp.MustCompile(`(19|20)\d\d`)
	serialPattern = regexp.MustCompile(`^\d+(\.\d+)?$`)
)

// ExtractYear returns the four-digit year of a free-text date or a spreadsheet
// serial date, or "" when none can be determined
func ExtractYear(date string) string {
	date = strings.TrimSpace(date)
	if date == "" {
		return ""
	}

	if serialPattern.MatchString(date) {
		serial, err := strconv.ParseFloat(date, 64)
		if err == nil && serial >= minDateSerial && serial <= maxDateSerial {
			days := int64(serial) - excelEpochOffset
			return strconv.Itoa(time.Unix(days*86400, 0).UTC().Year())
		}
	}

	return yearPattern.FindString(date)
}

// FirstInvestor returns the first name in a free-text investor list
func FirstInvestor(investors string) string {
	if dto.IsNotAvailable(investors) {
		return ""
	}
	first := investors
	for _, sep := range []string{",", ";", "\n", " and ", " & "} {
		if i := strings.Index(first, sep); i >= 0 {
			first = first[:i]
		}
	}
	return strings.Trim(strings.TrimSpace(first), `"'`)
}

// Helper functions to safely extract values from map[string]interface{}
func getString(m map[string]interface{}, key string) string {
	if val, ok := m[key].(string); ok {
		return val
	}
	return ""
}

func getInt(m map[string]interface{}, key string) int {
	if val, ok := m[key].(float64); ok {
		return int(val)
	}
	return 0
}
