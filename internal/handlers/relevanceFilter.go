package handlers

import (
	"net/url"
	"strings"
	"unicode"

	"webstar/fundraise-enrichment-worker/internal/config"
)

// RelevanceFilter decides whether a candidate URL looks like a funding press release.
// All methods are pure functions of their inputs and the configured lists.
type RelevanceFilter struct {
	pressDomains    []string
	wireDomains     []string
	newsDomains     []string
	urlKeywords     []string
	contentKeywords []string
	minScore        int
}

// NewRelevanceFilter creates a RelevanceFilter from the pipeline configuration
func NewRelevanceFilter(pipeline config.PipelineConfig) *RelevanceFilter {
	minScore := pipeline.MinRelevanceScore
	if minScore <= 0 {
		minScore = config.DefaultMinRelevanceScore
	}
	return &RelevanceFilter{
		pressDomains:    pipeline.PressDomains,
		wireDomains:     pipeline.WireDomains,
		newsDomains:     pipeline.NewsDomains,
		urlKeywords:     lowerAll(pipeline.URLKeywords),
		contentKeywords: lowerAll(pipeline.ContentKeywords),
		minScore:        minScore,
	}
}

// IsRelevantURL applies the URL-only rule: the host is a known press domain, or
// the URL mentions the company and a funding keyword.
func (f *RelevanceFilter) IsRelevantURL(rawURL, companyName string) bool {
	host := urlHost(rawURL)
	if host == "" {
		return false
	}
	if hostMatches(host, f.pressDomains) {
		return true
	}

	company := NormalizeCompanyName(companyName)
	if company == "" {
		return false
	}
	if !strings.Contains(NormalizeCompanyName(rawURL), company) {
		return false
	}

	lowerURL := strings.ToLower(rawURL)
	for _, kw := range f.urlKeywords {
		if strings.Contains(lowerURL, kw) {
			return true
		}
	}
	return false
}

// ScoreContent counts funding signals in the page content and its URL
func (f *RelevanceFilter) ScoreContent(rawURL, content string) int {
	lowerContent := strings.ToLower(content)
	score := 0
	for _, kw := range f.contentKeywords {
		if strings.Contains(lowerContent, kw) {
			score++
		}
	}

	lowerURL := strings.ToLower(rawURL)
	if strings.Contains(lowerURL, "press-release") || strings.Contains(lowerURL, "news") {
		score++
	}

	host := urlHost(rawURL)
	if hostMatches(host, f.wireDomains) {
		score += 2
	}
	if hostMatches(host, f.newsDomains) {
		score++
	}
	return score
}

// IsRelevantContent applies the content rule: enough funding signals and the
// company name present in the text
func (f *RelevanceFilter) IsRelevantContent(rawURL, content, companyName string) bool {
	companyName = strings.TrimSpace(companyName)
	if content == "" || companyName == "" {
		return false
	}
	if f.ScoreContent(rawURL, content) < f.minScore {
		return false
	}
	return strings.Contains(strings.ToLower(content), strings.ToLower(companyName))
}

// NormalizeCompanyName lowercases s and drops everything but letters and digits
func NormalizeCompanyName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func urlHost(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.ToLower(v))
	}
	return out
}
