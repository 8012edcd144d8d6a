package handlers

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"webstar/fundraise-enrichment-worker/internal/logging"
)

const (
	// MinContainerLength is the text length a content container must exceed to be used
	MinContainerLength = 200
)

// ContentSelectors are tried in order; the first whose text exceeds MinContainerLength wins
var ContentSelectors = []string{
	"article",
	"div[class*=content]",
	"div[class*=article]",
	"main",
	"p",
}

// noiseSelectors are removed before any text is read
const noiseSelectors = "script, style, noscript, iframe, svg, template"

// ExtractText renders raw HTML as plain text.
// It never panics; empty or unparseable input yields "".
func ExtractText(html string) (text string) {
	if strings.TrimSpace(html) == "" {
		return ""
	}

	defer func() {
		if r := recover(); r != nil {
			logger := logging.Component("TextExtractor")
			logger.Warn().Interface("panic", r).Msg("recovered while extracting text")
			text = ""
		}
	}()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find(noiseSelectors).Remove()

	for _, selector := range ContentSelectors {
		candidate := selectionText(doc.Find(selector), selector)
		if len(candidate) > MinContainerLength {
			return candidate
		}
	}

	if paragraphs := selectionText(doc.Find("p"), "p"); paragraphs != "" {
		return paragraphs
	}

	return collapseWhitespace(doc.Find("body").Text())
}

// selectionText joins the text of every outermost element of sel.
// Elements nested inside another match of the same selector are skipped so
// their text is not counted twice.
func selectionText(sel *goquery.Selection, selector string) string {
	var parts []string
	sel.Each(func(_ int, s *goquery.Selection) {
		if s.ParentsFiltered(selector).Length() > 0 {
			return
		}
		if t := collapseWhitespace(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	return strings.Join(parts, " ")
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
