package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webstar/fundraise-enrichment-worker/internal/config"
	"webstar/fundraise-enrichment-worker/internal/dto"
	"webstar/fundraise-enrichment-worker/internal/handlers"
	"webstar/fundraise-enrichment-worker/internal/model/provider"
)

// memStore is an in-memory RecordStore that enforces status transitions
type memStore struct {
	mu       sync.Mutex
	records  map[string]*dto.FundraiseRecord
	history  []dto.RecordStatus
	saveErr  error
	getErr   error
	getCalls int
}

func newMemStore(records ...*dto.FundraiseRecord) *memStore {
	s := &memStore{records: make(map[string]*dto.FundraiseRecord)}
	for _, r := range records {
		s.records[r.ID] = r
	}
	return s
}

func (s *memStore) GetRecord(ctx context.Context, id string) (*dto.FundraiseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	if s.getErr != nil {
		return nil, s.getErr
	}
	r, ok := s.records[id]
	if !ok {
		return nil, dto.ErrRecordNotFound
	}
	copied := *r
	return &copied, nil
}

func (s *memStore) CreateRecord(ctx context.Context, record *dto.FundraiseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = record
	return nil
}

func (s *memStore) UpdateRecordStatus(ctx context.Context, id string, status dto.RecordStatus, errorMessage *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return dto.ErrRecordNotFound
	}
	if !r.Status.CanTransitionTo(status) {
		return dto.ErrInvalidTransition
	}
	r.Status = status
	if status == dto.RecordStatusError {
		r.ErrorMessage = errorMessage
	}
	s.history = append(s.history, status)
	return nil
}

func (s *memStore) SaveEnrichment(ctx context.Context, id string, outcome *dto.EnrichmentOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	r, ok := s.records[id]
	if !ok {
		return dto.ErrRecordNotFound
	}
	outcome.Apply(r)
	return nil
}

func (s *memStore) ListRecordsByStatus(ctx context.Context, status dto.RecordStatus, limit int) ([]dto.FundraiseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []dto.FundraiseRecord
	for _, r := range s.records {
		if r.Status == status {
			out = append(out, *r)
		}
	}
	return out, nil
}

// fakeSearch returns fixed primary and alternate URL lists
type fakeSearch struct {
	primary    []string
	alternates [][]string
	calls      int
	excluded   []map[string]bool
}

func (f *fakeSearch) FindPressURLs(ctx context.Context, q handlers.SearchQuery) []string {
	return f.primary
}

func (f *fakeSearch) FindAlternateURLs(ctx context.Context, q handlers.SearchQuery, exclude map[string]bool) []string {
	snapshot := make(map[string]bool, len(exclude))
	for k, v := range exclude {
		snapshot[k] = v
	}
	f.excluded = append(f.excluded, snapshot)
	if f.calls >= len(f.alternates) {
		f.calls++
		return nil
	}
	urls := f.alternates[f.calls]
	f.calls++
	return urls
}

// fakeFetcher serves page texts by URL
type fakeFetcher map[string]string

func (f fakeFetcher) FetchText(ctx context.Context, url string) string {
	return f[url]
}

// stubGenerator answers extraction prompts by system prompt keyword
type stubGenerator struct {
	mu        sync.Mutex
	amount    string
	investors string
	fallback  string
	calls     int
}

func (g *stubGenerator) Len() int { return 1 }

func (g *stubGenerator) Generate(ctx context.Context, system, prompt string) (*provider.Generation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	text := g.fallback
	switch {
	case strings.Contains(system, "funding amounts"):
		text = g.amount
	case strings.Contains(system, "investor representatives"):
		text = g.investors
	}
	return &provider.Generation{Text: text, Model: "gemini-2.5-flash"}, nil
}

// panicExtractor simulates a bug inside extraction
type panicExtractor struct{}

func (panicExtractor) Extract(ctx context.Context, input handlers.ExtractionInput) handlers.ExtractionResult {
	panic("nil map write")
}

// fixedExtractor returns a canned extraction result
type fixedExtractor struct {
	result handlers.ExtractionResult
}

func (f fixedExtractor) Extract(ctx context.Context, input handlers.ExtractionInput) handlers.ExtractionResult {
	return f.result
}

// fixedFallback returns a canned fallback result
type fixedFallback struct {
	result *handlers.FallbackResult
	calls  int
}

func (f *fixedFallback) Lookup(ctx context.Context, input handlers.FallbackInput) *handlers.FallbackResult {
	f.calls++
	return f.result
}

func testPipeline() config.PipelineConfig {
	pipeline := config.DefaultPipelineConfig()
	pipeline.TopUpBackoff = 0
	pipeline.RecordDelay = 0
	return pipeline
}

const businessWireURL = "https://www.businesswire.com/news/home/acme-robotics-funding"

func acmeArticle() string {
	return "Acme Robotics today announced it has raised $10 million in Series A funding. " +
		"The round was led by John Smith, partner at Acme Ventures, with participation from existing investors. " +
		"Acme Robotics will use the investment to expand its warehouse automation platform across North America " +
		"and Europe, and to grow its engineering team. The company was founded in 2019 in Boston."
}

func newProcessor(store RecordStore, search SearchStrategy, fetcher ContentFetcher, extractor ExtractionStrategy, fallback FallbackStrategy) *EnrichmentProcessor {
	pipeline := testPipeline()
	validation := NewValidationStrategy(ValidationModeContent, handlers.NewRelevanceFilter(pipeline))
	return NewEnrichmentProcessor(store, search, fetcher, validation, extractor, fallback, pipeline)
}

func TestProcessRecord_NoRelevantURLs(t *testing.T) {
	store := newMemStore(dto.NewPendingRecord("rec-1", "Acme Robotics", "2024-03-15", "", ""))
	p := newProcessor(store, &fakeSearch{}, fakeFetcher{}, nil, nil)

	record, err := p.ProcessRecord(context.Background(), "rec-1")

	require.NoError(t, err)
	assert.Equal(t, dto.RecordStatusCompleted, record.Status)
	assert.Equal(t, []string{dto.NotAvailable, dto.NotAvailable, dto.NotAvailable}, record.PressURLs())
	assert.Equal(t, dto.NotAvailable, record.InvestorContacts)
	assert.Equal(t, dto.NotAvailable, record.AmountRaised)
	assert.Equal(t, []dto.RecordStatus{dto.RecordStatusProcessing, dto.RecordStatusCompleted}, store.history)
}

func TestProcessRecord_ExtractsFromPressRelease(t *testing.T) {
	store := newMemStore(dto.NewPendingRecord("rec-1", "Acme Robotics", "2024-03-15", "Not specified", "Acme Ventures"))
	search := &fakeSearch{primary: []string{businessWireURL}}
	fetcher := fakeFetcher{businessWireURL: acmeArticle()}
	generator := &stubGenerator{amount: "$10 million", investors: "John Smith (Acme Ventures)"}
	extractor := handlers.NewDataExtractorHandler(generator, testPipeline())
	fallback := &fixedFallback{}

	record, err := newProcessor(store, search, fetcher, extractor, fallback).ProcessRecord(context.Background(), "rec-1")

	require.NoError(t, err)
	assert.Equal(t, dto.RecordStatusCompleted, record.Status)
	assert.Equal(t, businessWireURL, record.PressURL1)
	assert.Equal(t, dto.NotAvailable, record.PressURL2)
	assert.Equal(t, "$10 million", record.AmountRaised)
	assert.Contains(t, record.InvestorContacts, "John Smith (Acme Ventures)")
	assert.Equal(t, 0, fallback.calls)
}

func TestProcessRecord_SearchRateLimitedFallsBack(t *testing.T) {
	store := newMemStore(dto.NewPendingRecord("rec-1", "Acme Robotics", "2024", "", "Acme Ventures"))
	fallback := &fixedFallback{result: &handlers.FallbackResult{
		URLs:             []string{"https://techcrunch.com/acme-robotics-raises"},
		AmountRaised:     "$10 million",
		InvestorContacts: "John Smith (Acme Ventures)",
		ConfidenceScore:  0.9,
		Accepted:         true,
	}}

	record, err := newProcessor(store, &fakeSearch{}, fakeFetcher{}, nil, fallback).ProcessRecord(context.Background(), "rec-1")

	require.NoError(t, err)
	assert.Equal(t, 1, fallback.calls)
	assert.Equal(t, dto.RecordStatusCompleted, record.Status)
	assert.Equal(t, "https://techcrunch.com/acme-robotics-raises", record.PressURL1)
	assert.Equal(t, "$10 million", record.AmountRaised)
	assert.Equal(t, "John Smith (Acme Ventures)", record.InvestorContacts)
}

func TestProcessRecord_AmountWithoutCurrencyStillFallsBack(t *testing.T) {
	tests := []struct {
		name          string
		amount        string
		wantFallback  int
		wantAmount    string
		wantInvestors string
	}{
		{
			name:          "bare magnitude",
			amount:        "10 million",
			wantFallback:  1,
			wantAmount:    "$12 million",
			wantInvestors: "John Smith (Acme Ventures)",
		},
		{
			name:          "amount with currency",
			amount:        "$10 million",
			wantFallback:  0,
			wantAmount:    "$10 million",
			wantInvestors: dto.NotAvailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore(dto.NewPendingRecord("rec-1", "Acme Robotics", "2024", "", ""))
			search := &fakeSearch{primary: []string{businessWireURL}}
			fetcher := fakeFetcher{businessWireURL: acmeArticle()}
			extractor := fixedExtractor{result: handlers.ExtractionResult{Amount: tt.amount, Investors: dto.NotAvailable}}
			fallback := &fixedFallback{result: &handlers.FallbackResult{
				URLs:             []string{"https://techcrunch.com/acme-robotics-raises"},
				AmountRaised:     "$12 million",
				InvestorContacts: "John Smith (Acme Ventures)",
				ConfidenceScore:  0.9,
				Accepted:         true,
			}}

			record, err := newProcessor(store, search, fetcher, extractor, fallback).ProcessRecord(context.Background(), "rec-1")

			require.NoError(t, err)
			assert.Equal(t, tt.wantFallback, fallback.calls)
			assert.Equal(t, dto.RecordStatusCompleted, record.Status)
			assert.Equal(t, businessWireURL, record.PressURL1)
			assert.Equal(t, tt.wantAmount, record.AmountRaised)
			assert.Equal(t, tt.wantInvestors, record.InvestorContacts)
		})
	}
}

func TestProcessRecord_MalformedFallbackKeepsPartialResults(t *testing.T) {
	store := newMemStore(dto.NewPendingRecord("rec-1", "Acme Robotics", "2024", "", ""))
	search := &fakeSearch{primary: []string{businessWireURL}}
	fetcher := fakeFetcher{businessWireURL: acmeArticle()}
	generator := &stubGenerator{amount: "N/A", investors: "N/A", fallback: `{"urls": ["https://x.com/a"], "confidence_score": `}
	extractor := handlers.NewDataExtractorHandler(generator, testPipeline())
	fallback := handlers.NewFallbackLookupHandler(generator, testPipeline())

	record, err := newProcessor(store, search, fetcher, extractor, fallback).ProcessRecord(context.Background(), "rec-1")

	require.NoError(t, err)
	assert.Equal(t, 3, generator.calls)
	assert.Equal(t, dto.RecordStatusCompleted, record.Status)
	assert.Equal(t, businessWireURL, record.PressURL1)
	assert.Equal(t, dto.NotAvailable, record.PressURL2)
	assert.Equal(t, dto.NotAvailable, record.AmountRaised)
	assert.Equal(t, dto.NotAvailable, record.InvestorContacts)
}

func TestProcessRecord_TopsUpWithAlternateSearch(t *testing.T) {
	store := newMemStore(dto.NewPendingRecord("rec-1", "Acme Robotics", "2024", "", ""))
	second := "https://www.prnewswire.com/news-releases/acme-robotics-funding-round"
	third := "https://www.globenewswire.com/news-release/acme-robotics-investment"
	irrelevant := "https://www.businesswire.com/news/home/other-company"
	search := &fakeSearch{
		primary:    []string{businessWireURL},
		alternates: [][]string{{businessWireURL, irrelevant}, {second, third}},
	}
	fetcher := fakeFetcher{
		businessWireURL: acmeArticle(),
		second:          acmeArticle(),
		third:           acmeArticle(),
		irrelevant:      strings.Repeat("An unrelated story about weather and sports. ", 10),
	}

	record, err := newProcessor(store, search, fetcher, nil, nil).ProcessRecord(context.Background(), "rec-1")

	require.NoError(t, err)
	assert.Equal(t, []string{businessWireURL, second, third}, record.PressURLs())
	assert.Equal(t, 2, search.calls)
	assert.True(t, search.excluded[0][businessWireURL])
	assert.True(t, search.excluded[1][irrelevant])
}

func TestProcessRecord_TopUpStopsAfterRetries(t *testing.T) {
	store := newMemStore(dto.NewPendingRecord("rec-1", "Acme Robotics", "2024", "", ""))
	search := &fakeSearch{primary: []string{businessWireURL}}
	fetcher := fakeFetcher{businessWireURL: acmeArticle()}

	_, err := newProcessor(store, search, fetcher, nil, nil).ProcessRecord(context.Background(), "rec-1")

	require.NoError(t, err)
	assert.Equal(t, config.DefaultTopUpRetries, search.calls)
}

func TestProcessRecord_InfrastructureFailures(t *testing.T) {
	tests := []struct {
		name          string
		record        *dto.FundraiseRecord
		setup         func(s *memStore)
		extractor     ExtractionStrategy
		expectErr     error
		expectStatus  dto.RecordStatus
		expectMessage string
	}{
		{
			name:          "malformed record",
			record:        dto.NewPendingRecord("rec-1", "", "", "", ""),
			expectErr:     dto.ErrInvalidRecord,
			expectStatus:  dto.RecordStatusError,
			expectMessage: "malformed record",
		},
		{
			name:          "panic during enrichment",
			record:        dto.NewPendingRecord("rec-1", "Acme Robotics", "", "", ""),
			extractor:     panicExtractor{},
			expectStatus:  dto.RecordStatusError,
			expectMessage: "enrichment panicked: nil map write",
		},
		{
			name:          "store update failure",
			record:        dto.NewPendingRecord("rec-1", "Acme Robotics", "", "", ""),
			setup:         func(s *memStore) { s.saveErr = errors.New("connection reset") },
			expectStatus:  dto.RecordStatusError,
			expectMessage: "connection reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore(tt.record)
			if tt.setup != nil {
				tt.setup(store)
			}
			search := &fakeSearch{primary: []string{businessWireURL}}
			fetcher := fakeFetcher{businessWireURL: acmeArticle()}

			_, err := newProcessor(store, search, fetcher, tt.extractor, nil).ProcessRecord(context.Background(), "rec-1")

			require.Error(t, err)
			if tt.expectErr != nil {
				assert.True(t, errors.Is(err, tt.expectErr))
			}
			stored := store.records["rec-1"]
			assert.Equal(t, tt.expectStatus, stored.Status)
			require.NotNil(t, stored.ErrorMessage)
			assert.Contains(t, *stored.ErrorMessage, tt.expectMessage)
		})
	}
}

func TestProcessRecord_NotPending(t *testing.T) {
	record := dto.NewPendingRecord("rec-1", "Acme Robotics", "", "", "")
	record.Status = dto.RecordStatusCompleted
	store := newMemStore(record)

	returned, err := newProcessor(store, &fakeSearch{}, fakeFetcher{}, nil, nil).ProcessRecord(context.Background(), "rec-1")

	assert.True(t, errors.Is(err, ErrInvalidTransition))
	require.NotNil(t, returned)
	assert.Equal(t, dto.RecordStatusCompleted, returned.Status)
	assert.Empty(t, store.history)
}

func TestProcessRecord_NotFound(t *testing.T) {
	store := newMemStore()

	_, err := newProcessor(store, &fakeSearch{}, fakeFetcher{}, nil, nil).ProcessRecord(context.Background(), "missing")

	assert.True(t, errors.Is(err, ErrRecordNotFound))
	assert.Empty(t, store.history)
}

func TestEnrich_WithoutSearchOrProviders(t *testing.T) {
	p := newProcessor(newMemStore(), nil, fakeFetcher{}, nil, nil)

	outcome := p.Enrich(context.Background(), dto.NewPendingRecord("x", "Acme", "", "$2M", ""))

	assert.Empty(t, outcome.PressURLs)
	assert.Equal(t, "$2M", outcome.AmountRaised)
	assert.Equal(t, dto.NotAvailable, outcome.InvestorContacts)
	assert.False(t, outcome.UsedFallback)
}

func TestMergeOutcome(t *testing.T) {
	primary := dto.EnrichmentOutcome{
		PressURLs:        []string{"https://a.com/1"},
		InvestorContacts: "Jane Doe (Sequoia)",
		AmountRaised:     dto.NotAvailable,
	}

	tests := []struct {
		name     string
		fallback *handlers.FallbackResult
		expected dto.EnrichmentOutcome
	}{
		{
			name:     "nil fallback",
			fallback: nil,
			expected: primary,
		},
		{
			name: "rejected fallback",
			fallback: &handlers.FallbackResult{
				URLs: []string{"https://b.com/2"}, AmountRaised: "$1M", InvestorContacts: "X Y (Z)",
			},
			expected: primary,
		},
		{
			name: "accepted fallback fills gaps only",
			fallback: &handlers.FallbackResult{
				Accepted:         true,
				URLs:             []string{"https://a.com/1", "https://b.com/2", "https://c.com/3", "https://d.com/4"},
				AmountRaised:     "$1M",
				InvestorContacts: "Other Person (Other Fund)",
			},
			expected: dto.EnrichmentOutcome{
				PressURLs:        []string{"https://a.com/1", "https://b.com/2", "https://c.com/3"},
				InvestorContacts: "Jane Doe (Sequoia)",
				AmountRaised:     "$1M",
				UsedFallback:     true,
			},
		},
		{
			name: "accepted fallback with nothing new",
			fallback: &handlers.FallbackResult{
				Accepted:         true,
				AmountRaised:     dto.NotAvailable,
				InvestorContacts: dto.NotAvailable,
			},
			expected: primary,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MergeOutcome(primary, tt.fallback))
		})
	}
}

func TestResolveAmount(t *testing.T) {
	tests := []struct {
		name     string
		found    string
		existing string
		expected string
	}{
		{name: "found amount wins", found: "$10 million", existing: "$8M", expected: "$10 million"},
		{name: "existing valid amount kept", found: "N/A", existing: "€5M", expected: "€5M"},
		{name: "placeholder replaced by N/A", found: "N/A", existing: "Not specified", expected: dto.NotAvailable},
		{name: "found amount without currency", found: "10 million", existing: "", expected: dto.NotAvailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ResolveAmount(tt.found, tt.existing))
		})
	}
}

func TestNewValidationStrategy(t *testing.T) {
	filter := handlers.NewRelevanceFilter(testPipeline())

	assert.IsType(t, ContentValidation{}, NewValidationStrategy("content", filter))
	assert.IsType(t, URLValidation{}, NewValidationStrategy(" URL ", filter))
	assert.IsType(t, ContentValidation{}, NewValidationStrategy("", filter))

	urlMode := NewValidationStrategy(ValidationModeURL, filter)
	assert.True(t, urlMode.Validate(businessWireURL, "some text", "Acme Robotics"))
	assert.False(t, urlMode.Validate(businessWireURL, "", "Acme Robotics"))
}
