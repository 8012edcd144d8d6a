package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webstar/fundraise-enrichment-worker/internal/dto"
)

// memoryStore is an in-memory services.RecordStore
type memoryStore struct {
	mu        sync.Mutex
	records   map[string]*dto.FundraiseRecord
	createErr error
}

func newMemoryStore(records ...*dto.FundraiseRecord) *memoryStore {
	s := &memoryStore{records: make(map[string]*dto.FundraiseRecord)}
	for _, r := range records {
		s.records[r.ID] = r
	}
	return s
}

func (s *memoryStore) GetRecord(_ context.Context, id string) (*dto.FundraiseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return nil, eris.Wrapf(dto.ErrRecordNotFound, "record %s", id)
	}
	clone := *r
	return &clone, nil
}

func (s *memoryStore) CreateRecord(_ context.Context, record *dto.FundraiseRecord) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *record
	s.records[record.ID] = &clone
	return nil
}

func (s *memoryStore) UpdateRecordStatus(_ context.Context, id string, status dto.RecordStatus, _ *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return dto.ErrRecordNotFound
	}
	r.Status = status
	return nil
}

func (s *memoryStore) SaveEnrichment(_ context.Context, id string, outcome *dto.EnrichmentOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return dto.ErrRecordNotFound
	}
	outcome.Apply(r)
	return nil
}

func (s *memoryStore) ListRecordsByStatus(_ context.Context, status dto.RecordStatus, _ int) ([]dto.FundraiseRecord, error) {
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

// fakeProcessor returns a scripted result for ProcessRecord
type fakeProcessor struct {
	mu     sync.Mutex
	record *dto.FundraiseRecord
	err    error
	ids    []string
	done   chan string
}

func (p *fakeProcessor) ProcessRecord(_ context.Context, id string) (*dto.FundraiseRecord, error) {
	p.mu.Lock()
	p.ids = append(p.ids, id)
	p.mu.Unlock()
	if p.done != nil {
		p.done <- id
	}
	return p.record, p.err
}

func (p *fakeProcessor) calledWith() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.ids...)
}

func TestRecordsController_CreateRecord(t *testing.T) {
	store := newMemoryStore()
	ctrl := NewRecordsController(store, &fakeProcessor{})
	router := setupTestRouter()
	router.POST("/api/v1/records", ctrl.CreateRecord)

	w := postJSON(t, router, "/api/v1/records", dto.CreateRecordRequest{
		CompanyName:  "  Acme Robotics ",
		RaiseDate:    "45366",
		AmountRaised: "Not specified",
		Investors:    "Acme Ventures",
	}, nil)

	require.Equal(t, http.StatusCreated, w.Code)

	var created dto.FundraiseRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	_, err := uuid.Parse(created.ID)
	assert.NoError(t, err, "record id should be a uuid")
	assert.Equal(t, "Acme Robotics", created.CompanyName)
	assert.Equal(t, dto.RecordStatusPending, created.Status)
	assert.Equal(t, []string{dto.NotAvailable, dto.NotAvailable, dto.NotAvailable}, created.PressURLs())

	stored, err := store.GetRecord(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Ventures", stored.KnownInvestors)
}

func TestRecordsController_CreateRecordErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     interface{}
		storeErr error
		wantCode int
	}{
		{
			name:     "missing company name",
			body:     map[string]string{"raise_date": "2024-03-15"},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "store failure",
			body:     dto.CreateRecordRequest{CompanyName: "Acme Robotics"},
			storeErr: errors.New("connection refused"),
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemoryStore()
			store.createErr = tt.storeErr
			router := setupTestRouter()
			router.POST("/api/v1/records", NewRecordsController(store, &fakeProcessor{}).CreateRecord)

			w := postJSON(t, router, "/api/v1/records", tt.body, nil)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Empty(t, store.records)
		})
	}
}

func TestRecordsController_GetRecord(t *testing.T) {
	existing := dto.NewPendingRecord("rec-1", "Acme Robotics", "2024-03-15", "", "")
	router := setupTestRouter()
	router.GET("/api/v1/records/:id", NewRecordsController(newMemoryStore(existing), &fakeProcessor{}).GetRecord)

	tests := []struct {
		name     string
		id       string
		wantCode int
	}{
		{name: "found", id: "rec-1", wantCode: http.StatusOK},
		{name: "not found", id: "missing", wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/records/"+tt.id, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantCode == http.StatusOK {
				var got dto.FundraiseRecord
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
				assert.Equal(t, "Acme Robotics", got.CompanyName)
			}
		})
	}
}

func TestRecordsController_EnrichRecord(t *testing.T) {
	completed := dto.NewPendingRecord("rec-1", "Acme Robotics", "", "", "")
	completed.Status = dto.RecordStatusCompleted
	completed.InvestorContacts = "Jane Doe (Acme Ventures)"

	tests := []struct {
		name      string
		processor *fakeProcessor
		wantCode  int
	}{
		{
			name:      "completed",
			processor: &fakeProcessor{record: completed},
			wantCode:  http.StatusOK,
		},
		{
			name:      "not found",
			processor: &fakeProcessor{err: eris.Wrap(dto.ErrRecordNotFound, "load record rec-1")},
			wantCode:  http.StatusNotFound,
		},
		{
			name:      "not pending",
			processor: &fakeProcessor{record: completed, err: eris.Wrap(dto.ErrInvalidTransition, "record rec-1 is completed")},
			wantCode:  http.StatusConflict,
		},
		{
			name:      "malformed record",
			processor: &fakeProcessor{err: eris.Wrap(dto.ErrInvalidRecord, "malformed record")},
			wantCode:  http.StatusUnprocessableEntity,
		},
		{
			name:      "enrichment failure",
			processor: &fakeProcessor{err: errors.New("save enrichment: connection reset")},
			wantCode:  http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupTestRouter()
			router.POST("/api/v1/records/:id/enrich", NewRecordsController(newMemoryStore(), tt.processor).EnrichRecord)

			w := postJSON(t, router, "/api/v1/records/rec-1/enrich", nil, nil)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, []string{"rec-1"}, tt.processor.calledWith())
			if tt.wantCode == http.StatusOK {
				var got dto.FundraiseRecord
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
				assert.Equal(t, dto.RecordStatusCompleted, got.Status)
				assert.Equal(t, "Jane Doe (Acme Ventures)", got.InvestorContacts)
			}
		})
	}
}
