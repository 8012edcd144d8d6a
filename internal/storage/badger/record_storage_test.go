package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webstar/fundraise-enrichment-worker/internal/dto"
)

func newTestStorage(t *testing.T) *RecordStorage {
	t.Helper()
	db, err := NewBadgerDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRecordStorage(db)
}

func TestRecordStorage_CreateAndGet(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	record := dto.NewPendingRecord("rec-1", "Acme Robotics", "2024-03-15", "Not specified", "Sequoia")
	require.NoError(t, storage.CreateRecord(ctx, record))

	loaded, err := storage.GetRecord(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, "rec-1", loaded.ID)
	assert.Equal(t, "Acme Robotics", loaded.CompanyName)
	assert.Equal(t, dto.RecordStatusPending, loaded.Status)
	assert.Equal(t, dto.NotAvailable, loaded.PressURL1)

	err = storage.CreateRecord(ctx, record)
	assert.True(t, errors.Is(err, dto.ErrInvalidRecord))

	err = storage.CreateRecord(ctx, &dto.FundraiseRecord{CompanyName: "No ID"})
	assert.True(t, errors.Is(err, dto.ErrInvalidRecord))
}

func TestRecordStorage_GetMissing(t *testing.T) {
	storage := newTestStorage(t)

	_, err := storage.GetRecord(context.Background(), "missing")

	assert.True(t, errors.Is(err, dto.ErrRecordNotFound))
}

func TestRecordStorage_UpdateRecordStatus(t *testing.T) {
	msg := "enrichment panicked"

	tests := []struct {
		name      string
		steps     []dto.RecordStatus
		expectErr bool
		final     dto.RecordStatus
	}{
		{name: "pending to processing to completed", steps: []dto.RecordStatus{dto.RecordStatusProcessing, dto.RecordStatusCompleted}, final: dto.RecordStatusCompleted},
		{name: "pending to processing to error", steps: []dto.RecordStatus{dto.RecordStatusProcessing, dto.RecordStatusError}, final: dto.RecordStatusError},
		{name: "pending straight to completed", steps: []dto.RecordStatus{dto.RecordStatusCompleted}, expectErr: true, final: dto.RecordStatusPending},
		{name: "completed back to processing", steps: []dto.RecordStatus{dto.RecordStatusProcessing, dto.RecordStatusCompleted, dto.RecordStatusProcessing}, expectErr: true, final: dto.RecordStatusCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := newTestStorage(t)
			ctx := context.Background()
			require.NoError(t, storage.CreateRecord(ctx, dto.NewPendingRecord("rec-1", "Acme", "", "", "")))

			var err error
			for _, step := range tt.steps {
				if err = storage.UpdateRecordStatus(ctx, "rec-1", step, &msg); err != nil {
					break
				}
			}

			if tt.expectErr {
				assert.True(t, errors.Is(err, dto.ErrInvalidTransition))
			} else {
				assert.NoError(t, err)
			}

			loaded, err := storage.GetRecord(ctx, "rec-1")
			require.NoError(t, err)
			assert.Equal(t, tt.final, loaded.Status)
			if tt.final.IsTerminal() {
				assert.NotNil(t, loaded.StartedAt)
				assert.NotNil(t, loaded.CompletedAt)
			}
			if tt.final == dto.RecordStatusError {
				require.NotNil(t, loaded.ErrorMessage)
				assert.Equal(t, msg, *loaded.ErrorMessage)
			} else {
				assert.Nil(t, loaded.ErrorMessage)
			}
		})
	}
}

func TestRecordStorage_SaveEnrichment(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()
	require.NoError(t, storage.CreateRecord(ctx, dto.NewPendingRecord("rec-1", "Acme", "", "Not specified", "")))

	err := storage.SaveEnrichment(ctx, "rec-1", &dto.EnrichmentOutcome{
		PressURLs:        []string{"https://a.com/1", "https://b.com/2"},
		InvestorContacts: "Jane Doe (Sequoia)",
		AmountRaised:     "N/A",
	})
	require.NoError(t, err)

	loaded, err := storage.GetRecord(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.com/1", "https://b.com/2", dto.NotAvailable}, loaded.PressURLs())
	assert.Equal(t, "Jane Doe (Sequoia)", loaded.InvestorContacts)
	assert.Equal(t, dto.NotAvailable, loaded.AmountRaised)

	err = storage.SaveEnrichment(ctx, "missing", &dto.EnrichmentOutcome{})
	assert.True(t, errors.Is(err, dto.ErrRecordNotFound))
}

func TestRecordStorage_ListRecordsByStatus(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"c", "a", "b"} {
		record := dto.NewPendingRecord(id, "Company "+id, "", "", "")
		record.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, storage.CreateRecord(ctx, record))
	}
	require.NoError(t, storage.UpdateRecordStatus(ctx, "a", dto.RecordStatusProcessing, nil))

	pending, err := storage.ListRecordsByStatus(ctx, dto.RecordStatusPending, 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "c", pending[0].ID)
	assert.Equal(t, "b", pending[1].ID)

	limited, err := storage.ListRecordsByStatus(ctx, dto.RecordStatusPending, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	processing, err := storage.ListRecordsByStatus(ctx, dto.RecordStatusProcessing, 10)
	require.NoError(t, err)
	require.Len(t, processing, 1)
	assert.Equal(t, "a", processing[0].ID)
}
