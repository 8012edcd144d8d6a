package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRecordStatus_CanTransitionTo tests the allowed lifecycle transitions
func TestRecordStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name     string
		from     RecordStatus
		to       RecordStatus
		expected bool
	}{
		{name: "pending to processing", from: RecordStatusPending, to: RecordStatusProcessing, expected: true},
		{name: "processing to completed", from: RecordStatusProcessing, to: RecordStatusCompleted, expected: true},
		{name: "processing to error", from: RecordStatusProcessing, to: RecordStatusError, expected: true},
		{name: "pending to completed", from: RecordStatusPending, to: RecordStatusCompleted, expected: false},
		{name: "pending to error", from: RecordStatusPending, to: RecordStatusError, expected: false},
		{name: "completed to processing", from: RecordStatusCompleted, to: RecordStatusProcessing, expected: false},
		{name: "error to pending", from: RecordStatusError, to: RecordStatusPending, expected: false},
		{name: "processing to processing", from: RecordStatusProcessing, to: RecordStatusProcessing, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestRecordStatus_IsTerminal(t *testing.T) {
	assert.False(t, RecordStatusPending.IsTerminal())
	assert.False(t, RecordStatusProcessing.IsTerminal())
	assert.True(t, RecordStatusCompleted.IsTerminal())
	assert.True(t, RecordStatusError.IsTerminal())
}

func TestNewPendingRecord(t *testing.T) {
	record := NewPendingRecord("rec-1", "  Acme Robotics ", "2024-03-15", "Not specified", "Acme Ventures")

	assert.Equal(t, "rec-1", record.ID)
	assert.Equal(t, "Acme Robotics", record.CompanyName)
	assert.Equal(t, RecordStatusPending, record.Status)
	assert.Equal(t, []string{NotAvailable, NotAvailable, NotAvailable}, record.PressURLs())
	assert.Equal(t, NotAvailable, record.InvestorContacts)
	assert.False(t, record.CreatedAt.IsZero())
}

func TestNormalizeField(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty string", input: "", expected: NotAvailable},
		{name: "whitespace", input: "   ", expected: NotAvailable},
		{name: "lowercase n/a", input: "n/a", expected: NotAvailable},
		{name: "none", input: "None", expected: NotAvailable},
		{name: "real value", input: " $10 million ", expected: "$10 million"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeField(tt.input))
		})
	}
}

func TestPadURLs(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "no urls",
			input:    nil,
			expected: []string{NotAvailable, NotAvailable, NotAvailable},
		},
		{
			name:     "one url",
			input:    []string{"https://a.com/x"},
			expected: []string{"https://a.com/x", NotAvailable, NotAvailable},
		},
		{
			name:     "skips empty and n/a entries",
			input:    []string{"", "N/A", "https://a.com/x", "https://b.com/y"},
			expected: []string{"https://a.com/x", "https://b.com/y", NotAvailable},
		},
		{
			name:     "truncates to three",
			input:    []string{"https://a.com", "https://b.com", "https://c.com", "https://d.com"},
			expected: []string{"https://a.com", "https://b.com", "https://c.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, PadURLs(tt.input))
		})
	}
}

func TestParseInvestorContacts(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []InvestorContact
	}{
		{
			name:     "single contact",
			input:    "John Smith (Acme Ventures)",
			expected: []InvestorContact{{Name: "John Smith", Firm: "Acme Ventures"}},
		},
		{
			name:  "multiple contacts",
			input: "John Smith (Acme Ventures), Jane Doe (Beta Capital)",
			expected: []InvestorContact{
				{Name: "John Smith", Firm: "Acme Ventures"},
				{Name: "Jane Doe", Firm: "Beta Capital"},
			},
		},
		{
			name:  "conjunction before last entry",
			input: "John Smith (Acme Ventures) and Jane Doe (Beta Capital)",
			expected: []InvestorContact{
				{Name: "John Smith", Firm: "Acme Ventures"},
				{Name: "Jane Doe", Firm: "Beta Capital"},
			},
		},
		{
			name:     "no parentheses",
			input:    "John Smith from Acme Ventures",
			expected: nil,
		},
		{
			name:     "not available",
			input:    "N/A",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseInvestorContacts(tt.input))
		})
	}
}

// TestInvestorContacts_RoundTrip tests that formatted contacts parse back into the same pairs
func TestInvestorContacts_RoundTrip(t *testing.T) {
	contacts := []InvestorContact{
		{Name: "John Smith", Firm: "Acme Ventures"},
		{Name: "María López", Firm: "Sequoia Capital"},
	}

	formatted := FormatInvestorContacts(contacts)
	assert.Equal(t, "John Smith (Acme Ventures), María López (Sequoia Capital)", formatted)
	assert.Equal(t, contacts, ParseInvestorContacts(formatted))
}

func TestFormatInvestorContacts_DeduplicatesAndDefaults(t *testing.T) {
	assert.Equal(t, NotAvailable, FormatInvestorContacts(nil))

	formatted := FormatInvestorContacts([]InvestorContact{
		{Name: "John Smith", Firm: "Acme Ventures"},
		{Name: "john smith", Firm: "acme ventures"},
	})
	assert.Equal(t, "John Smith (Acme Ventures)", formatted)
}

func TestIsValidAmount(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{name: "dollar million", input: "$10 million", expected: true},
		{name: "euro shorthand", input: "€50M", expected: true},
		{name: "currency code", input: "USD 3.5 billion", expected: true},
		{name: "no currency", input: "10 million", expected: false},
		{name: "no magnitude", input: "$ undisclosed", expected: false},
		{name: "not available", input: "N/A", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsValidAmount(tt.input))
		})
	}
}

func TestEnrichmentOutcome_Apply(t *testing.T) {
	record := NewPendingRecord("rec-1", "Acme Robotics", "", "", "")
	outcome := EnrichmentOutcome{
		PressURLs:        []string{"https://www.businesswire.com/news/acme"},
		InvestorContacts: "John Smith (Acme Ventures)",
		AmountRaised:     "",
	}

	outcome.Apply(record)

	assert.Equal(t, "https://www.businesswire.com/news/acme", record.PressURL1)
	assert.Equal(t, NotAvailable, record.PressURL2)
	assert.Equal(t, NotAvailable, record.PressURL3)
	assert.Equal(t, "John Smith (Acme Ventures)", record.InvestorContacts)
	assert.Equal(t, NotAvailable, record.AmountRaised)
}

// TestWebhookPayload_RecordFromPayload tests which webhook events trigger enrichment
func TestWebhookPayload_RecordFromPayload(t *testing.T) {
	t.Run("insert of pending record", func(t *testing.T) {
		raw := `{"type":"INSERT","table":"fundraises","schema":"public",
			"record":{"id":"rec-1","company_name":"Acme Robotics","status":"pending"}}`

		var payload WebhookPayload
		require.NoError(t, json.Unmarshal([]byte(raw), &payload))

		record := payload.RecordFromPayload()
		require.NotNil(t, record)
		assert.Equal(t, "rec-1", record.ID)
		assert.Equal(t, "Acme Robotics", record.CompanyName)
	})

	t.Run("update events are ignored", func(t *testing.T) {
		payload := WebhookPayload{Type: "UPDATE", Record: &FundraiseRecord{ID: "rec-1", Status: RecordStatusPending}}
		assert.Nil(t, payload.RecordFromPayload())
	})

	t.Run("non pending records are ignored", func(t *testing.T) {
		payload := WebhookPayload{Type: "INSERT", Record: &FundraiseRecord{ID: "rec-1", Status: RecordStatusCompleted}}
		assert.Nil(t, payload.RecordFromPayload())
	})

	t.Run("missing record", func(t *testing.T) {
		payload := WebhookPayload{Type: "INSERT"}
		assert.Nil(t, payload.RecordFromPayload())
	})

	t.Run("missing id", func(t *testing.T) {
		payload := WebhookPayload{Type: "INSERT", Record: &FundraiseRecord{CompanyName: "Acme"}}
		assert.Nil(t, payload.RecordFromPayload())
	})
}
