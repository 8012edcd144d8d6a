package dto

// WebhookPayload is the body Supabase database webhooks send on INSERT/UPDATE
type WebhookPayload struct {
	Type      string           `json:"type"` // INSERT, UPDATE, DELETE
	Table     string           `json:"table"`
	Schema    string           `json:"schema"`
	Record    *FundraiseRecord `json:"record"`
	OldRecord *FundraiseRecord `json:"old_record,omitempty"`
}

// RecordFromPayload returns the record the webhook refers to, or nil if the
// event should be ignored (not an insert of a pending record).
func (p *WebhookPayload) RecordFromPayload() *FundraiseRecord {
	if p == nil || p.Record == nil {
		return nil
	}
	if p.Type != "" && p.Type != "INSERT" {
		return nil
	}
	if p.Record.ID == "" {
		return nil
	}
	if p.Record.Status != "" && p.Record.Status != RecordStatusPending {
		return nil
	}
	return p.Record
}
