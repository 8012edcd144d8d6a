package dto

// BatchResult holds the outcome of enriching a single record inside a batch
type BatchResult struct {
	RecordID string       `json:"record_id"`
	Status   RecordStatus `json:"status"`
	Error    string       `json:"error,omitempty"`
	Enriched bool         `json:"enriched"` // at least one field is not N/A
	Skipped  bool         `json:"skipped,omitempty"`
}

// BatchSummary aggregates a batch run
type BatchSummary struct {
	Total     int           `json:"total"`
	Completed int           `json:"completed"`
	Failed    int           `json:"failed"`
	Enriched  int           `json:"enriched"`
	Skipped   int           `json:"skipped"`
	Results   []BatchResult `json:"results"`
}

// BatchRequest selects which records a batch run should process
// @Description Batch enrichment request; empty record_ids means every pending record
type BatchRequest struct {
	// Explicit record IDs to process (processed in order)
	RecordIDs []string `json:"record_ids,omitempty" example:"6f1c2a54-9b3e-4c1e-9d7f-1a2b3c4d5e6f"`
	// Maximum number of pending records to pick when record_ids is empty (default 25)
	Limit int `json:"limit,omitempty" example:"25"`
}
