package dto

import (
	"regexp"
	"strings"
	"time"
)

// NotAvailable is the canonical marker for a value that could not be determined
const NotAvailable = "N/A"

// MaxPressURLs is the number of press URL slots on a record
const MaxPressURLs = 3

// RecordStatus represents the lifecycle status of a fundraise record
type RecordStatus string

const (
	RecordStatusPending    RecordStatus = "pending"
	RecordStatusProcessing RecordStatus = "processing"
	RecordStatusCompleted  RecordStatus = "completed"
	RecordStatusError      RecordStatus = "error"
)

// CanTransitionTo reports whether a record may move from s to next.
// Only pending -> processing -> {completed, error} is allowed.
func (s RecordStatus) CanTransitionTo(next RecordStatus) bool {
	switch s {
	case RecordStatusPending:
		return next == RecordStatusProcessing
	case RecordStatusProcessing:
		return next == RecordStatusCompleted || next == RecordStatusError
	default:
		return false
	}
}

// IsTerminal reports whether the status ends the lifecycle
func (s RecordStatus) IsTerminal() bool {
	return s == RecordStatusCompleted || s == RecordStatusError
}

// FundraiseRecord represents a row of the fundraises table
// @Description Funding round record enriched with press URLs, amount and investor contacts
type FundraiseRecord struct {
	ID               string       `json:"id" badgerhold:"key"`
	CompanyName      string       `json:"company_name" validate:"required"`
	RaiseDate        string       `json:"raise_date,omitempty"`
	AmountRaised     string       `json:"amount_raised,omitempty"`
	KnownInvestors   string       `json:"investors,omitempty"`
	PressURL1        string       `json:"press_url_1,omitempty"`
	PressURL2        string       `json:"press_url_2,omitempty"`
	PressURL3        string       `json:"press_url_3,omitempty"`
	InvestorContacts string       `json:"investor_contacts,omitempty"`
	Status           RecordStatus `json:"status" badgerhold:"index"`
	ErrorMessage     *string      `json:"error_message,omitempty"`
	CreatedAt        time.Time    `json:"created_at,omitempty"`
	StartedAt        *time.Time   `json:"started_at,omitempty"`
	CompletedAt      *time.Time   `json:"completed_at,omitempty"`
}

// PressURLs returns the three press URL slots in order
func (r *FundraiseRecord) PressURLs() []string {
	return []string{r.PressURL1, r.PressURL2, r.PressURL3}
}

// SetPressURLs fills the three slots, padding with N/A
func (r *FundraiseRecord) SetPressURLs(urls []string) {
	slots := PadURLs(urls)
	r.PressURL1, r.PressURL2, r.PressURL3 = slots[0], slots[1], slots[2]
}

// EnrichmentOutcome is what one orchestrator run produces for a record
type EnrichmentOutcome struct {
	PressURLs        []string `json:"press_urls"`
	InvestorContacts string   `json:"investor_contacts"`
	AmountRaised     string   `json:"amount_raised"`
	UsedFallback     bool     `json:"used_fallback"`
}

// Apply copies the outcome fields onto a record
func (o *EnrichmentOutcome) Apply(r *FundraiseRecord) {
	r.SetPressURLs(o.PressURLs)
	r.InvestorContacts = NormalizeField(o.InvestorContacts)
	r.AmountRaised = NormalizeField(o.AmountRaised)
}

// NewPendingRecord builds a record in its initial state
func NewPendingRecord(id, company, raiseDate, amount, investors string) *FundraiseRecord {
	return &FundraiseRecord{
		ID:               id,
		CompanyName:      strings.TrimSpace(company),
		RaiseDate:        strings.TrimSpace(raiseDate),
		AmountRaised:     strings.TrimSpace(amount),
		KnownInvestors:   strings.TrimSpace(investors),
		PressURL1:        NotAvailable,
		PressURL2:        NotAvailable,
		PressURL3:        NotAvailable,
		InvestorContacts: NotAvailable,
		Status:           RecordStatusPending,
		CreatedAt:        time.Now().UTC(),
	}
}

// IsNotAvailable reports whether v carries no usable value
func IsNotAvailable(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, NotAvailable) || strings.EqualFold(v, "n.a.") || strings.EqualFold(v, "none")
}

// NormalizeField maps every "no value" spelling to N/A
func NormalizeField(v string) string {
	if IsNotAvailable(v) {
		return NotAvailable
	}
	return strings.TrimSpace(v)
}

// PadURLs returns exactly MaxPressURLs slots, N/A where missing
func PadURLs(urls []string) []string {
	slots := make([]string, 0, MaxPressURLs)
	for _, u := range urls {
		if len(slots) == MaxPressURLs {
			break
		}
		if IsNotAvailable(u) {
			continue
		}
		slots = append(slots, strings.TrimSpace(u))
	}
	for len(slots) < MaxPressURLs {
		slots = append(slots, NotAvailable)
	}
	return slots
}

// InvestorContact is a single "Full Name (Firm Name)" entry
type InvestorContact struct {
	Name string `json:"name"`
	Firm string `json:"firm"`
}

func (c InvestorContact) String() string {
	return c.Name + " (" + c.Firm + ")"
}

var investorContactPattern = regexp.MustCompile(`([^,()]+?)\s*\(([^()]+)\)`)

// ParseInvestorContacts parses "Name (Firm), Name (Firm)" into pairs.
// Entries without a firm in parentheses are skipped.
func ParseInvestorContacts(s string) []InvestorContact {
	if IsNotAvailable(s) {
		return nil
	}
	var contacts []InvestorContact
	for _, m := range investorContactPattern.FindAllStringSubmatch(s, -1) {
		name := strings.Trim(strings.TrimSpace(m[1]), `"'-•*;`)
		name = strings.TrimSpace(strings.TrimPrefix(name, "and "))
		firm := strings.TrimSpace(m[2])
		if name == "" || firm == "" {
			continue
		}
		contacts = append(contacts, InvestorContact{Name: name, Firm: firm})
	}
	return contacts
}

// FormatInvestorContacts renders pairs back into the display convention
func FormatInvestorContacts(contacts []InvestorContact) string {
	if len(contacts) == 0 {
		return NotAvailable
	}
	parts := make([]string, 0, len(contacts))
	seen := make(map[string]bool)
	for _, c := range contacts {
		key := strings.ToLower(c.String())
		if seen[key] {
			continue
		}
		seen[key] = true
		parts = append(parts, c.String())
	}
	return strings.Join(parts, ", ")
}

var (
	currencyPattern  = regexp.MustCompile(`(?i)[$€£¥₹]|\b(usd|eur|gbp|jpy|inr|cad|aud|chf|sgd|dollars?|euros?|pounds?)\b`)
	magnitudePattern = regexp.MustCompile(`\d`)
)

// IsValidAmount reports whether an amount carries a currency marker and a magnitude
func IsValidAmount(amount string) bool {
	if IsNotAvailable(amount) {
		return false
	}
	return currencyPattern.MatchString(amount) && magnitudePattern.MatchString(amount)
}
