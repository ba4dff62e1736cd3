package domain

import "time"

// Order carries the slice of a storefront order the triage pipeline needs:
// identity, customer, fulfillment state and tracking.
type Order struct {
	StoreID           string     `json:"store_id"`
	ID                int64      `json:"id"`
	Number            string     `json:"number"` // human-readable, without the "#" prefix
	Email             string     `json:"email"`
	FinancialStatus   string     `json:"financial_status"`
	FulfillmentStatus string     `json:"fulfillment_status"`
	TrackingNumber    string     `json:"tracking_number,omitempty"`
	TrackingURL       string     `json:"tracking_url,omitempty"`
	TotalPrice        string     `json:"total_price,omitempty"`
	Currency          string     `json:"currency,omitempty"`
	CreatedAt         *time.Time `json:"created_at,omitempty"`
}

// OrderCandidate is what the classifier extracted from an inbound email
// before any store has been consulted. Not store-scoped.
type OrderCandidate struct {
	Number string `json:"number,omitempty"` // raw identifier, may include a "#" prefix
	Email  string `json:"email,omitempty"`  // customer address from the envelope
}

// Empty reports whether the candidate gives the resolver anything to work with.
func (c OrderCandidate) Empty() bool {
	return c.Number == "" && c.Email == ""
}

// ConfidenceTier ranks how an order was matched.
type ConfidenceTier string

const (
	ConfidenceExactID   ConfidenceTier = "exact-id"
	ConfidenceEmailOnly ConfidenceTier = "email-only"
	ConfidenceNone      ConfidenceTier = "none"
)

// SkippedStore records a tenant that could not be consulted during one
// resolution. Skips are data, never fatal to the resolution.
type SkippedStore struct {
	StoreID string `json:"store_id"`
	Reason  string `json:"reason"`
}

// ResolvedOrder is the immutable outcome of one resolution pass. When more
// than one store produced a plausible match, Competing holds every match and
// the result must be treated as unresolved downstream.
type ResolvedOrder struct {
	Confidence ConfidenceTier `json:"confidence"`
	Order      *Order         `json:"order,omitempty"`     // nil when Confidence is none
	Competing  []Order        `json:"competing,omitempty"` // non-empty means ambiguous
	Skipped    []SkippedStore `json:"skipped,omitempty"`
}

// Unique reports whether the resolution identified exactly one order in
// exactly one store. Only unique resolutions are eligible for auto-send.
func (r *ResolvedOrder) Unique() bool {
	return r != nil && r.Confidence != ConfidenceNone && r.Order != nil && len(r.Competing) == 0
}
