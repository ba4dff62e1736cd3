package ports

import (
	"avena-triage-core/internal/domain"
)

// TokenStore is the single source of truth for "is this store usable right
// now". Implementations must serialize writes per store while keeping reads
// for unrelated stores unblocked, and must survive process restart.
type TokenStore interface {
	// Get returns the current credential for a store, or
	// domain.ErrNotConnected when none exists, the record was invalidated,
	// or the credential expired.
	Get(storeID string) (*domain.Credential, error)

	// Put atomically upserts the credential for one store. Other stores'
	// records are untouched.
	Put(storeID string, cred *domain.Credential) error

	// Invalidate marks the store unusable. The record is kept for audit but
	// Get fails afterwards.
	Invalidate(storeID string) error

	// ListConnected returns the ids of every store currently usable by the
	// resolver.
	ListConnected() []string
}
