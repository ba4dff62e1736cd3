package ports

import (
	"context"

	"avena-triage-core/internal/domain"
)

// SessionStore keeps the ephemeral OAuth sessions. At most one live session
// exists per store; sessions expire on their own after domain.SessionTTL.
type SessionStore interface {
	// Create stores a new session for its store. Fails with
	// domain.ErrAlreadyPending when a live session already exists.
	Create(ctx context.Context, session *domain.OAuthSession) error

	// Consume atomically removes and returns the live session for a store.
	// Returns domain.ErrSessionExpired when there is none or it has expired.
	// A second Consume for the same session always fails.
	Consume(ctx context.Context, storeID string) (*domain.OAuthSession, error)
}
