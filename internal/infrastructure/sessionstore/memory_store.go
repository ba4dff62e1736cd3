package sessionstore

import (
	"context"
	"sync"
	"time"

	"avena-triage-core/internal/domain"
)

// MemoryStore is an in-process SessionStore for tests and single-node runs
// without Redis.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.OAuthSession
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*domain.OAuthSession)}
}

// Create implements ports.SessionStore.
func (s *MemoryStore) Create(_ context.Context, session *domain.OAuthSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.sessions[session.StoreID]; ok && existing.Live(time.Now()) {
		return domain.ErrAlreadyPending
	}
	copied := *session
	s.sessions[session.StoreID] = &copied
	return nil
}

// Consume implements ports.SessionStore.
func (s *MemoryStore) Consume(_ context.Context, storeID string) (*domain.OAuthSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[storeID]
	if !ok {
		return nil, domain.ErrSessionExpired
	}
	delete(s.sessions, storeID)
	if !session.Live(time.Now()) {
		return nil, domain.ErrSessionExpired
	}
	return session, nil
}
