package ports

import (
	"context"

	"avena-triage-core/internal/domain"
)

// CaseRepository persists email cases.
type CaseRepository interface {
	// Save upserts a case keyed by its id.
	Save(ctx context.Context, c *domain.EmailCase) error

	// GetByMessageID returns the case for an inbound message id, or nil
	// when the message has never been processed.
	GetByMessageID(ctx context.Context, messageID string) (*domain.EmailCase, error)

	// List returns up to limit cases with the given disposition, newest
	// first. An empty disposition matches all cases.
	List(ctx context.Context, disposition domain.Disposition, limit int) ([]*domain.EmailCase, error)

	// CountByDisposition aggregates case counts for the stats endpoint.
	CountByDisposition(ctx context.Context) (map[domain.Disposition]int64, error)
}
