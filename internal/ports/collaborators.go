package ports

import (
	"context"

	"avena-triage-core/internal/domain"
)

// MailSender dispatches an approved reply. The decision engine only
// authorizes a send; this collaborator performs it.
type MailSender interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// ReplyDrafter asks the language-model collaborator for a reply draft given
// the inbound message and whatever order context resolution produced.
type ReplyDrafter interface {
	Draft(ctx context.Context, c *domain.EmailCase, resolution *domain.ResolvedOrder) (string, error)
}

// TrackingProvider enriches a resolved order with live parcel tracking when
// the storefront record carries none.
type TrackingProvider interface {
	TrackingByOrder(ctx context.Context, storeID, orderNumber string) (*domain.TrackingInfo, error)
}
