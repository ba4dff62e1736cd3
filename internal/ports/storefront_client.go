package ports

import (
	"context"

	"avena-triage-core/internal/domain"
)

// TokenExchange is the outcome of trading an authorization code for a
// credential. GrantedScopes is what the merchant actually approved, which
// may be narrower than what was requested.
type TokenExchange struct {
	AccessToken   string
	GrantedScopes []string
}

// StorefrontClient abstracts the e-commerce platform's admin API for one
// call at a time; the store and its credential are always explicit so no
// tenant's token can leak into another tenant's request.
type StorefrontClient interface {
	// AuthorizeURL builds the OAuth authorization redirect target embedding
	// the anti-forgery state nonce.
	AuthorizeURL(shop string, scopes []string, redirectURI, state string) string

	// ExchangeToken trades an authorization code for an access token at the
	// shop's token endpoint.
	ExchangeToken(ctx context.Context, shop, code string) (*TokenExchange, error)

	// ValidateToken makes a lightweight call to check a credential still
	// works. Returns false (not an error) when the platform rejects it.
	ValidateToken(ctx context.Context, shop, accessToken string) (bool, error)

	// FindOrderByNumber looks up one order by its human-readable number.
	// Returns nil without error when the store has no such order.
	FindOrderByNumber(ctx context.Context, shop, accessToken, number string) (*domain.Order, error)

	// FindOrdersByEmail returns the customer's most recent orders, newest
	// first, bounded by limit.
	FindOrdersByEmail(ctx context.Context, shop, accessToken, email string, limit int) ([]domain.Order, error)
}
