package domain

import "errors"

// OAuth and credential lifecycle failures.
var (
	ErrNotConnected      = errors.New("store not connected")
	ErrAlreadyPending    = errors.New("authorization flow already pending for store")
	ErrSessionExpired    = errors.New("oauth session expired or already consumed")
	ErrNonceMismatch     = errors.New("oauth state nonce mismatch")
	ErrInsufficientScope = errors.New("granted scopes missing a required scope")
	ErrExchangeFailed    = errors.New("token exchange failed")
	ErrBadCallback       = errors.New("oauth callback missing required parameter")
)

// Dispatch and registry failures.
var (
	ErrSendFailed    = errors.New("reply dispatch failed")
	ErrStoreNotFound = errors.New("store not registered")
	ErrDuplicateCase = errors.New("message already processed")
)

// RateLimitedError marks a per-store lookup rejected by the platform's rate
// limiter. The resolver retries it once before skipping the store.
type RateLimitedError struct {
	RetryAfter float64 // seconds, 0 when the platform gave no hint
}

func (e *RateLimitedError) Error() string {
	return "storefront api rate limited"
}
