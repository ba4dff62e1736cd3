package domain

import "time"

// Credential is the OAuth access artifact for exactly one store.
type Credential struct {
	StoreID       string     `json:"store_id"`
	AccessToken   string     `json:"access_token"`
	Scopes        []string   `json:"scopes"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"` // nil for non-expiring tokens
	IssuedAt      time.Time  `json:"issued_at"`
	LastValidated time.Time  `json:"last_validated"`
}

// Expired reports whether the credential carries an expiry that has passed.
func (c *Credential) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// HasScopes reports whether the credential covers every required scope.
func (c *Credential) HasScopes(required []string) bool {
	granted := make(map[string]struct{}, len(c.Scopes))
	for _, s := range c.Scopes {
		granted[s] = struct{}{}
	}
	for _, s := range required {
		if _, ok := granted[s]; !ok {
			return false
		}
	}
	return true
}
