package domain

import "time"

// SessionTTL bounds how long an authorization flow may stay open.
const SessionTTL = 10 * time.Minute

// OAuthSession is the ephemeral record of one in-flight authorization flow.
// At most one live session exists per store; the nonce is the anti-forgery
// state parameter echoed back by the platform on callback.
type OAuthSession struct {
	StoreID   string    `json:"store_id"`
	Nonce     string    `json:"nonce"`
	Scopes    []string  `json:"scopes"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Live reports whether the session is still usable at the given instant.
func (s *OAuthSession) Live(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}
