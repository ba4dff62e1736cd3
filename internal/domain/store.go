package domain

import "time"

// ConnectionStatus describes whether a store can currently be queried.
type ConnectionStatus string

const (
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusPendingAuth  ConnectionStatus = "pending_auth"
	StatusConnected    ConnectionStatus = "connected"
	StatusInvalid      ConnectionStatus = "invalid"
)

// Store represents one independently-credentialed storefront tenant.
// The ID is a stable slug (the myshopify subdomain, e.g. "avena-paris").
type Store struct {
	ID             string           `json:"id" bson:"_id"`
	OrganizationID string           `json:"organization_id" bson:"organization_id"`
	Domain         string           `json:"domain" bson:"domain"` // full shop domain, e.g. avena-paris.myshopify.com
	Scopes         []string         `json:"scopes" bson:"scopes"`
	Status         ConnectionStatus `json:"status" bson:"status"`
	CreatedAt      time.Time        `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at" bson:"updated_at"`
}

// NormalizeStoreID strips the platform suffix so "avena-paris.myshopify.com"
// and "avena-paris" key the same record.
func NormalizeStoreID(shop string) string {
	const suffix = ".myshopify.com"
	if len(shop) > len(suffix) && shop[len(shop)-len(suffix):] == suffix {
		return shop[:len(shop)-len(suffix)]
	}
	return shop
}

// ShopDomain returns the full platform domain for a store id or domain.
func ShopDomain(shop string) string {
	const suffix = ".myshopify.com"
	if len(shop) >= len(suffix) && shop[len(shop)-len(suffix):] == suffix {
		return shop
	}
	return shop + suffix
}
