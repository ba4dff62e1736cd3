package ports

import (
	"context"

	"avena-triage-core/internal/domain"
)

// StoreRegistry catalogs the storefront tenants the system knows about.
type StoreRegistry interface {
	// Register creates or updates a store record.
	Register(ctx context.Context, store *domain.Store) error

	// Get retrieves a store by id; returns domain.ErrStoreNotFound when the
	// store was never registered.
	Get(ctx context.Context, storeID string) (*domain.Store, error)

	// List returns every registered store.
	List(ctx context.Context) ([]*domain.Store, error)

	// UpdateStatus transitions a store's connection status.
	UpdateStatus(ctx context.Context, storeID string, status domain.ConnectionStatus) error

	// Delete removes a store from the catalog.
	Delete(ctx context.Context, storeID string) error
}
