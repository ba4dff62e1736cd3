package registry

import (
	"context"
	"fmt"
	"time"

	"avena-triage-core/internal/domain"
	"avena-triage-core/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRegistry implements StoreRegistry using MongoDB.
type MongoRegistry struct {
	collection *mongo.Collection
}

// NewMongoRegistry creates a new MongoDB store registry.
func NewMongoRegistry(db *mongo.Database) ports.StoreRegistry {
	return &MongoRegistry{collection: db.Collection("stores")}
}

// Register saves or updates a store record.
func (r *MongoRegistry) Register(ctx context.Context, store *domain.Store) error {
	store.UpdatedAt = time.Now()
	if store.CreatedAt.IsZero() {
		store.CreatedAt = time.Now()
	}

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"_id": store.ID}
	update := bson.M{"$set": store}

	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to register store: %w", err)
	}
	return nil
}

// Get retrieves a store by id.
func (r *MongoRegistry) Get(ctx context.Context, storeID string) (*domain.Store, error) {
	var store domain.Store
	err := r.collection.FindOne(ctx, bson.M{"_id": storeID}).Decode(&store)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrStoreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get store: %w", err)
	}
	return &store, nil
}

// List retrieves all registered stores.
func (r *MongoRegistry) List(ctx context.Context) ([]*domain.Store, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}
	defer cursor.Close(ctx)

	var stores []*domain.Store
	for cursor.Next(ctx) {
		var store domain.Store
		if err := cursor.Decode(&store); err != nil {
			return nil, fmt.Errorf("failed to decode store: %w", err)
		}
		stores = append(stores, &store)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return stores, nil
}

// UpdateStatus transitions a store's connection status.
func (r *MongoRegistry) UpdateStatus(ctx context.Context, storeID string, status domain.ConnectionStatus) error {
	update := bson.M{"$set": bson.M{
		"status":     status,
		"updated_at": time.Now(),
	}}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": storeID}, update)
	if err != nil {
		return fmt.Errorf("failed to update store status: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrStoreNotFound
	}
	return nil
}

// Delete removes a store from the catalog.
func (r *MongoRegistry) Delete(ctx context.Context, storeID string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": storeID})
	if err != nil {
		return fmt.Errorf("failed to delete store: %w", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrStoreNotFound
	}
	return nil
}
