package repository

import (
	"context"
	"fmt"
	"time"

	"avena-triage-core/internal/domain"
	"avena-triage-core/internal/infrastructure/repository/entity"
	"avena-triage-core/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoCaseRepository implements CaseRepository using MongoDB.
type MongoCaseRepository struct {
	collection *mongo.Collection
}

// NewMongoCaseRepository creates a new MongoDB case repository.
func NewMongoCaseRepository(db *mongo.Database) ports.CaseRepository {
	repo := &MongoCaseRepository{collection: db.Collection("email_cases")}

	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "messageId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	_, _ = repo.collection.Indexes().CreateOne(context.Background(), indexModel)

	return repo
}

// Save upserts a case keyed by its id.
func (r *MongoCaseRepository) Save(ctx context.Context, c *domain.EmailCase) error {
	doc := entity.MongoCaseDocFromDomain(c)
	doc.UpdatedAt = time.Now()

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"_id": c.ID}
	update := bson.M{"$set": doc}

	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to save case: %w", err)
	}
	return nil
}

// GetByMessageID retrieves the case for an inbound message id.
func (r *MongoCaseRepository) GetByMessageID(ctx context.Context, messageID string) (*domain.EmailCase, error) {
	var doc entity.MongoCaseDoc
	err := r.collection.FindOne(ctx, bson.M{"messageId": messageID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get case: %w", err)
	}
	return doc.ToDomain(), nil
}

// List returns cases filtered by disposition, newest first.
func (r *MongoCaseRepository) List(ctx context.Context, disposition domain.Disposition, limit int) ([]*domain.EmailCase, error) {
	filter := bson.M{}
	if disposition != "" {
		filter["disposition"] = string(disposition)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "receivedAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}
	defer cursor.Close(ctx)

	var cases []*domain.EmailCase
	for cursor.Next(ctx) {
		var doc entity.MongoCaseDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode case: %w", err)
		}
		cases = append(cases, doc.ToDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return cases, nil
}

// CountByDisposition aggregates case counts for the stats endpoint.
func (r *MongoCaseRepository) CountByDisposition(ctx context.Context) (map[domain.Disposition]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   "$disposition",
			"count": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate cases: %w", err)
	}
	defer cursor.Close(ctx)

	counts := make(map[domain.Disposition]int64)
	for cursor.Next(ctx) {
		var row struct {
			ID    string `bson:"_id"`
			Count int64  `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("failed to decode count: %w", err)
		}
		counts[domain.Disposition(row.ID)] = row.Count
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return counts, nil
}
