package repository

import (
	"context"
	"fmt"

	"repairdesk-service/internal/domain/entity"
	"repairdesk-service/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoAuditRepository implements AuditRepository
type MongoAuditRepository struct {
	collection *mongo.Collection
}

// NewMongoAuditRepository creates a new audit event repository
func NewMongoAuditRepository(db *mongo.Database) repository.AuditRepository {
	collection := db.Collection("audit_events")

	// Create unique index on eventId so redelivery does not duplicate
	ctx := context.Background()
	indexModel := mongo.IndexModel{
		Keys:    bson.M{"eventId": 1},
		Options: options.Index().SetUnique(true),
	}
	collection.Indexes().CreateOne(ctx, indexModel)

	ticketIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "ticketId", Value: 1},
			{Key: "timestamp", Value: -1},
		},
	}
	collection.Indexes().CreateOne(ctx, ticketIndex)

	return &MongoAuditRepository{
		collection: collection,
	}
}

// Save stores an event, ignoring one that was already stored
func (r *MongoAuditRepository) Save(ctx context.Context, event *entity.DomainEvent) error {
	opts := options.Update().SetUpsert(true)
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"eventId": event.EventID},
		bson.M{"$setOnInsert": event},
		opts,
	)
	if err != nil {
		return fmt.Errorf("failed to save audit event: %w", err)
	}
	return nil
}

// FindByTicket lists a ticket's events, most recent first
func (r *MongoAuditRepository) FindByTicket(ctx context.Context, ticketID string, limit int) ([]*entity.DomainEvent, error) {
	limit64 := int64(limit)
	cursor, err := r.collection.Find(ctx, bson.M{"ticketId": ticketID}, &options.FindOptions{
		Limit: &limit64,
		Sort:  bson.D{{Key: "timestamp", Value: -1}},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []*entity.DomainEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}
