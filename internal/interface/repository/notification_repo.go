package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"repairdesk-service/internal/domain/entity"
	"repairdesk-service/internal/domain/repository"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoNotificationRepository implements the NotificationRepository interface
type MongoNotificationRepository struct {
	collection *mongo.Collection
}

// NewMongoNotificationRepository creates a new MongoDB notification outbox
func NewMongoNotificationRepository(db *mongo.Database) repository.NotificationRepository {
	collection := db.Collection("notifications")

	ctx := context.Background()

	// One notification per event and channel
	eventChannelIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "eventId", Value: 1},
			{Key: "channel", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	}

	// Compound index for the retry scan
	retryIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "status", Value: 1},
			{Key: "createdAt", Value: 1},
		},
	}

	ticketIndex := mongo.IndexModel{
		Keys: bson.M{"ticketId": 1},
	}

	collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		eventChannelIndex,
		retryIndex,
		ticketIndex,
	})

	return &MongoNotificationRepository{
		collection: collection,
	}
}

// Save inserts a notification, defaulting it to PENDING
func (r *MongoNotificationRepository) Save(ctx context.Context, n *entity.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Status == "" {
		n.Status = entity.NotificationPending
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	_, err := r.collection.InsertOne(ctx, n)
	if err != nil {
		return fmt.Errorf("failed to save notification: %w", err)
	}
	return nil
}

// FindByID finds a notification by id
func (r *MongoNotificationRepository) FindByID(ctx context.Context, id string) (*entity.Notification, error) {
	var n entity.Notification
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&n)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

// UpdateStatus updates the status and, for PROCESSING, the start time
func (r *MongoNotificationRepository) UpdateStatus(ctx context.Context, id string, status string, startedAt time.Time) error {
	update := bson.M{
		"$set": bson.M{
			"status": status,
		},
	}

	// Only set processStartedAt when moving to PROCESSING
	if status == entity.NotificationProcessing && !startedAt.IsZero() {
		update["$set"].(bson.M)["processStartedAt"] = startedAt
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("no notification found with id: %s", id)
	}
	return nil
}

// MarkSent records a successful delivery
func (r *MongoNotificationRepository) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	update := bson.M{
		"$set": bson.M{
			"status":      entity.NotificationSent,
			"sentAt":      sentAt,
			"errorDetail": "",
		},
		"$inc": bson.M{"attempts": 1},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to mark as sent: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("no notification found with id: %s", id)
	}
	return nil
}

// MarkFailed records a failed delivery attempt
func (r *MongoNotificationRepository) MarkFailed(ctx context.Context, id string, errorDetail string) error {
	update := bson.M{
		"$set": bson.M{
			"status":      entity.NotificationFailed,
			"errorDetail": errorDetail,
		},
		"$inc": bson.M{"attempts": 1},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to mark as failed: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("no notification found with id: %s", id)
	}
	return nil
}

// ResetProcessing moves notifications stuck in PROCESSING back to PENDING
func (r *MongoNotificationRepository) ResetProcessing(ctx context.Context, cutoff time.Time) (int64, error) {
	filter := bson.M{
		"status": entity.NotificationProcessing,
		"$or": []bson.M{
			{"processStartedAt": bson.M{"$lt": cutoff}},
			{"processStartedAt": bson.M{"$exists": false}},
		},
	}

	update := bson.M{
		"$set": bson.M{
			"status":      entity.NotificationPending,
			"errorDetail": "Reset from stale PROCESSING state",
		},
	}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to reset processing notifications: %w", err)
	}
	return result.ModifiedCount, nil
}

// FindRetryable finds PENDING or FAILED notifications below the attempt limit, oldest first
func (r *MongoNotificationRepository) FindRetryable(ctx context.Context, maxAttempts int, limit int) ([]*entity.Notification, error) {
	filter := bson.M{
		"status":   bson.M{"$in": []string{entity.NotificationPending, entity.NotificationFailed}},
		"attempts": bson.M{"$lt": maxAttempts},
	}

	limit64 := int64(limit)
	cursor, err := r.collection.Find(ctx, filter, &options.FindOptions{
		Limit: &limit64,
		Sort:  bson.D{{Key: "createdAt", Value: 1}},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var notifications []*entity.Notification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}
