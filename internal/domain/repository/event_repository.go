package repository

import (
	"context"
	"time"

	"repairdesk-service/internal/domain/entity"
)

// EventPublisher delivers committed domain events to downstream consumers
type EventPublisher interface {
	Publish(ctx context.Context, events ...entity.DomainEvent)
}

// AuditRepository stores domain events for audit
type AuditRepository interface {
	Save(ctx context.Context, event *entity.DomainEvent) error
	FindByTicket(ctx context.Context, ticketID string, limit int) ([]*entity.DomainEvent, error)
}

// NotificationRepository defines the notification outbox operations
type NotificationRepository interface {
	Save(ctx context.Context, n *entity.Notification) error
	FindByID(ctx context.Context, id string) (*entity.Notification, error)
	UpdateStatus(ctx context.Context, id string, status string, startedAt time.Time) error
	MarkSent(ctx context.Context, id string, sentAt time.Time) error
	MarkFailed(ctx context.Context, id string, errorDetail string) error
	// ResetProcessing returns notifications stuck in PROCESSING since before cutoff to PENDING
	ResetProcessing(ctx context.Context, cutoff time.Time) (int64, error)
	FindRetryable(ctx context.Context, maxAttempts int, limit int) ([]*entity.Notification, error)
}

// Notifier sends a notification over one channel
type Notifier interface {
	Channel() string
	Send(ctx context.Context, n *entity.Notification) error
}
