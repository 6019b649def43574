package usecase

import (
	"context"
	"fmt"
	"time"

	"repairdesk-service/internal/domain/entity"
	"repairdesk-service/internal/domain/repository"
	"repairdesk-service/pkg/logger"
	"repairdesk-service/pkg/metrics"
)

const (
	staleProcessingAfter = 5 * time.Minute
	pendingBatchSize     = 100
)

// NotificationProcessor delivers outbox notifications over their channels
type NotificationProcessor struct {
	notificationRepo repository.NotificationRepository
	notifiers        map[string]repository.Notifier
	metrics          *metrics.Metrics
	logger           logger.Logger
	maxAttempts      int
	now              func() time.Time
}

// NewNotificationProcessor creates a new notification processor
func NewNotificationProcessor(
	notificationRepo repository.NotificationRepository,
	metrics *metrics.Metrics,
	logger logger.Logger,
	maxAttempts int,
	notifiers ...repository.Notifier,
) *NotificationProcessor {
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	byChannel := make(map[string]repository.Notifier, len(notifiers))
	for _, n := range notifiers {
		byChannel[n.Channel()] = n
	}
	return &NotificationProcessor{
		notificationRepo: notificationRepo,
		notifiers:        byChannel,
		metrics:          metrics,
		logger:           logger,
		maxAttempts:      maxAttempts,
		now:              time.Now,
	}
}

// HasChannel reports whether a notifier is configured for channel
func (p *NotificationProcessor) HasChannel(channel string) bool {
	_, ok := p.notifiers[channel]
	return ok
}

// Enqueue stores a notification in the outbox and attempts delivery immediately
func (p *NotificationProcessor) Enqueue(ctx context.Context, n *entity.Notification) error {
	if err := p.notificationRepo.Save(ctx, n); err != nil {
		return err
	}
	return p.Deliver(ctx, n)
}

// Deliver sends one notification. A send failure is recorded on the notification, not returned.
func (p *NotificationProcessor) Deliver(ctx context.Context, n *entity.Notification) error {
	notifier, ok := p.notifiers[n.Channel]
	if !ok {
		p.logger.Warn("No notifier for channel",
			"notificationID", n.ID,
			"channel", n.Channel)
		return p.notificationRepo.MarkFailed(ctx, n.ID, fmt.Sprintf("no notifier configured for channel %s", n.Channel))
	}

	// Mark as processing
	if err := p.notificationRepo.UpdateStatus(ctx, n.ID, entity.NotificationProcessing, p.now()); err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	if err := notifier.Send(ctx, n); err != nil {
		p.metrics.ErrorsCount.WithLabelValues("send_" + n.Channel).Inc()
		p.logger.Error("Failed to send notification",
			"notificationID", n.ID,
			"ticketNumber", n.TicketNumber,
			"channel", n.Channel,
			"attempt", n.Attempts+1,
			"error", err)

		// Mark as failed but don't return error - let other notifications continue
		if err := p.notificationRepo.MarkFailed(ctx, n.ID, err.Error()); err != nil {
			p.logger.Error("Failed to mark notification as failed", "notificationID", n.ID, "error", err)
		}
		return nil
	}

	if err := p.notificationRepo.MarkSent(ctx, n.ID, p.now()); err != nil {
		return fmt.Errorf("failed to mark as sent: %w", err)
	}
	p.metrics.NotificationsSent.WithLabelValues(n.Channel).Inc()
	p.logger.Info("Notification sent",
		"notificationID", n.ID,
		"ticketNumber", n.TicketNumber,
		"channel", n.Channel)
	return nil
}

// ProcessPending retries notifications that were missed or failed
func (p *NotificationProcessor) ProcessPending(ctx context.Context) error {
	// Reset stale processing notifications
	reset, err := p.notificationRepo.ResetProcessing(ctx, p.now().Add(-staleProcessingAfter))
	if err != nil {
		p.logger.Error("Failed to reset stale notifications", "error", err)
	} else if reset > 0 {
		p.logger.Info("Reset stale processing notifications", "count", reset)
	}

	pending, err := p.notificationRepo.FindRetryable(ctx, p.maxAttempts, pendingBatchSize)
	if err != nil {
		return fmt.Errorf("failed to find pending notifications: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	p.logger.Info("Processing pending notifications", "count", len(pending))

	for _, n := range pending {
		if err := p.Deliver(ctx, n); err != nil {
			p.logger.Error("Failed to process pending notification",
				"notificationID", n.ID,
				"error", err)
		}
	}
	return nil
}
