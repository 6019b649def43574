package usecase

import (
	"context"

	"repairdesk-service/internal/domain/entity"
)

// EventHandler defines the interface for domain event consumers
type EventHandler interface {
	// CanHandle determines if this handler consumes the given event
	CanHandle(event entity.DomainEvent) bool

	// Handle processes the event
	Handle(ctx context.Context, event entity.DomainEvent) error
}

// EventRouter routes committed events to every interested handler
type EventRouter interface {
	// Register registers a handler
	Register(handler EventHandler)

	// GetHandlers returns the handlers interested in event, in registration order
	GetHandlers(event entity.DomainEvent) []EventHandler
}
