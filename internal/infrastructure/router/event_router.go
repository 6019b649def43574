package router

import (
	"context"
	"fmt"
	"sync"
	"time"

	"repairdesk-service/internal/domain/entity"
	"repairdesk-service/internal/usecase"
	"repairdesk-service/pkg/logger"
)

const deliveryTimeout = 30 * time.Second

// EventRouter routes domain events to every handler that accepts them.
// Publish is asynchronous and best-effort: handler failures are logged, never returned.
type EventRouter struct {
	mu       sync.RWMutex
	handlers []usecase.EventHandler
	logger   logger.Logger
	wg       sync.WaitGroup
	closed   bool
}

// NewEventRouter creates a new event router
func NewEventRouter(logger logger.Logger) *EventRouter {
	return &EventRouter{
		handlers: make([]usecase.EventHandler, 0),
		logger:   logger,
	}
}

// Register registers a handler
func (r *EventRouter) Register(handler usecase.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers = append(r.handlers, handler)
	r.logger.Info("Registered event handler", "handler", fmt.Sprintf("%T", handler))
}

// GetHandlers returns the handlers interested in event
func (r *EventRouter) GetHandlers(event entity.DomainEvent) []usecase.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []usecase.EventHandler
	for _, handler := range r.handlers {
		if handler.CanHandle(event) {
			matched = append(matched, handler)
		}
	}
	return matched
}

// Publish delivers events in order on a background goroutine.
// The caller's cancellation does not stop delivery.
func (r *EventRouter) Publish(ctx context.Context, events ...entity.DomainEvent) {
	if len(events) == 0 {
		return
	}

	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		r.logger.Warn("Event router is shut down, dropping events", "count", len(events))
		return
	}
	r.wg.Add(1)
	r.mu.RUnlock()

	detached := context.WithoutCancel(ctx)
	go func() {
		defer r.wg.Done()
		for _, event := range events {
			r.deliver(detached, event)
		}
	}()
}

func (r *EventRouter) deliver(ctx context.Context, event entity.DomainEvent) {
	for _, handler := range r.GetHandlers(event) {
		hctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
		err := handler.Handle(hctx, event)
		cancel()
		if err != nil {
			r.logger.Error("Event handler failed",
				"handler", fmt.Sprintf("%T", handler),
				"eventID", event.EventID,
				"action", event.Action,
				"ticketID", event.TicketID,
				"error", err)
		}
	}
}

// Shutdown stops accepting events and waits for in-flight deliveries or ctx expiry
func (r *EventRouter) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event delivery still in flight: %w", ctx.Err())
	}
}
