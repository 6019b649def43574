package templates

import (
	"context"
	"errors"
	"fmt"

	"repairdesk-service/internal/domain/entity"
	"repairdesk-service/internal/domain/repository"
	"repairdesk-service/internal/usecase"
	"repairdesk-service/pkg/logger"
)

// statusMessage holds the customer-facing text for one status
type statusMessage struct {
	subject string
	body    string
}

// Placeholders: customer name, ticket number, device
var statusMessages = map[entity.TicketStatus]statusMessage{
	entity.StatusRepaired: {
		subject: "Your repair %[2]s is ready",
		body:    "Hello %[1]s,\n\nGood news: the repair of your %[3]s (ticket %[2]s) is finished. You can pick it up during opening hours.\n\nThank you.",
	},
	entity.StatusCompleted: {
		subject: "Ticket %[2]s completed",
		body:    "Hello %[1]s,\n\nTicket %[2]s for your %[3]s is now completed. Thank you for choosing us.",
	},
	entity.StatusCancelled: {
		subject: "Ticket %[2]s cancelled",
		body:    "Hello %[1]s,\n\nTicket %[2]s for your %[3]s has been cancelled. Please contact us if you have any questions.",
	},
}

const smsTemplate = "Ticket %[2]s (%[3]s): %[4]s"

// TicketStatusNotificationHandler notifies customers when their ticket reaches a notable status
type TicketStatusNotificationHandler struct {
	tickets   repository.TicketRepository
	customers repository.CustomerRepository
	processor *usecase.NotificationProcessor
	logger    logger.Logger
}

// NewTicketStatusNotificationHandler creates a new status notification handler
func NewTicketStatusNotificationHandler(
	tickets repository.TicketRepository,
	customers repository.CustomerRepository,
	processor *usecase.NotificationProcessor,
	logger logger.Logger,
) *TicketStatusNotificationHandler {
	return &TicketStatusNotificationHandler{
		tickets:   tickets,
		customers: customers,
		processor: processor,
		logger:    logger,
	}
}

// CanHandle accepts status changes into a status customers are told about
func (h *TicketStatusNotificationHandler) CanHandle(event entity.DomainEvent) bool {
	if event.Action != entity.ActionStatusChanged {
		return false
	}
	_, ok := statusMessages[entity.TicketStatus(event.MetaString("to"))]
	return ok
}

// Handle enqueues one notification per channel the customer can be reached on
func (h *TicketStatusNotificationHandler) Handle(ctx context.Context, event entity.DomainEvent) error {
	status := entity.TicketStatus(event.MetaString("to"))
	msg := statusMessages[status]

	ticket, err := h.tickets.GetByID(ctx, event.TicketID)
	if err != nil {
		return fmt.Errorf("failed to load ticket %s: %w", event.TicketID, err)
	}
	customer, err := h.customers.GetByID(ctx, ticket.CustomerID)
	if errors.Is(err, repository.ErrNotFound) {
		h.logger.Warn("Ticket customer not found, skipping notification",
			"ticketID", ticket.ID,
			"customerID", ticket.CustomerID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load customer %s: %w", ticket.CustomerID, err)
	}

	subject := fmt.Sprintf(msg.subject, customer.Name, ticket.TicketNumber, ticket.Device)
	body := fmt.Sprintf(msg.body, customer.Name, ticket.TicketNumber, ticket.Device)

	var notifications []*entity.Notification
	if customer.Email != "" && h.processor.HasChannel(entity.ChannelEmail) {
		notifications = append(notifications, &entity.Notification{
			Channel:   entity.ChannelEmail,
			Recipient: customer.Email,
			Subject:   subject,
			Body:      body,
		})
	}
	if customer.Phone != "" && h.processor.HasChannel(entity.ChannelSMS) {
		notifications = append(notifications, &entity.Notification{
			Channel:   entity.ChannelSMS,
			Recipient: customer.Phone,
			Body:      fmt.Sprintf(smsTemplate, customer.Name, ticket.TicketNumber, ticket.Device, subject),
		})
	}

	if len(notifications) == 0 {
		h.logger.Debug("Customer has no reachable channel",
			"ticketNumber", ticket.TicketNumber,
			"customerID", customer.ID)
		return nil
	}

	var errs []error
	for _, n := range notifications {
		n.EventID = event.EventID
		n.TicketID = ticket.ID
		n.TicketNumber = ticket.TicketNumber
		n.CustomerID = customer.ID
		if err := h.processor.Enqueue(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s notification: %w", n.Channel, err))
		}
	}
	return errors.Join(errs...)
}
