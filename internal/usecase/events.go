package usecase

import (
	"fmt"
	"time"

	"repairdesk-service/internal/domain/entity"
	"repairdesk-service/internal/domain/lifecycle"
)

type eventFactory struct {
	newID func() string
	actor entity.Actor
	name  string
	now   time.Time
}

func (f eventFactory) ticketEvent(t *entity.Ticket, action, summary string, meta map[string]interface{}) entity.DomainEvent {
	return entity.DomainEvent{
		EventID:    f.newID(),
		EntityType: entity.EntityTicket,
		EntityID:   t.ID,
		Action:     action,
		ActorID:    f.actor.UserID,
		ActorName:  f.name,
		Timestamp:  f.now,
		Summary:    summary,
		Meta:       meta,
		CustomerID: t.CustomerID,
		TicketID:   t.ID,
	}
}

// updateEvents describes a committed update, one event per kind of change
func (f eventFactory) updateEvents(before *entity.Ticket, res *UpdateResult, price *lifecycle.PriceOutcome, fields []string) []entity.DomainEvent {
	t := res.Ticket
	var events []entity.DomainEvent

	if res.History != nil {
		events = append(events, f.ticketEvent(t, entity.ActionStatusChanged,
			fmt.Sprintf("Ticket %s moved from %s to %s", t.TicketNumber, before.Status, t.Status),
			map[string]interface{}{
				"from":  string(before.Status),
				"to":    string(t.Status),
				"notes": res.History.Notes,
			}))
	}

	for _, adj := range res.Adjustments {
		meta := map[string]interface{}{
			"newPrice": adj.NewPrice.StringFixed(2),
			"reason":   adj.Reason,
		}
		summary := fmt.Sprintf("Ticket %s final price set to %s", t.TicketNumber, adj.NewPrice.StringFixed(2))
		if adj.OldPrice != nil {
			meta["oldPrice"] = adj.OldPrice.StringFixed(2)
			summary = fmt.Sprintf("Ticket %s final price changed from %s to %s", t.TicketNumber, adj.OldPrice.StringFixed(2), adj.NewPrice.StringFixed(2))
		}
		events = append(events, f.ticketEvent(t, entity.ActionPriceAdjusted, summary, meta))
	}

	if p := res.Compensation; p != nil {
		ev := f.ticketEvent(t, entity.ActionPaymentCreated,
			fmt.Sprintf("Adjustment payment %s of %s %s recorded for ticket %s", p.PaymentNumber, p.Amount.StringFixed(2), p.Currency, t.TicketNumber),
			map[string]interface{}{
				"paymentNumber":  p.PaymentNumber,
				"amount":         p.Amount.StringFixed(2),
				"adjustmentType": string(*p.AdjustmentType),
				"paidReset":      price != nil && price.PaidReset,
			})
		ev.EntityType = entity.EntityPayment
		ev.EntityID = p.ID
		events = append(events, ev)
	}

	if len(fields) > 0 {
		events = append(events, f.ticketEvent(t, entity.ActionUpdated,
			fmt.Sprintf("Ticket %s updated", t.TicketNumber),
			map[string]interface{}{"fields": fields}))
	}
	return events
}

func (f eventFactory) deletedEvent(t *entity.Ticket, action lifecycle.DeletionAction, partsRestored, unitsRestored int) entity.DomainEvent {
	return f.ticketEvent(t, entity.ActionDeleted,
		fmt.Sprintf("Ticket %s %s-deleted, %d part(s) restored to stock", t.TicketNumber, action, partsRestored),
		map[string]interface{}{
			"ticketNumber":  t.TicketNumber,
			"deleteType":    string(action),
			"partsRestored": partsRestored,
			"unitsRestored": unitsRestored,
		})
}
