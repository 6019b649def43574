package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"repairdesk-service/internal/domain/entity"
)

// AutoPriceReason is recorded when completion copies the estimate into the final price
const AutoPriceReason = "Final price set from estimate on completion"

// TransitionContext is handed to post-transition hooks
type TransitionContext struct {
	Ticket      *entity.Ticket
	From        entity.TicketStatus
	To          entity.TicketStatus
	Actor       entity.Actor
	Now         time.Time
	Adjustments []entity.PriceAdjustment
	newID       func() string
}

// NewID returns a fresh identifier for rows created by a hook
func (tc *TransitionContext) NewID() string {
	return tc.newID()
}

// PostTransitionHook runs after a ticket has entered a status
type PostTransitionHook func(tc *TransitionContext)

// TransitionRecord is what an accepted transition produced
type TransitionRecord struct {
	Entry       entity.StatusHistoryEntry
	Adjustments []entity.PriceAdjustment
}

// StatusLedger appends status history and runs hooks keyed by target status
type StatusLedger struct {
	hooks map[entity.TicketStatus][]PostTransitionHook
	newID func() string
}

// NewStatusLedger creates a ledger with the default completion hooks registered
func NewStatusLedger(newID func() string) *StatusLedger {
	if newID == nil {
		newID = uuid.NewString
	}
	l := &StatusLedger{
		hooks: make(map[entity.TicketStatus][]PostTransitionHook),
		newID: newID,
	}
	l.OnEnter(entity.StatusCompleted, StampCompletedAt)
	l.OnEnter(entity.StatusCompleted, PopulateFinalPrice)
	return l
}

// OnEnter registers a hook for transitions into status. Hooks run in registration order.
func (l *StatusLedger) OnEnter(status entity.TicketStatus, hook PostTransitionHook) {
	l.hooks[status] = append(l.hooks[status], hook)
}

// RecordTransition moves ticket to newStatus and returns the history entry to append.
// The caller must have checked the transition with the Guard.
func (l *StatusLedger) RecordTransition(ticket *entity.Ticket, newStatus entity.TicketStatus, actor entity.Actor, notes string, now time.Time) TransitionRecord {
	from := ticket.Status
	if strings.TrimSpace(notes) == "" {
		notes = fmt.Sprintf("Status changed from %s to %s", from, newStatus)
	}

	entry := entity.StatusHistoryEntry{
		ID:          l.newID(),
		TicketID:    ticket.ID,
		FromStatus:  from,
		Status:      newStatus,
		Notes:       notes,
		ChangedByID: actor.UserID,
		CreatedAt:   now,
	}

	ticket.Status = newStatus
	ticket.UpdatedAt = now

	tc := &TransitionContext{
		Ticket: ticket,
		From:   from,
		To:     newStatus,
		Actor:  actor,
		Now:    now,
		newID:  l.newID,
	}
	for _, hook := range l.hooks[newStatus] {
		hook(tc)
	}

	return TransitionRecord{Entry: entry, Adjustments: tc.Adjustments}
}

// StampCompletedAt sets completedAt on the first entry into COMPLETED only
func StampCompletedAt(tc *TransitionContext) {
	if tc.Ticket.CompletedAt != nil {
		return
	}
	at := tc.Now
	tc.Ticket.CompletedAt = &at
}

// PopulateFinalPrice copies the estimate into an unset final price and records it
func PopulateFinalPrice(tc *TransitionContext) {
	if tc.Ticket.FinalPrice != nil {
		return
	}
	price := tc.Ticket.EstimatedPrice
	tc.Ticket.FinalPrice = &price
	tc.Adjustments = append(tc.Adjustments, entity.PriceAdjustment{
		ID:           tc.NewID(),
		TicketID:     tc.Ticket.ID,
		NewPrice:     price,
		Reason:       AutoPriceReason,
		AdjustedByID: tc.Actor.UserID,
		CreatedAt:    tc.Now,
	})
}
