package lifecycle

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"repairdesk-service/internal/domain/entity"
)

// PriceTolerance is the smallest price difference treated as a change
var PriceTolerance = decimal.New(1, -2)

// InitialPriceReason is used when the first final price is set without a reason
const InitialPriceReason = "Initial final price set"

// PriceChange sets the final price directly or moves it by a signed delta.
// Exactly one field must be set.
type PriceChange struct {
	Absolute *decimal.Decimal
	Relative *decimal.Decimal
}

// PriceChangeRequest is one price command evaluated against a ticket
type PriceChangeRequest struct {
	Change PriceChange
	Reason string
	Actor  entity.Actor
	// EnteringRepaired is set when the change accompanies a transition into REPAIRED
	EnteringRepaired bool
}

// PriceOutcome describes what an accepted price change produced.
// Compensation has no payment number; the caller allocates one.
type PriceOutcome struct {
	Changed       bool
	Initial       bool
	OldPrice      *decimal.Decimal
	NewFinalPrice decimal.Decimal
	Adjustment    *entity.PriceAdjustment
	Compensation  *entity.Payment
	PaidReset     bool
}

// PriceLedger validates price changes and synthesizes compensating payments
type PriceLedger struct {
	editable        map[entity.TicketStatus]bool
	defaultMethod   string
	defaultCurrency string
	newID           func() string
}

// PriceLedgerOption customizes a PriceLedger
type PriceLedgerOption func(*PriceLedger)

// WithEditableStatuses replaces the statuses in which the final price may change
func WithEditableStatuses(statuses ...entity.TicketStatus) PriceLedgerOption {
	return func(l *PriceLedger) {
		l.editable = make(map[entity.TicketStatus]bool, len(statuses))
		for _, s := range statuses {
			l.editable[s] = true
		}
	}
}

// WithIDGenerator sets the id source for ledger rows
func WithIDGenerator(newID func() string) PriceLedgerOption {
	return func(l *PriceLedger) {
		l.newID = newID
	}
}

// NewPriceLedger creates a ledger. Method and currency apply when a ticket has no original payment.
func NewPriceLedger(defaultMethod, defaultCurrency string, opts ...PriceLedgerOption) *PriceLedger {
	l := &PriceLedger{
		editable: map[entity.TicketStatus]bool{
			entity.StatusRepaired:  true,
			entity.StatusCompleted: true,
		},
		defaultMethod:   defaultMethod,
		defaultCurrency: defaultCurrency,
		newID:           uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CanEditPrice reports whether the final price may change in status
func (l *PriceLedger) CanEditPrice(status entity.TicketStatus, enteringRepaired bool) bool {
	return l.editable[status] || enteringRepaired
}

// Apply evaluates req against ticket and its existing payments. On success the ticket's
// final price and paid flag are updated in place.
func (l *PriceLedger) Apply(ticket *entity.Ticket, payments []entity.Payment, req PriceChangeRequest, now time.Time) (PriceOutcome, *Rejection) {
	abs, rel := req.Change.Absolute, req.Change.Relative
	if (abs == nil) == (rel == nil) {
		return PriceOutcome{}, Reject(CodeInvalidPriceChange, "exactly one of absolute or relative price must be given")
	}
	if !l.CanEditPrice(ticket.Status, req.EnteringRepaired) {
		return PriceOutcome{}, Reject(CodePriceLocked, "final price cannot change while ticket is %s", ticket.Status)
	}

	initial := ticket.FinalPrice == nil
	var newPrice decimal.Decimal
	if abs != nil {
		newPrice = *abs
	} else {
		newPrice = ticket.EffectivePrice().Add(*rel)
	}
	newPrice = newPrice.Round(2)

	if newPrice.IsNegative() {
		return PriceOutcome{}, Reject(CodeNegativePrice, "final price would be %s", newPrice.StringFixed(2))
	}

	reason := strings.TrimSpace(req.Reason)
	if !initial && reason == "" {
		return PriceOutcome{}, Reject(CodeReasonRequired, "a reason is required to change an existing final price")
	}

	var oldPrice *decimal.Decimal
	if !initial {
		p := *ticket.FinalPrice
		oldPrice = &p
	}

	if !initial && newPrice.Sub(*oldPrice).Abs().LessThanOrEqual(PriceTolerance) {
		return PriceOutcome{OldPrice: oldPrice, NewFinalPrice: *oldPrice}, nil
	}
	if reason == "" {
		reason = InitialPriceReason
	}

	out := PriceOutcome{
		Changed:       true,
		Initial:       initial,
		OldPrice:      oldPrice,
		NewFinalPrice: newPrice,
		Adjustment: &entity.PriceAdjustment{
			ID:           l.newID(),
			TicketID:     ticket.ID,
			OldPrice:     oldPrice,
			NewPrice:     newPrice,
			Reason:       reason,
			AdjustedByID: req.Actor.UserID,
			CreatedAt:    now,
		},
	}

	price := newPrice
	ticket.FinalPrice = &price
	ticket.UpdatedAt = now

	if initial || !entity.SumPayments(payments).IsPositive() {
		return out, nil
	}

	delta := newPrice.Sub(*oldPrice)
	out.Compensation = l.compensate(ticket, payments, delta, *oldPrice, newPrice, reason, req.Actor, now)
	if delta.IsNegative() && ticket.Paid {
		ticket.Paid = false
		out.PaidReset = true
	}
	return out, nil
}

func (l *PriceLedger) compensate(ticket *entity.Ticket, payments []entity.Payment, delta, oldPrice, newPrice decimal.Decimal, reason string, actor entity.Actor, now time.Time) *entity.Payment {
	adjType := entity.AdjustmentCorrection
	switch {
	case delta.IsPositive():
		adjType = entity.AdjustmentPriceIncrease
	case delta.IsNegative():
		adjType = entity.AdjustmentPriceDecrease
	}

	payment := &entity.Payment{
		ID:             l.newID(),
		TicketID:       ticket.ID,
		Amount:         delta,
		Method:         l.defaultMethod,
		Currency:       l.defaultCurrency,
		PerformedByID:  actor.UserID,
		IsAdjustment:   true,
		AdjustmentType: &adjType,
		Metadata: map[string]interface{}{
			"reason":   reason,
			"oldPrice": oldPrice.StringFixed(2),
			"newPrice": newPrice.StringFixed(2),
		},
		CreatedAt: now,
	}

	if original := entity.LatestOriginalPayment(payments); original != nil {
		id := original.ID
		payment.OriginalPaymentID = &id
		if original.Method != "" {
			payment.Method = original.Method
		}
		if original.Currency != "" {
			payment.Currency = original.Currency
		}
	}
	return payment
}
