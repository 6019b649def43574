package usecase

import (
	"github.com/shopspring/decimal"

	"repairdesk-service/internal/domain/entity"
	"repairdesk-service/internal/domain/lifecycle"
)

// Command is one change requested against a ticket
type Command interface {
	Name() string
}

// ChangeStatus moves the ticket to a new status
type ChangeStatus struct {
	Status entity.TicketStatus
	Notes  string
	// OverrideOutstanding asks to complete a ticket with an unpaid balance
	OverrideOutstanding bool
}

// AdjustPriceAbsolute sets the final price
type AdjustPriceAbsolute struct {
	Price  decimal.Decimal
	Reason string
}

// AdjustPriceRelative moves the final price by a signed delta
type AdjustPriceRelative struct {
	Delta  decimal.Decimal
	Reason string
}

// SetAssignee assigns the ticket to a user, or unassigns it when AssigneeID is nil
type SetAssignee struct {
	AssigneeID *string
}

// SetPaidFlag marks the ticket settled or not
type SetPaidFlag struct {
	Paid bool
}

// SetNotes replaces the ticket notes
type SetNotes struct {
	Notes string
}

func (ChangeStatus) Name() string        { return "change_status" }
func (AdjustPriceAbsolute) Name() string { return "adjust_price_absolute" }
func (AdjustPriceRelative) Name() string { return "adjust_price_relative" }
func (SetAssignee) Name() string         { return "set_assignee" }
func (SetPaidFlag) Name() string         { return "set_paid" }
func (SetNotes) Name() string            { return "set_notes" }

// commandPlan is a validated batch with at most one command of each kind
type commandPlan struct {
	status   *ChangeStatus
	price    *lifecycle.PriceChange
	reason   string
	assignee *SetAssignee
	paid     *SetPaidFlag
	notes    *SetNotes
}

func planCommands(cmds []Command) (*commandPlan, *lifecycle.Rejection) {
	if len(cmds) == 0 {
		return nil, lifecycle.Reject(lifecycle.CodeInvalidCommand, "at least one command is required")
	}

	p := &commandPlan{}
	duplicate := func(kind string) *lifecycle.Rejection {
		return lifecycle.Reject(lifecycle.CodeInvalidCommand, "at most one %s command is allowed", kind)
	}

	for _, cmd := range cmds {
		switch c := cmd.(type) {
		case ChangeStatus:
			if p.status != nil {
				return nil, duplicate("status")
			}
			p.status = &c
		case AdjustPriceAbsolute:
			if p.price != nil {
				return nil, duplicate("price")
			}
			price := c.Price
			p.price = &lifecycle.PriceChange{Absolute: &price}
			p.reason = c.Reason
		case AdjustPriceRelative:
			if p.price != nil {
				return nil, duplicate("price")
			}
			delta := c.Delta
			p.price = &lifecycle.PriceChange{Relative: &delta}
			p.reason = c.Reason
		case SetAssignee:
			if p.assignee != nil {
				return nil, duplicate("assignee")
			}
			p.assignee = &c
		case SetPaidFlag:
			if p.paid != nil {
				return nil, duplicate("paid")
			}
			p.paid = &c
		case SetNotes:
			if p.notes != nil {
				return nil, duplicate("notes")
			}
			p.notes = &c
		default:
			return nil, lifecycle.Reject(lifecycle.CodeInvalidCommand, "unsupported command %T", cmd)
		}
	}
	return p, nil
}

func (p *commandPlan) enteringRepaired() bool {
	return p.status != nil && p.status.Status == entity.StatusRepaired
}
