package api

import (
	"github.com/shopspring/decimal"

	"repairdesk-service/internal/domain/entity"
	"repairdesk-service/internal/domain/lifecycle"
	"repairdesk-service/internal/usecase"
)

// updateRequest is the PATCH /api/tickets/:id body
type updateRequest struct {
	Commands []commandRequest `json:"commands" binding:"required,min=1,dive"`
}

// commandRequest is one command in wire form. Fields used depend on Type.
type commandRequest struct {
	Type                string           `json:"type" binding:"required,oneof=change_status adjust_price_absolute adjust_price_relative set_assignee set_paid set_notes"`
	Status              string           `json:"status"`
	Notes               *string          `json:"notes"`
	OverrideOutstanding bool             `json:"overrideOutstanding"`
	Price               *decimal.Decimal `json:"price"`
	Delta               *decimal.Decimal `json:"delta"`
	Reason              string           `json:"reason"`
	AssigneeID          *string          `json:"assigneeId"`
	Paid                *bool            `json:"paid"`
}

func (r commandRequest) toCommand() (usecase.Command, *lifecycle.Rejection) {
	missing := func(field string) *lifecycle.Rejection {
		rej := lifecycle.Reject(lifecycle.CodeInvalidCommand, "%s requires %s", r.Type, field)
		rej.Field = field
		return rej
	}

	switch r.Type {
	case usecase.ChangeStatus{}.Name():
		if r.Status == "" {
			return nil, missing("status")
		}
		cmd := usecase.ChangeStatus{
			Status:              entity.TicketStatus(r.Status),
			OverrideOutstanding: r.OverrideOutstanding,
		}
		if r.Notes != nil {
			cmd.Notes = *r.Notes
		}
		return cmd, nil
	case usecase.AdjustPriceAbsolute{}.Name():
		if r.Price == nil {
			return nil, missing("price")
		}
		return usecase.AdjustPriceAbsolute{Price: *r.Price, Reason: r.Reason}, nil
	case usecase.AdjustPriceRelative{}.Name():
		if r.Delta == nil {
			return nil, missing("delta")
		}
		return usecase.AdjustPriceRelative{Delta: *r.Delta, Reason: r.Reason}, nil
	case usecase.SetAssignee{}.Name():
		return usecase.SetAssignee{AssigneeID: r.AssigneeID}, nil
	case usecase.SetPaidFlag{}.Name():
		if r.Paid == nil {
			return nil, missing("paid")
		}
		return usecase.SetPaidFlag{Paid: *r.Paid}, nil
	case usecase.SetNotes{}.Name():
		if r.Notes == nil {
			return nil, missing("notes")
		}
		return usecase.SetNotes{Notes: *r.Notes}, nil
	default:
		return nil, lifecycle.Reject(lifecycle.CodeInvalidCommand, "unknown command type %q", r.Type)
	}
}

func (r updateRequest) toCommands() ([]usecase.Command, *lifecycle.Rejection) {
	cmds := make([]usecase.Command, 0, len(r.Commands))
	for _, cr := range r.Commands {
		cmd, rej := cr.toCommand()
		if rej != nil {
			return nil, rej
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}
