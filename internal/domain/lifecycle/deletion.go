package lifecycle

import (
	"repairdesk-service/internal/domain/entity"
)

// DeletionAction is the outcome of the deletion policy
type DeletionAction string

const (
	DeleteSoft   DeletionAction = "soft"
	DeleteHard   DeletionAction = "hard"
	DeleteReject DeletionAction = "reject"
)

// DeletionFacts is what the deletion policy needs to know about a ticket
type DeletionFacts struct {
	Status       entity.TicketStatus
	Paid         bool
	Deleted      bool
	PaymentCount int64
	ReturnCount  int64
}

// DeletionDecision carries the chosen action and, when rejected, why
type DeletionDecision struct {
	Action    DeletionAction
	Rejection *Rejection
}

// AuthorizeDeletion refuses every role except ADMIN
func AuthorizeDeletion(role entity.Role) *Rejection {
	if role == entity.RoleAdmin {
		return nil
	}
	return Reject(CodeInsufficientPermissions, "only administrators may delete tickets")
}

// DecideDeletion picks soft, hard or reject for a ticket
func DecideDeletion(f DeletionFacts) DeletionDecision {
	reject := func(r *Rejection) DeletionDecision {
		return DeletionDecision{Action: DeleteReject, Rejection: r}
	}

	switch {
	case f.Deleted:
		return reject(Reject(CodeAlreadyDeleted, "ticket is already deleted"))
	case f.PaymentCount > 0:
		return reject(Reject(CodeHasPayments, "ticket has %d payment record(s) and must be kept for audit", f.PaymentCount))
	case f.ReturnCount > 0:
		return reject(Reject(CodeHasReturns, "ticket has %d return record(s) and must be kept for audit", f.ReturnCount))
	case f.Status == entity.StatusCompleted:
		return DeletionDecision{Action: DeleteSoft}
	case f.Status == entity.StatusRepaired && f.Paid:
		return DeletionDecision{Action: DeleteSoft}
	default:
		return DeletionDecision{Action: DeleteHard}
	}
}

// FactsOf collects deletion facts for a ticket
func FactsOf(t *entity.Ticket, paymentCount, returnCount int64) DeletionFacts {
	return DeletionFacts{
		Status:       t.Status,
		Paid:         t.Paid,
		Deleted:      t.IsDeleted(),
		PaymentCount: paymentCount,
		ReturnCount:  returnCount,
	}
}
