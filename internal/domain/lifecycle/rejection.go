package lifecycle

import (
	"fmt"

	"repairdesk-service/internal/domain/entity"
)

// Code identifies why a command was refused
type Code string

// Rejection codes
const (
	CodeTerminalState           Code = "TERMINAL_STATE"
	CodeInvalidTransition       Code = "INVALID_TRANSITION"
	CodeInsufficientPermissions Code = "INSUFFICIENT_PERMISSIONS"
	CodeOutstandingBalance      Code = "OUTSTANDING_BALANCE"
	CodeNegativePrice           Code = "NEGATIVE_PRICE"
	CodeReasonRequired          Code = "REASON_REQUIRED"
	CodePriceLocked             Code = "PRICE_LOCKED"
	CodeInvalidPriceChange      Code = "INVALID_PRICE_CHANGE"
	CodeHasPayments             Code = "HAS_PAYMENTS"
	CodeHasReturns              Code = "HAS_RETURNS"
	CodeAlreadyDeleted          Code = "ALREADY_DELETED"
	CodeTicketDeleted           Code = "TICKET_DELETED"
	CodeAuthStale               Code = "AUTH_STALE"
	CodeForeignKeyViolation     Code = "FOREIGN_KEY_VIOLATION"
	CodeNotFound                Code = "NOT_FOUND"
	CodeInvalidCommand          Code = "INVALID_COMMAND"
)

// Rejection is an expected, typed refusal returned to the caller
type Rejection struct {
	Code               Code                  `json:"code"`
	Reason             string                `json:"reason"`
	AllowedTransitions []entity.TicketStatus `json:"allowedTransitions,omitempty"`
	Field              string                `json:"field,omitempty"`
	Model              string                `json:"model,omitempty"`
}

// Reject builds a Rejection with a formatted reason
func Reject(code Code, format string, args ...interface{}) *Rejection {
	return &Rejection{Code: code, Reason: fmt.Sprintf(format, args...)}
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Code, r.Reason)
}
