package lifecycle

import (
	"fmt"

	"github.com/shopspring/decimal"

	"repairdesk-service/internal/domain/entity"
)

// CompletionPolicy controls how an unpaid balance affects the transition into COMPLETED
type CompletionPolicy string

const (
	// CompletionStrict requires a settled balance for every role
	CompletionStrict CompletionPolicy = "strict"
	// CompletionOverride lets ADMIN and STAFF complete with an explicit override
	CompletionOverride CompletionPolicy = "override"
	// CompletionOff skips the balance check
	CompletionOff CompletionPolicy = "off"
)

// ParseCompletionPolicy validates a configured policy name
func ParseCompletionPolicy(s string) (CompletionPolicy, error) {
	switch p := CompletionPolicy(s); p {
	case CompletionStrict, CompletionOverride, CompletionOff:
		return p, nil
	default:
		return "", fmt.Errorf("unknown completion payment policy %q", s)
	}
}

// PaymentState is the payment picture the guard evaluates a completion against
type PaymentState struct {
	Paid        bool
	Outstanding decimal.Decimal
	Override    bool
}

// Settled reports whether nothing is owed on the ticket
func (p PaymentState) Settled() bool {
	return p.Paid || p.Outstanding.LessThanOrEqual(PriceTolerance)
}

// PaymentStateOf derives the payment state of a ticket from its payments
func PaymentStateOf(t *entity.Ticket, payments []entity.Payment, override bool) PaymentState {
	outstanding := t.EffectivePrice().Sub(entity.SumPayments(payments))
	if outstanding.IsNegative() {
		outstanding = decimal.Zero
	}
	return PaymentState{Paid: t.Paid, Outstanding: outstanding, Override: override}
}

// Decision is the outcome of a transition check
type Decision struct {
	Allowed            bool
	Code               Code
	Reason             string
	AllowedTransitions []entity.TicketStatus
}

// Rejection converts a refused decision into a Rejection, or nil when allowed
func (d Decision) Rejection() *Rejection {
	if d.Allowed {
		return nil
	}
	return &Rejection{Code: d.Code, Reason: d.Reason, AllowedTransitions: d.AllowedTransitions}
}

// transitionGraph lists every reachable next status regardless of role
var transitionGraph = map[entity.TicketStatus][]entity.TicketStatus{
	entity.StatusReceived:        {entity.StatusInProgress, entity.StatusWaitingForParts, entity.StatusCancelled},
	entity.StatusInProgress:      {entity.StatusWaitingForParts, entity.StatusRepaired, entity.StatusCancelled},
	entity.StatusWaitingForParts: {entity.StatusInProgress, entity.StatusCancelled},
	entity.StatusRepaired:        {entity.StatusInProgress, entity.StatusCompleted, entity.StatusReturned},
	entity.StatusCompleted:       {entity.StatusInProgress, entity.StatusReturned},
}

var staffTransitions = map[entity.TicketStatus][]entity.TicketStatus{
	entity.StatusReceived:        {entity.StatusInProgress, entity.StatusWaitingForParts, entity.StatusCancelled},
	entity.StatusInProgress:      {entity.StatusWaitingForParts, entity.StatusRepaired, entity.StatusCancelled},
	entity.StatusWaitingForParts: {entity.StatusInProgress, entity.StatusCancelled},
	entity.StatusRepaired:        {entity.StatusInProgress, entity.StatusCompleted, entity.StatusReturned},
	entity.StatusCompleted:       {entity.StatusReturned},
}

// technicianTransitions applies to every role that is neither ADMIN nor STAFF
var technicianTransitions = map[entity.TicketStatus][]entity.TicketStatus{
	entity.StatusReceived:        {entity.StatusInProgress},
	entity.StatusInProgress:      {entity.StatusWaitingForParts, entity.StatusRepaired},
	entity.StatusWaitingForParts: {entity.StatusInProgress},
}

func allowListFor(role entity.Role) map[entity.TicketStatus][]entity.TicketStatus {
	switch role {
	case entity.RoleAdmin:
		return transitionGraph
	case entity.RoleStaff:
		return staffTransitions
	default:
		return technicianTransitions
	}
}

func containsStatus(list []entity.TicketStatus, s entity.TicketStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Guard decides whether status transitions are permitted. It has no side effects.
type Guard struct {
	policy CompletionPolicy
}

// NewGuard creates a guard using the given completion payment policy
func NewGuard(policy CompletionPolicy) *Guard {
	if policy == "" {
		policy = CompletionOverride
	}
	return &Guard{policy: policy}
}

// Policy returns the completion payment policy in force
func (g *Guard) Policy() CompletionPolicy {
	return g.policy
}

// AllowedTransitionsForRole enumerates the statuses role may move a ticket to from current
func (g *Guard) AllowedTransitionsForRole(current entity.TicketStatus, role entity.Role) []entity.TicketStatus {
	if current.IsTerminal() {
		return []entity.TicketStatus{}
	}
	targets := allowListFor(role)[current]
	out := make([]entity.TicketStatus, len(targets))
	copy(out, targets)
	return out
}

// CheckRoute applies the graph and role rules only, ignoring payment state
func (g *Guard) CheckRoute(current, target entity.TicketStatus, role entity.Role) Decision {
	allowed := g.AllowedTransitionsForRole(current, role)
	deny := func(code Code, format string, args ...interface{}) Decision {
		return Decision{Code: code, Reason: fmt.Sprintf(format, args...), AllowedTransitions: allowed}
	}

	if !current.Valid() {
		return deny(CodeInvalidTransition, "unknown current status %q", current)
	}
	if current.IsTerminal() {
		return deny(CodeTerminalState, "ticket is %s and cannot change status", current)
	}
	if !target.Valid() {
		return deny(CodeInvalidTransition, "unknown status %q", target)
	}
	if current == target {
		return deny(CodeInvalidTransition, "ticket is already %s", current)
	}
	if !containsStatus(transitionGraph[current], target) {
		return deny(CodeInvalidTransition, "cannot move from %s to %s", current, target)
	}
	if !containsStatus(allowed, target) {
		return deny(CodeInsufficientPermissions, "role %s may not move a ticket from %s to %s", role, current, target)
	}
	return Decision{Allowed: true}
}

// CanTransition applies the graph, role and completion payment rules
func (g *Guard) CanTransition(current, target entity.TicketStatus, role entity.Role, payment PaymentState) Decision {
	d := g.CheckRoute(current, target, role)
	if !d.Allowed || target != entity.StatusCompleted {
		return d
	}

	switch {
	case g.policy == CompletionOff, payment.Settled():
		return d
	case g.policy == CompletionOverride && payment.Override && role.IsPrivileged():
		return d
	}
	return Decision{
		Code:               CodeOutstandingBalance,
		Reason:             fmt.Sprintf("outstanding balance of %s must be settled before completion", payment.Outstanding.StringFixed(2)),
		AllowedTransitions: g.AllowedTransitionsForRole(current, role),
	}
}
