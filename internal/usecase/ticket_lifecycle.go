package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"repairdesk-service/internal/domain/entity"
	"repairdesk-service/internal/domain/lifecycle"
	"repairdesk-service/internal/domain/repository"
	"repairdesk-service/pkg/logger"
	"repairdesk-service/pkg/metrics"
)

var errRejected = errors.New("command rejected")

// LifecycleOptions configures TicketLifecycle
type LifecycleOptions struct {
	CompletionPolicy         lifecycle.CompletionPolicy
	DefaultPaymentMethod     string
	DefaultCurrency          string
	PaymentNumberMaxAttempts int
	EditablePriceStatuses    []entity.TicketStatus
	Now                      func() time.Time
	NewID                    func() string
}

// UpdateResult is the outcome of a command batch. Exactly one of Ticket or Rejection is set.
type UpdateResult struct {
	Ticket       *entity.Ticket             `json:"ticket,omitempty"`
	History      *entity.StatusHistoryEntry `json:"history,omitempty"`
	Adjustments  []entity.PriceAdjustment   `json:"priceAdjustments,omitempty"`
	Compensation *entity.Payment            `json:"compensatingPayment,omitempty"`
	Rejection    *lifecycle.Rejection       `json:"-"`
}

// TicketDetails is a ticket with its ledgers
type TicketDetails struct {
	Ticket           *entity.Ticket              `json:"ticket"`
	History          []entity.StatusHistoryEntry `json:"history"`
	PriceAdjustments []entity.PriceAdjustment    `json:"priceAdjustments"`
	Payments         []entity.Payment            `json:"payments"`
}

// TicketLifecycle applies status, price and field commands to tickets atomically
type TicketLifecycle struct {
	uow         repository.UnitOfWork
	sequence    repository.PaymentSequence
	publisher   repository.EventPublisher
	guard       *lifecycle.Guard
	statuses    *lifecycle.StatusLedger
	prices      *lifecycle.PriceLedger
	metrics     *metrics.Metrics
	logger      logger.Logger
	now         func() time.Time
	newID       func() string
	maxAttempts int
}

// NewTicketLifecycle creates a new ticket lifecycle usecase
func NewTicketLifecycle(
	uow repository.UnitOfWork,
	sequence repository.PaymentSequence,
	publisher repository.EventPublisher,
	metrics *metrics.Metrics,
	logger logger.Logger,
	opts LifecycleOptions,
) *TicketLifecycle {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.PaymentNumberMaxAttempts < 1 {
		opts.PaymentNumberMaxAttempts = 5
	}
	if opts.DefaultPaymentMethod == "" {
		opts.DefaultPaymentMethod = entity.PaymentMethodCash
	}

	priceOpts := []lifecycle.PriceLedgerOption{lifecycle.WithIDGenerator(opts.NewID)}
	if len(opts.EditablePriceStatuses) > 0 {
		priceOpts = append(priceOpts, lifecycle.WithEditableStatuses(opts.EditablePriceStatuses...))
	}

	return &TicketLifecycle{
		uow:         uow,
		sequence:    sequence,
		publisher:   publisher,
		guard:       lifecycle.NewGuard(opts.CompletionPolicy),
		statuses:    lifecycle.NewStatusLedger(opts.NewID),
		prices:      lifecycle.NewPriceLedger(opts.DefaultPaymentMethod, opts.DefaultCurrency, priceOpts...),
		metrics:     metrics,
		logger:      logger,
		now:         opts.Now,
		newID:       opts.NewID,
		maxAttempts: opts.PaymentNumberMaxAttempts,
	}
}

// AllowedTransitions lists the statuses actor may move the ticket to next
func (uc *TicketLifecycle) AllowedTransitions(ctx context.Context, actor entity.Actor, ticketID string) ([]entity.TicketStatus, *lifecycle.Rejection, error) {
	var ticket *entity.Ticket
	err := uc.uow.Do(ctx, func(ctx context.Context, store repository.Store) error {
		var err error
		ticket, err = store.Tickets().GetByID(ctx, ticketID)
		return err
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, lifecycle.Reject(lifecycle.CodeNotFound, "ticket %s not found", ticketID), nil
	}
	if err != nil {
		return nil, nil, &StoreError{Op: "allowed transitions", Err: err}
	}

	if ticket.IsDeleted() {
		return []entity.TicketStatus{}, nil, nil
	}
	return uc.guard.AllowedTransitionsForRole(ticket.Status, actor.Role), nil, nil
}

// Details loads a ticket with its status history, price adjustments and payments
func (uc *TicketLifecycle) Details(ctx context.Context, ticketID string) (*TicketDetails, *lifecycle.Rejection, error) {
	details := &TicketDetails{}
	err := uc.uow.Do(ctx, func(ctx context.Context, store repository.Store) error {
		var err error
		if details.Ticket, err = store.Tickets().GetByID(ctx, ticketID); err != nil {
			return err
		}
		if details.History, err = store.Tickets().History(ctx, ticketID); err != nil {
			return err
		}
		if details.PriceAdjustments, err = store.Tickets().PriceAdjustments(ctx, ticketID); err != nil {
			return err
		}
		details.Payments, err = store.Payments().ListByTicket(ctx, ticketID)
		return err
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, lifecycle.Reject(lifecycle.CodeNotFound, "ticket %s not found", ticketID), nil
	}
	if err != nil {
		return nil, nil, &StoreError{Op: "ticket details", Err: err}
	}
	return details, nil, nil
}

// UpdateTicket applies cmds to a ticket in one transaction and publishes the resulting events.
// Policy failures come back as UpdateResult.Rejection; only infrastructure failures are errors.
func (uc *TicketLifecycle) UpdateTicket(ctx context.Context, actor entity.Actor, ticketID string, cmds ...Command) (*UpdateResult, error) {
	timer := prometheus.NewTimer(uc.metrics.CommandDuration)
	defer timer.ObserveDuration()

	plan, rej := planCommands(cmds)
	if rej != nil {
		return uc.rejected(ticketID, actor, rej), nil
	}

	var (
		result *UpdateResult
		events []entity.DomainEvent
	)
	for attempt := 1; ; attempt++ {
		err := uc.uow.Do(ctx, func(ctx context.Context, store repository.Store) error {
			var err error
			result, events, err = uc.apply(ctx, store, actor, ticketID, plan)
			if err != nil {
				return err
			}
			if result.Rejection != nil {
				return errRejected
			}
			return nil
		})
		if err == nil {
			break
		}
		if errors.Is(err, errRejected) {
			return uc.rejected(ticketID, actor, result.Rejection), nil
		}
		if isDuplicatePaymentNumber(err) && attempt < uc.maxAttempts {
			uc.logger.Warn("Payment number already taken, retrying",
				"ticketID", ticketID,
				"attempt", attempt)
			continue
		}

		rej, storeErr := translateStoreError("update ticket", err)
		if rej != nil {
			return uc.rejected(ticketID, actor, rej), nil
		}
		uc.metrics.ErrorsCount.WithLabelValues("update_ticket").Inc()
		uc.logger.Error("Failed to update ticket",
			"ticketID", ticketID,
			"error", err)
		return nil, storeErr
	}

	uc.observe(result)
	uc.logger.Info("Ticket updated",
		"ticketID", ticketID,
		"ticketNumber", result.Ticket.TicketNumber,
		"status", result.Ticket.Status,
		"actorID", actor.UserID,
		"events", len(events))

	uc.publisher.Publish(ctx, events...)
	return result, nil
}

func (uc *TicketLifecycle) apply(ctx context.Context, store repository.Store, actor entity.Actor, ticketID string, plan *commandPlan) (*UpdateResult, []entity.DomainEvent, error) {
	reject := func(r *lifecycle.Rejection) (*UpdateResult, []entity.DomainEvent, error) {
		return &UpdateResult{Rejection: r}, nil, nil
	}

	current, err := store.Tickets().GetForUpdate(ctx, ticketID)
	if errors.Is(err, repository.ErrNotFound) {
		return reject(lifecycle.Reject(lifecycle.CodeNotFound, "ticket %s not found", ticketID))
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load ticket: %w", err)
	}

	user, err := store.Users().GetByID(ctx, actor.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return reject(lifecycle.Reject(lifecycle.CodeAuthStale, "the acting user no longer exists, sign in again"))
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load user: %w", err)
	}

	if current.IsDeleted() {
		return reject(lifecycle.Reject(lifecycle.CodeTicketDeleted, "ticket %s is deleted and cannot change", current.TicketNumber))
	}

	payments, err := store.Payments().ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load payments: %w", err)
	}

	now := uc.now()
	ticket := current.Clone()
	res := &UpdateResult{Ticket: ticket}

	if plan.status != nil {
		if d := uc.guard.CheckRoute(ticket.Status, plan.status.Status, actor.Role); !d.Allowed {
			return reject(d.Rejection())
		}
	}

	var price *lifecycle.PriceOutcome
	if plan.price != nil {
		out, rej := uc.prices.Apply(ticket, payments, lifecycle.PriceChangeRequest{
			Change:           *plan.price,
			Reason:           plan.reason,
			Actor:            actor,
			EnteringRepaired: plan.enteringRepaired(),
		}, now)
		if rej != nil {
			return reject(rej)
		}
		if out.Changed {
			price = &out
			res.Adjustments = append(res.Adjustments, *out.Adjustment)
			if out.Compensation != nil {
				number, err := allocatePaymentNumber(ctx, uc.sequence, store, now)
				if err != nil {
					return nil, nil, fmt.Errorf("failed to allocate payment number: %w", err)
				}
				out.Compensation.PaymentNumber = number
				res.Compensation = out.Compensation
				payments = append(payments, *out.Compensation)
			}
		}
	}

	if plan.status != nil {
		state := lifecycle.PaymentStateOf(ticket, payments, plan.status.OverrideOutstanding)
		if d := uc.guard.CanTransition(ticket.Status, plan.status.Status, actor.Role, state); !d.Allowed {
			return reject(d.Rejection())
		}
		rec := uc.statuses.RecordTransition(ticket, plan.status.Status, actor, plan.status.Notes, now)
		res.History = &rec.Entry
		res.Adjustments = append(res.Adjustments, rec.Adjustments...)
	}

	var fields []string
	if plan.assignee != nil {
		if !actor.Role.IsPrivileged() {
			return reject(lifecycle.Reject(lifecycle.CodeInsufficientPermissions, "role %s may not assign tickets", actor.Role))
		}
		if id := plan.assignee.AssigneeID; id != nil {
			if _, err := store.Users().GetByID(ctx, *id); errors.Is(err, repository.ErrNotFound) {
				rej := lifecycle.Reject(lifecycle.CodeForeignKeyViolation, "assignee %s does not exist", *id)
				rej.Field = "assigneeId"
				rej.Model = "User"
				return reject(rej)
			} else if err != nil {
				return nil, nil, fmt.Errorf("failed to load assignee: %w", err)
			}
		}
		ticket.AssigneeID = plan.assignee.AssigneeID
		fields = append(fields, "assigneeId")
	}
	if plan.paid != nil {
		if !actor.Role.IsPrivileged() {
			return reject(lifecycle.Reject(lifecycle.CodeInsufficientPermissions, "role %s may not change the paid flag", actor.Role))
		}
		ticket.Paid = plan.paid.Paid
		fields = append(fields, "paid")
	}
	if plan.notes != nil {
		ticket.Notes = plan.notes.Notes
		fields = append(fields, "notes")
	}
	ticket.UpdatedAt = now

	if res.Compensation != nil {
		if err := store.Payments().Create(ctx, res.Compensation); err != nil {
			return nil, nil, err
		}
	}
	for i := range res.Adjustments {
		if err := store.Tickets().AppendPriceAdjustment(ctx, &res.Adjustments[i]); err != nil {
			return nil, nil, err
		}
	}
	if res.History != nil {
		if err := store.Tickets().AppendHistory(ctx, res.History); err != nil {
			return nil, nil, err
		}
	}
	if err := store.Tickets().Save(ctx, ticket); err != nil {
		return nil, nil, err
	}

	factory := eventFactory{newID: uc.newID, actor: actor, name: user.Name, now: now}
	return res, factory.updateEvents(current, res, price, fields), nil
}

func (uc *TicketLifecycle) rejected(ticketID string, actor entity.Actor, rej *lifecycle.Rejection) *UpdateResult {
	uc.metrics.Rejections.WithLabelValues(string(rej.Code)).Inc()
	uc.logger.Warn("Ticket command rejected",
		"ticketID", ticketID,
		"actorID", actor.UserID,
		"code", rej.Code,
		"reason", rej.Reason)
	return &UpdateResult{Rejection: rej}
}

func (uc *TicketLifecycle) observe(res *UpdateResult) {
	if res.History != nil {
		uc.metrics.Transitions.WithLabelValues(string(res.History.FromStatus), string(res.History.Status)).Inc()
	}
	uc.metrics.PriceAdjustments.Add(float64(len(res.Adjustments)))
	if p := res.Compensation; p != nil && p.AdjustmentType != nil {
		uc.metrics.CompensatingPayments.WithLabelValues(string(*p.AdjustmentType)).Inc()
	}
}
