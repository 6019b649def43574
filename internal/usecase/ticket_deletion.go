package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"repairdesk-service/internal/domain/entity"
	"repairdesk-service/internal/domain/lifecycle"
	"repairdesk-service/internal/domain/repository"
	"repairdesk-service/pkg/logger"
	"repairdesk-service/pkg/metrics"
)

// DeletionResult is the outcome of a delete request
type DeletionResult struct {
	TicketID      string                   `json:"ticketId"`
	TicketNumber  string                   `json:"ticketNumber"`
	Action        lifecycle.DeletionAction `json:"deleteType"`
	PartsRestored int                      `json:"partsRestored"`
	UnitsRestored int                      `json:"unitsRestored"`
	Rejection     *lifecycle.Rejection     `json:"-"`
}

// TicketDeletion soft- or hard-deletes tickets according to the deletion policy
type TicketDeletion struct {
	uow       repository.UnitOfWork
	publisher repository.EventPublisher
	metrics   *metrics.Metrics
	logger    logger.Logger
	now       func() time.Time
	newID     func() string
}

// NewTicketDeletion creates a new ticket deletion usecase
func NewTicketDeletion(
	uow repository.UnitOfWork,
	publisher repository.EventPublisher,
	metrics *metrics.Metrics,
	logger logger.Logger,
	now func() time.Time,
) *TicketDeletion {
	if now == nil {
		now = time.Now
	}
	return &TicketDeletion{
		uow:       uow,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		now:       now,
		newID:     uuid.NewString,
	}
}

// DeleteTicket applies the deletion policy. A hard delete restores every used part to stock first.
func (uc *TicketDeletion) DeleteTicket(ctx context.Context, actor entity.Actor, ticketID string) (*DeletionResult, error) {
	if rej := lifecycle.AuthorizeDeletion(actor.Role); rej != nil {
		return uc.rejected(ticketID, actor, rej), nil
	}

	var (
		result *DeletionResult
		event  entity.DomainEvent
	)
	err := uc.uow.Do(ctx, func(ctx context.Context, store repository.Store) error {
		var err error
		result, event, err = uc.apply(ctx, store, actor, ticketID)
		if err != nil {
			return err
		}
		if result.Rejection != nil {
			return errRejected
		}
		return nil
	})
	if errors.Is(err, errRejected) {
		return uc.rejected(ticketID, actor, result.Rejection), nil
	}
	if err != nil {
		rej, storeErr := translateStoreError("delete ticket", err)
		if rej != nil {
			return uc.rejected(ticketID, actor, rej), nil
		}
		uc.metrics.ErrorsCount.WithLabelValues("delete_ticket").Inc()
		uc.logger.Error("Failed to delete ticket",
			"ticketID", ticketID,
			"error", err)
		return nil, storeErr
	}

	uc.metrics.Deletions.WithLabelValues(string(result.Action)).Inc()
	uc.logger.Info("Ticket deleted",
		"ticketID", ticketID,
		"ticketNumber", result.TicketNumber,
		"deleteType", result.Action,
		"partsRestored", result.PartsRestored)

	uc.publisher.Publish(ctx, event)
	return result, nil
}

func (uc *TicketDeletion) apply(ctx context.Context, store repository.Store, actor entity.Actor, ticketID string) (*DeletionResult, entity.DomainEvent, error) {
	var none entity.DomainEvent
	reject := func(r *lifecycle.Rejection) (*DeletionResult, entity.DomainEvent, error) {
		return &DeletionResult{TicketID: ticketID, Action: lifecycle.DeleteReject, Rejection: r}, none, nil
	}

	ticket, err := store.Tickets().GetForUpdate(ctx, ticketID)
	if errors.Is(err, repository.ErrNotFound) {
		return reject(lifecycle.Reject(lifecycle.CodeNotFound, "ticket %s not found", ticketID))
	}
	if err != nil {
		return nil, none, fmt.Errorf("failed to load ticket: %w", err)
	}

	user, err := store.Users().GetByID(ctx, actor.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return reject(lifecycle.Reject(lifecycle.CodeAuthStale, "the acting user no longer exists, sign in again"))
	}
	if err != nil {
		return nil, none, fmt.Errorf("failed to load user: %w", err)
	}

	payments, err := store.Payments().CountByTicket(ctx, ticketID)
	if err != nil {
		return nil, none, fmt.Errorf("failed to count payments: %w", err)
	}
	returns, err := store.Returns().CountByTicket(ctx, ticketID)
	if err != nil {
		return nil, none, fmt.Errorf("failed to count returns: %w", err)
	}

	decision := lifecycle.DecideDeletion(lifecycle.FactsOf(ticket, payments, returns))
	if decision.Rejection != nil {
		return reject(decision.Rejection)
	}

	now := uc.now()
	result := &DeletionResult{
		TicketID:     ticket.ID,
		TicketNumber: ticket.TicketNumber,
		Action:       decision.Action,
	}

	switch decision.Action {
	case lifecycle.DeleteSoft:
		if err := store.Tickets().SoftDelete(ctx, ticket.ID, now); err != nil {
			return nil, none, err
		}
	case lifecycle.DeleteHard:
		usages, err := store.Tickets().PartUsages(ctx, ticket.ID)
		if err != nil {
			return nil, none, fmt.Errorf("failed to load part usages: %w", err)
		}
		for _, usage := range usages {
			if err := store.Parts().IncrementStock(ctx, usage.PartID, usage.Quantity); err != nil {
				return nil, none, err
			}
			result.PartsRestored++
			result.UnitsRestored += usage.Quantity
		}
		if err := store.Tickets().HardDelete(ctx, ticket.ID); err != nil {
			return nil, none, err
		}
	}

	factory := eventFactory{newID: uc.newID, actor: actor, name: user.Name, now: now}
	return result, factory.deletedEvent(ticket, decision.Action, result.PartsRestored, result.UnitsRestored), nil
}

func (uc *TicketDeletion) rejected(ticketID string, actor entity.Actor, rej *lifecycle.Rejection) *DeletionResult {
	uc.metrics.Rejections.WithLabelValues(string(rej.Code)).Inc()
	uc.logger.Warn("Ticket deletion rejected",
		"ticketID", ticketID,
		"actorID", actor.UserID,
		"code", rej.Code,
		"reason", rej.Reason)
	return &DeletionResult{TicketID: ticketID, Action: lifecycle.DeleteReject, Rejection: rej}
}
