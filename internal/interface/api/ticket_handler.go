package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"repairdesk-service/internal/domain/entity"
	"repairdesk-service/internal/domain/lifecycle"
	"repairdesk-service/internal/domain/repository"
	"repairdesk-service/internal/usecase"
	"repairdesk-service/pkg/logger"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 500
)

// TicketService is the ticket lifecycle as seen by the HTTP layer
type TicketService interface {
	Details(ctx context.Context, ticketID string) (*usecase.TicketDetails, *lifecycle.Rejection, error)
	AllowedTransitions(ctx context.Context, actor entity.Actor, ticketID string) ([]entity.TicketStatus, *lifecycle.Rejection, error)
	UpdateTicket(ctx context.Context, actor entity.Actor, ticketID string, cmds ...usecase.Command) (*usecase.UpdateResult, error)
}

// DeletionService deletes tickets
type DeletionService interface {
	DeleteTicket(ctx context.Context, actor entity.Actor, ticketID string) (*usecase.DeletionResult, error)
}

// TicketHandler serves the ticket endpoints
type TicketHandler struct {
	tickets  TicketService
	deletion DeletionService
	audit    repository.AuditRepository
	logger   logger.Logger
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(tickets TicketService, deletion DeletionService, audit repository.AuditRepository, logger logger.Logger) *TicketHandler {
	return &TicketHandler{
		tickets:  tickets,
		deletion: deletion,
		audit:    audit,
		logger:   logger,
	}
}

// GetTicket returns the ticket with its status history, price adjustments and payments
func (h *TicketHandler) GetTicket(c *gin.Context) {
	details, rej, err := h.tickets.Details(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if rej != nil {
		respondRejection(c, rej)
		return
	}
	c.JSON(http.StatusOK, details)
}

// GetTransitions lists the statuses the caller may move the ticket to
func (h *TicketHandler) GetTransitions(c *gin.Context) {
	id := c.Param("id")
	allowed, rej, err := h.tickets.AllowedTransitions(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if rej != nil {
		respondRejection(c, rej)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ticketId":           id,
		"allowedTransitions": allowed,
	})
}

// GetActivity returns the ticket's recorded events, newest first
func (h *TicketHandler) GetActivity(c *gin.Context) {
	limit := defaultActivityLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondRejection(c, lifecycle.Reject(lifecycle.CodeInvalidCommand, "limit must be a positive integer"))
			return
		}
		limit = min(n, maxActivityLimit)
	}

	events, err := h.audit.FindByTicket(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if events == nil {
		events = []*entity.DomainEvent{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// UpdateTicket applies a batch of commands
func (h *TicketHandler) UpdateTicket(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondRejection(c, lifecycle.Reject(lifecycle.CodeInvalidCommand, "invalid request body: %v", err))
		return
	}
	cmds, rej := req.toCommands()
	if rej != nil {
		respondRejection(c, rej)
		return
	}

	res, err := h.tickets.UpdateTicket(c.Request.Context(), actorFrom(c), c.Param("id"), cmds...)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if res.Rejection != nil {
		respondRejection(c, res.Rejection)
		return
	}
	c.JSON(http.StatusOK, res)
}

// DeleteTicket applies the deletion policy to the ticket
func (h *TicketHandler) DeleteTicket(c *gin.Context) {
	res, err := h.deletion.DeleteTicket(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if res.Rejection != nil {
		respondRejection(c, res.Rejection)
		return
	}
	c.JSON(http.StatusOK, res)
}
