package usecase

import (
	"context"
	"fmt"

	"repairdesk-service/internal/domain/entity"
	"repairdesk-service/internal/domain/repository"
)

// AuditHandler records every domain event in the audit store
type AuditHandler struct {
	auditRepo repository.AuditRepository
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(auditRepo repository.AuditRepository) *AuditHandler {
	return &AuditHandler{auditRepo: auditRepo}
}

// CanHandle accepts every event
func (h *AuditHandler) CanHandle(event entity.DomainEvent) bool {
	return true
}

// Handle stores the event
func (h *AuditHandler) Handle(ctx context.Context, event entity.DomainEvent) error {
	if err := h.auditRepo.Save(ctx, &event); err != nil {
		return fmt.Errorf("failed to record audit event %s: %w", event.EventID, err)
	}
	return nil
}
