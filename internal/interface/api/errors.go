package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"repairdesk-service/internal/domain/entity"
	"repairdesk-service/internal/domain/lifecycle"
	"repairdesk-service/internal/usecase"
)

// Codes produced by the HTTP layer itself
const (
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeInternal        = "INTERNAL_ERROR"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code               string                `json:"code"`
	Reason             string                `json:"reason"`
	AllowedTransitions []entity.TicketStatus `json:"allowedTransitions,omitempty"`
	Field              string                `json:"field,omitempty"`
	Model              string                `json:"model,omitempty"`
}

// statusFor maps a rejection code to its HTTP status
func statusFor(code lifecycle.Code) int {
	switch code {
	case lifecycle.CodeInsufficientPermissions:
		return http.StatusForbidden
	case lifecycle.CodeNotFound:
		return http.StatusNotFound
	case lifecycle.CodeAuthStale:
		return http.StatusUnauthorized
	case lifecycle.CodeAlreadyDeleted, lifecycle.CodeHasPayments, lifecycle.CodeHasReturns:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func respondRejection(c *gin.Context, rej *lifecycle.Rejection) {
	c.JSON(statusFor(rej.Code), errorBody{Error: errorDetail{
		Code:               string(rej.Code),
		Reason:             rej.Reason,
		AllowedTransitions: rej.AllowedTransitions,
		Field:              rej.Field,
		Model:              rej.Model,
	}})
}

func (h *TicketHandler) respondError(c *gin.Context, err error) {
	code := CodeInternal
	var storeErr *usecase.StoreError
	if errors.As(err, &storeErr) {
		code = storeErr.Code()
	}

	h.logger.Error("Request failed",
		"method", c.Request.Method,
		"path", c.FullPath(),
		"ticketID", c.Param("id"),
		"error", err)

	c.JSON(http.StatusInternalServerError, errorBody{Error: errorDetail{
		Code:   code,
		Reason: "the request could not be completed, try again later",
	}})
}
