package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repairdesk-service/internal/domain/entity"
	"repairdesk-service/internal/domain/lifecycle"
	"repairdesk-service/internal/usecase"
	"repairdesk-service/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubTickets struct {
	details   *usecase.TicketDetails
	allowed   []entity.TicketStatus
	result    *usecase.UpdateResult
	rejection *lifecycle.Rejection
	err       error

	gotActor entity.Actor
	gotID    string
	gotCmds  []usecase.Command
}

func (s *stubTickets) Details(ctx context.Context, ticketID string) (*usecase.TicketDetails, *lifecycle.Rejection, error) {
	s.gotID = ticketID
	return s.details, s.rejection, s.err
}

func (s *stubTickets) AllowedTransitions(ctx context.Context, actor entity.Actor, ticketID string) ([]entity.TicketStatus, *lifecycle.Rejection, error) {
	s.gotActor, s.gotID = actor, ticketID
	return s.allowed, s.rejection, s.err
}

func (s *stubTickets) UpdateTicket(ctx context.Context, actor entity.Actor, ticketID string, cmds ...usecase.Command) (*usecase.UpdateResult, error) {
	s.gotActor, s.gotID, s.gotCmds = actor, ticketID, cmds
	return s.result, s.err
}

type stubDeletion struct {
	result *usecase.DeletionResult
	err    error
}

func (s *stubDeletion) DeleteTicket(ctx context.Context, actor entity.Actor, ticketID string) (*usecase.DeletionResult, error) {
	return s.result, s.err
}

type stubAudit struct {
	events   []*entity.DomainEvent
	gotLimit int
}

func (s *stubAudit) Save(ctx context.Context, event *entity.DomainEvent) error { return nil }

func (s *stubAudit) FindByTicket(ctx context.Context, ticketID string, limit int) ([]*entity.DomainEvent, error) {
	s.gotLimit = limit
	return s.events, nil
}

type apiFixture struct {
	tickets  *stubTickets
	deletion *stubDeletion
	audit    *stubAudit
	auth     *Authenticator
	router   *gin.Engine
}

func newAPIFixture() *apiFixture {
	f := &apiFixture{
		tickets:  &stubTickets{},
		deletion: &stubDeletion{},
		audit:    &stubAudit{},
		auth:     NewAuthenticator("test-secret", "repairdesk", time.Hour),
	}
	h := NewTicketHandler(f.tickets, f.deletion, f.audit, logger.NewNop())
	f.router = NewRouter(h, f.auth, prometheus.NewRegistry(), logger.NewNop())
	return f
}

func (f *apiFixture) do(t *testing.T, actor *entity.Actor, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		token, err := f.auth.IssueToken(*actor)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorDetail {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error
}

var staffActor = &entity.Actor{UserID: "u-staff", Name: "Sam", Role: entity.RoleStaff}

func TestHealthAndMetricsArePublic(t *testing.T) {
	f := newAPIFixture()

	w := f.do(t, nil, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, nil, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthRequired(t *testing.T) {
	f := newAPIFixture()

	w := f.do(t, nil, http.MethodGet, "/api/tickets/t1/transitions", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, CodeUnauthenticated, decodeError(t, w).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/tickets/t1/transitions", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticator_RejectsForeignAndExpiredTokens(t *testing.T) {
	auth := NewAuthenticator("secret-a", "repairdesk", time.Minute)
	other := NewAuthenticator("secret-b", "repairdesk", time.Minute)

	token, err := other.IssueToken(*staffActor)
	require.NoError(t, err)
	_, err = auth.Parse(token)
	assert.Error(t, err)

	token, err = auth.IssueToken(*staffActor)
	require.NoError(t, err)
	actor, err := auth.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, *staffActor, actor)

	auth.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = auth.Parse(token)
	assert.Error(t, err)
}

func TestGetTransitions(t *testing.T) {
	f := newAPIFixture()
	f.tickets.allowed = []entity.TicketStatus{entity.StatusReturned}

	w := f.do(t, staffActor, http.MethodGet, "/api/tickets/t1/transitions", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ticketId":"t1","allowedTransitions":["RETURNED"]}`, w.Body.String())
	assert.Equal(t, *staffActor, f.tickets.gotActor)
}

func TestGetTicketNotFound(t *testing.T) {
	f := newAPIFixture()
	f.tickets.rejection = lifecycle.Reject(lifecycle.CodeNotFound, "ticket t9 not found")

	w := f.do(t, staffActor, http.MethodGet, "/api/tickets/t9", "")

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, w).Code)
}

func TestUpdateTicket_DecodesCommands(t *testing.T) {
	f := newAPIFixture()
	f.tickets.result = &usecase.UpdateResult{Ticket: &entity.Ticket{ID: "t1", Status: entity.StatusRepaired}}

	body := `{"commands":[
		{"type":"change_status","status":"REPAIRED","notes":"Done"},
		{"type":"adjust_price_absolute","price":"149.90","reason":"Parts"},
		{"type":"set_assignee","assigneeId":null},
		{"type":"set_paid","paid":false},
		{"type":"set_notes","notes":""}
	]}`
	w := f.do(t, staffActor, http.MethodPatch, "/api/tickets/t1", body)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, f.tickets.gotCmds, 5)
	assert.Equal(t, usecase.ChangeStatus{Status: entity.StatusRepaired, Notes: "Done"}, f.tickets.gotCmds[0])
	price, ok := f.tickets.gotCmds[1].(usecase.AdjustPriceAbsolute)
	require.True(t, ok)
	assert.True(t, decimal.RequireFromString("149.90").Equal(price.Price))
	assert.Equal(t, usecase.SetAssignee{}, f.tickets.gotCmds[2])
	assert.Equal(t, usecase.SetPaidFlag{Paid: false}, f.tickets.gotCmds[3])
	assert.Equal(t, usecase.SetNotes{Notes: ""}, f.tickets.gotCmds[4])
	assert.Contains(t, w.Body.String(), `"status":"REPAIRED"`)
}

func TestUpdateTicket_RelativeDeltaAsNumber(t *testing.T) {
	f := newAPIFixture()
	f.tickets.result = &usecase.UpdateResult{Ticket: &entity.Ticket{ID: "t1"}}

	w := f.do(t, staffActor, http.MethodPatch, "/api/tickets/t1",
		`{"commands":[{"type":"adjust_price_relative","delta":-20,"reason":"Discount"}]}`)

	require.Equal(t, http.StatusOK, w.Code)
	cmd, ok := f.tickets.gotCmds[0].(usecase.AdjustPriceRelative)
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(-20).Equal(cmd.Delta))
	assert.Equal(t, "Discount", cmd.Reason)
}

func TestUpdateTicket_InvalidBodies(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `nope`},
		{name: "no commands", body: `{"commands":[]}`},
		{name: "unknown type", body: `{"commands":[{"type":"teleport"}]}`},
		{name: "status missing", body: `{"commands":[{"type":"change_status"}]}`},
		{name: "price missing", body: `{"commands":[{"type":"adjust_price_absolute","reason":"x"}]}`},
		{name: "paid missing", body: `{"commands":[{"type":"set_paid"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPIFixture()

			w := f.do(t, staffActor, http.MethodPatch, "/api/tickets/t1", tt.body)

			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "INVALID_COMMAND", decodeError(t, w).Code)
			assert.Nil(t, f.tickets.gotCmds)
		})
	}
}

func TestUpdateTicket_RejectionMapping(t *testing.T) {
	tests := []struct {
		rej        *lifecycle.Rejection
		wantStatus int
	}{
		{rej: &lifecycle.Rejection{Code: lifecycle.CodeInsufficientPermissions, AllowedTransitions: []entity.TicketStatus{entity.StatusInProgress}}, wantStatus: http.StatusForbidden},
		{rej: &lifecycle.Rejection{Code: lifecycle.CodeAuthStale}, wantStatus: http.StatusUnauthorized},
		{rej: &lifecycle.Rejection{Code: lifecycle.CodeTerminalState, AllowedTransitions: []entity.TicketStatus{}}, wantStatus: http.StatusBadRequest},
		{rej: &lifecycle.Rejection{Code: lifecycle.CodeReasonRequired}, wantStatus: http.StatusBadRequest},
		{rej: &lifecycle.Rejection{Code: lifecycle.CodeForeignKeyViolation, Field: "assigneeId", Model: "User"}, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(string(tt.rej.Code), func(t *testing.T) {
			f := newAPIFixture()
			f.tickets.result = &usecase.UpdateResult{Rejection: tt.rej}

			w := f.do(t, staffActor, http.MethodPatch, "/api/tickets/t1", `{"commands":[{"type":"set_notes","notes":"x"}]}`)

			require.Equal(t, tt.wantStatus, w.Code)
			got := decodeError(t, w)
			assert.Equal(t, string(tt.rej.Code), got.Code)
			assert.Equal(t, tt.rej.Field, got.Field)
			assert.Equal(t, tt.rej.Model, got.Model)
			assert.Equal(t, len(tt.rej.AllowedTransitions), len(got.AllowedTransitions))
		})
	}
}

func TestUpdateTicket_StoreFailure(t *testing.T) {
	f := newAPIFixture()
	f.tickets.err = &usecase.StoreError{Op: "update ticket", Err: errors.New("connection refused")}

	w := f.do(t, staffActor, http.MethodPatch, "/api/tickets/t1", `{"commands":[{"type":"set_notes","notes":"x"}]}`)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	got := decodeError(t, w)
	assert.Equal(t, "STORE_UNAVAILABLE", got.Code)
	assert.NotContains(t, got.Reason, "connection refused")
}

func TestDeleteTicket(t *testing.T) {
	f := newAPIFixture()
	f.deletion.result = &usecase.DeletionResult{TicketID: "t1", TicketNumber: "TCK-0001", Action: lifecycle.DeleteHard, PartsRestored: 2, UnitsRestored: 3}

	w := f.do(t, staffActor, http.MethodDelete, "/api/tickets/t1", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ticketId":"t1","ticketNumber":"TCK-0001","deleteType":"hard","partsRestored":2,"unitsRestored":3}`, w.Body.String())

	f.deletion.result = &usecase.DeletionResult{TicketID: "t1", Action: lifecycle.DeleteReject, Rejection: lifecycle.Reject(lifecycle.CodeHasPayments, "ticket has 1 payment record(s)")}
	w = f.do(t, staffActor, http.MethodDelete, "/api/tickets/t1", "")
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "HAS_PAYMENTS", decodeError(t, w).Code)
}

func TestGetActivity(t *testing.T) {
	f := newAPIFixture()
	f.audit.events = []*entity.DomainEvent{{EventID: "e1", Action: entity.ActionStatusChanged, TicketID: "t1"}}

	w := f.do(t, staffActor, http.MethodGet, "/api/tickets/t1/activity?limit=1000", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, maxActivityLimit, f.audit.gotLimit)
	assert.Contains(t, w.Body.String(), `"eventId":"e1"`)

	w = f.do(t, staffActor, http.MethodGet, "/api/tickets/t1/activity?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
