package lifecycle

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repairdesk-service/internal/domain/entity"
)

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

var tech = entity.Actor{UserID: "user-1", Name: "Sam", Role: entity.RoleTechnician}

func TestRecordTransition_DefaultNote(t *testing.T) {
	l := NewStatusLedger(sequentialIDs("h"))
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	ticket := &entity.Ticket{ID: "t1", Status: entity.StatusReceived}

	rec := l.RecordTransition(ticket, entity.StatusInProgress, tech, "  ", now)

	assert.Equal(t, "Status changed from RECEIVED to IN_PROGRESS", rec.Entry.Notes)
	assert.Equal(t, entity.StatusInProgress, rec.Entry.Status)
	assert.Equal(t, entity.StatusReceived, rec.Entry.FromStatus)
	assert.Equal(t, "user-1", rec.Entry.ChangedByID)
	assert.Equal(t, "h-1", rec.Entry.ID)
	assert.Equal(t, entity.StatusInProgress, ticket.Status)
	assert.Empty(t, rec.Adjustments)
	assert.Nil(t, ticket.CompletedAt)
}

func TestRecordTransition_CompletedAtStampedOnce(t *testing.T) {
	l := NewStatusLedger(sequentialIDs("h"))
	first := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	ticket := &entity.Ticket{ID: "t1", Status: entity.StatusRepaired, EstimatedPrice: decimal.NewFromInt(150)}

	l.RecordTransition(ticket, entity.StatusCompleted, tech, "done", first)
	require.NotNil(t, ticket.CompletedAt)
	assert.Equal(t, first, *ticket.CompletedAt)

	l.RecordTransition(ticket, entity.StatusInProgress, tech, "", first.Add(time.Hour))
	l.RecordTransition(ticket, entity.StatusRepaired, tech, "", first.Add(2*time.Hour))
	l.RecordTransition(ticket, entity.StatusCompleted, tech, "", first.Add(3*time.Hour))

	assert.Equal(t, first, *ticket.CompletedAt)
}

func TestRecordTransition_CompletionPopulatesFinalPrice(t *testing.T) {
	l := NewStatusLedger(sequentialIDs("id"))
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	ticket := &entity.Ticket{ID: "t1", Status: entity.StatusRepaired, EstimatedPrice: decimal.NewFromInt(150)}

	rec := l.RecordTransition(ticket, entity.StatusCompleted, tech, "", now)

	require.NotNil(t, ticket.FinalPrice)
	assert.True(t, ticket.FinalPrice.Equal(decimal.NewFromInt(150)))
	require.Len(t, rec.Adjustments, 1)
	assert.Nil(t, rec.Adjustments[0].OldPrice)
	assert.Equal(t, AutoPriceReason, rec.Adjustments[0].Reason)

	existing := decimal.NewFromInt(90)
	other := &entity.Ticket{ID: "t2", Status: entity.StatusRepaired, EstimatedPrice: decimal.NewFromInt(150), FinalPrice: &existing}
	rec = l.RecordTransition(other, entity.StatusCompleted, tech, "", now)
	assert.Empty(t, rec.Adjustments)
	assert.True(t, other.FinalPrice.Equal(existing))
}

func TestOnEnter_CustomHook(t *testing.T) {
	l := NewStatusLedger(nil)
	var seen []entity.TicketStatus
	l.OnEnter(entity.StatusCancelled, func(tc *TransitionContext) {
		seen = append(seen, tc.From, tc.To)
	})

	l.RecordTransition(&entity.Ticket{Status: entity.StatusReceived}, entity.StatusCancelled, tech, "", time.Now())

	assert.Equal(t, []entity.TicketStatus{entity.StatusReceived, entity.StatusCancelled}, seen)
}
