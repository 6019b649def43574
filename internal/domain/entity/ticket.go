package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ticket is a repair job for one customer device
type Ticket struct {
	ID             string           `json:"id"`
	TicketNumber   string           `json:"ticketNumber"`
	CustomerID     string           `json:"customerId"`
	AssigneeID     *string          `json:"assigneeId"`
	Device         string           `json:"device"`
	Status         TicketStatus     `json:"status"`
	EstimatedPrice decimal.Decimal  `json:"estimatedPrice"`
	FinalPrice     *decimal.Decimal `json:"finalPrice"`
	Paid           bool             `json:"paid"`
	Notes          string           `json:"notes"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
	CompletedAt    *time.Time       `json:"completedAt,omitempty"`
	DeletedAt      *time.Time       `json:"deletedAt,omitempty"`
}

// IsDeleted reports whether the ticket has been soft-deleted
func (t *Ticket) IsDeleted() bool {
	return t.DeletedAt != nil
}

// EffectivePrice is the final price when set, otherwise the estimate
func (t *Ticket) EffectivePrice() decimal.Decimal {
	if t.FinalPrice != nil {
		return *t.FinalPrice
	}
	return t.EstimatedPrice
}

// Clone returns a copy whose pointer fields do not alias the receiver
func (t *Ticket) Clone() *Ticket {
	c := *t
	if t.AssigneeID != nil {
		id := *t.AssigneeID
		c.AssigneeID = &id
	}
	if t.FinalPrice != nil {
		p := *t.FinalPrice
		c.FinalPrice = &p
	}
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	if t.DeletedAt != nil {
		at := *t.DeletedAt
		c.DeletedAt = &at
	}
	return &c
}

// StatusHistoryEntry records one status transition. Entries are append-only.
type StatusHistoryEntry struct {
	ID          string       `json:"id"`
	TicketID    string       `json:"ticketId"`
	FromStatus  TicketStatus `json:"fromStatus"`
	Status      TicketStatus `json:"status"`
	Notes       string       `json:"notes"`
	ChangedByID string       `json:"changedById"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// PriceAdjustment records one change of a ticket's final price.
// OldPrice is nil for the initial setting.
type PriceAdjustment struct {
	ID           string           `json:"id"`
	TicketID     string           `json:"ticketId"`
	OldPrice     *decimal.Decimal `json:"oldPrice"`
	NewPrice     decimal.Decimal  `json:"newPrice"`
	Reason       string           `json:"reason"`
	AdjustedByID string           `json:"adjustedById"`
	CreatedAt    time.Time        `json:"createdAt"`
}

// Part is an inventory item that can be consumed by tickets
type Part struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	SKU           string `json:"sku"`
	StockQuantity int    `json:"stockQuantity"`
}

// PartUsage records a quantity of a part consumed by a ticket
type PartUsage struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticketId"`
	PartID    string    `json:"partId"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"createdAt"`
}
