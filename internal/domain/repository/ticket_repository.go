package repository

import (
	"context"
	"errors"
	"time"

	"repairdesk-service/internal/domain/entity"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("record not found")

// TicketRepository defines ticket and ledger storage operations
type TicketRepository interface {
	// GetForUpdate reads a ticket, soft-deleted ones included, and locks its row until the transaction ends
	GetForUpdate(ctx context.Context, id string) (*entity.Ticket, error)
	GetByID(ctx context.Context, id string) (*entity.Ticket, error)
	Save(ctx context.Context, ticket *entity.Ticket) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
	// HardDelete removes the ticket with its history, price adjustments and part usages
	HardDelete(ctx context.Context, id string) error
	AppendHistory(ctx context.Context, entry *entity.StatusHistoryEntry) error
	AppendPriceAdjustment(ctx context.Context, adj *entity.PriceAdjustment) error
	History(ctx context.Context, ticketID string) ([]entity.StatusHistoryEntry, error)
	PriceAdjustments(ctx context.Context, ticketID string) ([]entity.PriceAdjustment, error)
	PartUsages(ctx context.Context, ticketID string) ([]entity.PartUsage, error)
}

// PaymentRepository defines payment storage operations. Payments are append-only.
type PaymentRepository interface {
	ListByTicket(ctx context.Context, ticketID string) ([]entity.Payment, error)
	CountByTicket(ctx context.Context, ticketID string) (int64, error)
	CountByNumberPrefix(ctx context.Context, prefix string) (int64, error)
	Create(ctx context.Context, payment *entity.Payment) error
}

// PartRepository defines inventory operations used by ticket deletion
type PartRepository interface {
	IncrementStock(ctx context.Context, partID string, quantity int) error
}

// ReturnRepository defines return record lookups
type ReturnRepository interface {
	CountByTicket(ctx context.Context, ticketID string) (int64, error)
}

// UserRepository resolves acting users
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
}

// CustomerRepository resolves ticket owners
type CustomerRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Customer, error)
}

// Store exposes repositories bound to a single unit of work
type Store interface {
	Tickets() TicketRepository
	Payments() PaymentRepository
	Parts() PartRepository
	Returns() ReturnRepository
	Users() UserRepository
	Customers() CustomerRepository
}

// UnitOfWork runs fn inside one transaction. Returning an error from fn rolls it back.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, store Store) error) error
}

// PaymentSequence hands out the next daily payment sequence number
type PaymentSequence interface {
	Next(ctx context.Context, store Store, day time.Time) (int64, error)
}
