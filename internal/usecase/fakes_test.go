package usecase

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"

	"repairdesk-service/internal/domain/entity"
	"repairdesk-service/internal/domain/repository"
	"repairdesk-service/pkg/logger"
	"repairdesk-service/pkg/metrics"
)

// memStore is an in-memory Store. Do snapshots state and restores it when fn fails.
type memStore struct {
	mu          sync.Mutex
	tickets     map[string]*entity.Ticket
	users       map[string]*entity.User
	customers   map[string]*entity.Customer
	payments    []entity.Payment
	history     []entity.StatusHistoryEntry
	adjustments []entity.PriceAdjustment
	usages      []entity.PartUsage
	stock       map[string]int
	returns     map[string]int64

	historyErr error
	loadErr    error
}

func newMemStore() *memStore {
	return &memStore{
		tickets:   make(map[string]*entity.Ticket),
		users:     make(map[string]*entity.User),
		customers: make(map[string]*entity.Customer),
		stock:     make(map[string]int),
		returns:   make(map[string]int64),
	}
}

type memSnapshot struct {
	tickets     map[string]*entity.Ticket
	payments    []entity.Payment
	history     []entity.StatusHistoryEntry
	adjustments []entity.PriceAdjustment
	usages      []entity.PartUsage
	stock       map[string]int
}

func (s *memStore) snapshot() memSnapshot {
	snap := memSnapshot{
		tickets:     make(map[string]*entity.Ticket, len(s.tickets)),
		payments:    append([]entity.Payment(nil), s.payments...),
		history:     append([]entity.StatusHistoryEntry(nil), s.history...),
		adjustments: append([]entity.PriceAdjustment(nil), s.adjustments...),
		usages:      append([]entity.PartUsage(nil), s.usages...),
		stock:       make(map[string]int, len(s.stock)),
	}
	for id, t := range s.tickets {
		snap.tickets[id] = t.Clone()
	}
	for id, q := range s.stock {
		snap.stock[id] = q
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.tickets = snap.tickets
	s.payments = snap.payments
	s.history = snap.history
	s.adjustments = snap.adjustments
	s.usages = snap.usages
	s.stock = snap.stock
}

func (s *memStore) Do(ctx context.Context, fn func(ctx context.Context, store repository.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(ctx, s); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *memStore) Tickets() repository.TicketRepository     { return memTickets{s} }
func (s *memStore) Payments() repository.PaymentRepository   { return memPayments{s} }
func (s *memStore) Parts() repository.PartRepository         { return memParts{s} }
func (s *memStore) Returns() repository.ReturnRepository     { return memReturns{s} }
func (s *memStore) Users() repository.UserRepository         { return memUsers{s} }
func (s *memStore) Customers() repository.CustomerRepository { return memCustomers{s} }

func (s *memStore) historyFor(ticketID string) []entity.StatusHistoryEntry {
	var out []entity.StatusHistoryEntry
	for _, h := range s.history {
		if h.TicketID == ticketID {
			out = append(out, h)
		}
	}
	return out
}

func (s *memStore) adjustmentsFor(ticketID string) []entity.PriceAdjustment {
	var out []entity.PriceAdjustment
	for _, a := range s.adjustments {
		if a.TicketID == ticketID {
			out = append(out, a)
		}
	}
	return out
}

func (s *memStore) paymentsFor(ticketID string) []entity.Payment {
	var out []entity.Payment
	for _, p := range s.payments {
		if p.TicketID == ticketID {
			out = append(out, p)
		}
	}
	return out
}

type memTickets struct{ s *memStore }

func (r memTickets) GetForUpdate(ctx context.Context, id string) (*entity.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r memTickets) GetByID(ctx context.Context, id string) (*entity.Ticket, error) {
	if r.s.loadErr != nil {
		return nil, r.s.loadErr
	}
	t, ok := r.s.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return t.Clone(), nil
}

func (r memTickets) Save(ctx context.Context, ticket *entity.Ticket) error {
	if _, ok := r.s.tickets[ticket.ID]; !ok {
		return repository.ErrNotFound
	}
	r.s.tickets[ticket.ID] = ticket.Clone()
	return nil
}

func (r memTickets) SoftDelete(ctx context.Context, id string, at time.Time) error {
	t, ok := r.s.tickets[id]
	if !ok {
		return repository.ErrNotFound
	}
	t.DeletedAt = &at
	return nil
}

func (r memTickets) HardDelete(ctx context.Context, id string) error {
	if _, ok := r.s.tickets[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.tickets, id)

	var usages []entity.PartUsage
	for _, u := range r.s.usages {
		if u.TicketID != id {
			usages = append(usages, u)
		}
	}
	r.s.usages = usages

	var history []entity.StatusHistoryEntry
	for _, h := range r.s.history {
		if h.TicketID != id {
			history = append(history, h)
		}
	}
	r.s.history = history

	var adjustments []entity.PriceAdjustment
	for _, a := range r.s.adjustments {
		if a.TicketID != id {
			adjustments = append(adjustments, a)
		}
	}
	r.s.adjustments = adjustments
	return nil
}

func (r memTickets) AppendHistory(ctx context.Context, entry *entity.StatusHistoryEntry) error {
	if r.s.historyErr != nil {
		return r.s.historyErr
	}
	r.s.history = append(r.s.history, *entry)
	return nil
}

func (r memTickets) AppendPriceAdjustment(ctx context.Context, adj *entity.PriceAdjustment) error {
	r.s.adjustments = append(r.s.adjustments, *adj)
	return nil
}

func (r memTickets) History(ctx context.Context, ticketID string) ([]entity.StatusHistoryEntry, error) {
	return r.s.historyFor(ticketID), nil
}

func (r memTickets) PriceAdjustments(ctx context.Context, ticketID string) ([]entity.PriceAdjustment, error) {
	return r.s.adjustmentsFor(ticketID), nil
}

func (r memTickets) PartUsages(ctx context.Context, ticketID string) ([]entity.PartUsage, error) {
	var out []entity.PartUsage
	for _, u := range r.s.usages {
		if u.TicketID == ticketID {
			out = append(out, u)
		}
	}
	return out, nil
}

type memPayments struct{ s *memStore }

func (r memPayments) ListByTicket(ctx context.Context, ticketID string) ([]entity.Payment, error) {
	out := r.s.paymentsFor(ticketID)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r memPayments) CountByTicket(ctx context.Context, ticketID string) (int64, error) {
	return int64(len(r.s.paymentsFor(ticketID))), nil
}

func (r memPayments) CountByNumberPrefix(ctx context.Context, prefix string) (int64, error) {
	var n int64
	for _, p := range r.s.payments {
		if strings.HasPrefix(p.PaymentNumber, prefix) {
			n++
		}
	}
	return n, nil
}

func (r memPayments) Create(ctx context.Context, payment *entity.Payment) error {
	for _, p := range r.s.payments {
		if p.PaymentNumber == payment.PaymentNumber {
			return &pgconn.PgError{
				Code:           "23505",
				ConstraintName: "idx_payments_payment_number",
				Detail:         "Key (payment_number)=(" + payment.PaymentNumber + ") already exists.",
			}
		}
	}
	r.s.payments = append(r.s.payments, *payment)
	return nil
}

type memParts struct{ s *memStore }

func (r memParts) IncrementStock(ctx context.Context, partID string, quantity int) error {
	if _, ok := r.s.stock[partID]; !ok {
		return repository.ErrNotFound
	}
	r.s.stock[partID] += quantity
	return nil
}

type memReturns struct{ s *memStore }

func (r memReturns) CountByTicket(ctx context.Context, ticketID string) (int64, error) {
	return r.s.returns[ticketID], nil
}

type memUsers struct{ s *memStore }

func (r memUsers) GetByID(ctx context.Context, id string) (*entity.User, error) {
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

type memCustomers struct{ s *memStore }

func (r memCustomers) GetByID(ctx context.Context, id string) (*entity.Customer, error) {
	c, ok := r.s.customers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return c, nil
}

// recordingPublisher collects published events synchronously
type recordingPublisher struct {
	mu     sync.Mutex
	events []entity.DomainEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, events ...entity.DomainEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
}

func (p *recordingPublisher) actions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Action)
	}
	return out
}

// scriptedSequence returns the given numbers in order, then keeps returning the last one
type scriptedSequence struct {
	numbers []int64
	calls   int
}

func (s *scriptedSequence) Next(ctx context.Context, store repository.Store, day time.Time) (int64, error) {
	i := s.calls
	if i >= len(s.numbers) {
		i = len(s.numbers) - 1
	}
	s.calls++
	return s.numbers[i], nil
}

func newTestMetrics() *metrics.Metrics {
	return metrics.NewMetrics("repairdesk_test", prometheus.NewRegistry())
}

func newTestLogger() logger.Logger {
	return logger.NewNop()
}
