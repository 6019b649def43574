package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"repairdesk-service/internal/domain/entity"
	"repairdesk-service/internal/domain/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTicketRepository implements the TicketRepository interface
type GormTicketRepository struct {
	db *gorm.DB
}

// NewGormTicketRepository creates a new GORM ticket repository
func NewGormTicketRepository(db *gorm.DB) repository.TicketRepository {
	return &GormTicketRepository{
		db: db,
	}
}

// Tickets GORM model for database mapping
type Tickets struct {
	ID             string              `gorm:"type:uuid;primaryKey"`
	TicketNumber   string              `gorm:"column:ticket_number;uniqueIndex;not null"`
	CustomerID     string              `gorm:"column:customer_id;type:uuid;index;not null"`
	Customer       *Customers          `gorm:"foreignKey:CustomerID"`
	AssigneeID     *string             `gorm:"column:assignee_id;type:uuid;index"`
	Assignee       *Users              `gorm:"foreignKey:AssigneeID"`
	Device         string              `gorm:"column:device"`
	Status         string              `gorm:"column:status;type:varchar(32);index;not null"`
	EstimatedPrice decimal.Decimal     `gorm:"column:estimated_price;type:decimal(12,2);not null;default:0"`
	FinalPrice     decimal.NullDecimal `gorm:"column:final_price;type:decimal(12,2)"`
	Paid           bool                `gorm:"column:paid;not null;default:false"`
	Notes          string              `gorm:"column:notes;type:text"`
	CompletedAt    *time.Time          `gorm:"column:completed_at"`
	DeletedAt      gorm.DeletedAt      `gorm:"index"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName overrides the default table name
func (Tickets) TableName() string {
	return "tickets"
}

// StatusHistories GORM model for database mapping
type StatusHistories struct {
	ID          string    `gorm:"type:uuid;primaryKey"`
	TicketID    string    `gorm:"column:ticket_id;type:uuid;index;not null"`
	Ticket      *Tickets  `gorm:"foreignKey:TicketID"`
	FromStatus  string    `gorm:"column:from_status;type:varchar(32)"`
	Status      string    `gorm:"column:status;type:varchar(32);not null"`
	Notes       string    `gorm:"column:notes;type:text"`
	ChangedByID string    `gorm:"column:changed_by_id;type:uuid;not null"`
	ChangedBy   *Users    `gorm:"foreignKey:ChangedByID"`
	CreatedAt   time.Time `gorm:"index"`
}

// TableName overrides the default table name
func (StatusHistories) TableName() string {
	return "status_history"
}

// PriceAdjustments GORM model for database mapping
type PriceAdjustments struct {
	ID           string              `gorm:"type:uuid;primaryKey"`
	TicketID     string              `gorm:"column:ticket_id;type:uuid;index;not null"`
	Ticket       *Tickets            `gorm:"foreignKey:TicketID"`
	OldPrice     decimal.NullDecimal `gorm:"column:old_price;type:decimal(12,2)"`
	NewPrice     decimal.Decimal     `gorm:"column:new_price;type:decimal(12,2);not null"`
	Reason       string              `gorm:"column:reason;type:text;not null"`
	AdjustedByID string              `gorm:"column:adjusted_by_id;type:uuid;not null"`
	AdjustedBy   *Users              `gorm:"foreignKey:AdjustedByID"`
	CreatedAt    time.Time           `gorm:"index"`
}

// TableName overrides the default table name
func (PriceAdjustments) TableName() string {
	return "price_adjustments"
}

// PartUsages GORM model for database mapping
type PartUsages struct {
	ID        string   `gorm:"type:uuid;primaryKey"`
	TicketID  string   `gorm:"column:ticket_id;type:uuid;index;not null"`
	Ticket    *Tickets `gorm:"foreignKey:TicketID"`
	PartID    string   `gorm:"column:part_id;type:uuid;index;not null"`
	Part      *Parts   `gorm:"foreignKey:PartID"`
	Quantity  int      `gorm:"column:quantity;not null"`
	CreatedAt time.Time
}

// TableName overrides the default table name
func (PartUsages) TableName() string {
	return "part_usages"
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func decimalPtr(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

func toTicketModel(t *entity.Ticket) Tickets {
	model := Tickets{
		ID:             t.ID,
		TicketNumber:   t.TicketNumber,
		CustomerID:     t.CustomerID,
		AssigneeID:     t.AssigneeID,
		Device:         t.Device,
		Status:         string(t.Status),
		EstimatedPrice: t.EstimatedPrice,
		FinalPrice:     nullDecimal(t.FinalPrice),
		Paid:           t.Paid,
		Notes:          t.Notes,
		CompletedAt:    t.CompletedAt,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
	if t.DeletedAt != nil {
		model.DeletedAt = gorm.DeletedAt{Time: *t.DeletedAt, Valid: true}
	}
	return model
}

func toTicketEntity(m *Tickets) *entity.Ticket {
	t := &entity.Ticket{
		ID:             m.ID,
		TicketNumber:   m.TicketNumber,
		CustomerID:     m.CustomerID,
		AssigneeID:     m.AssigneeID,
		Device:         m.Device,
		Status:         entity.TicketStatus(m.Status),
		EstimatedPrice: m.EstimatedPrice,
		FinalPrice:     decimalPtr(m.FinalPrice),
		Paid:           m.Paid,
		Notes:          m.Notes,
		CompletedAt:    m.CompletedAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	if m.DeletedAt.Valid {
		at := m.DeletedAt.Time
		t.DeletedAt = &at
	}
	return t
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repository.ErrNotFound
	}
	return err
}

// GetForUpdate reads a ticket with a row lock
func (r *GormTicketRepository) GetForUpdate(ctx context.Context, id string) (*entity.Ticket, error) {
	var ticket Tickets
	result := r.db.WithContext(ctx).Unscoped().
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&ticket)
	if result.Error != nil {
		return nil, notFound(result.Error)
	}
	return toTicketEntity(&ticket), nil
}

// GetByID finds a ticket by id, soft-deleted ones included
func (r *GormTicketRepository) GetByID(ctx context.Context, id string) (*entity.Ticket, error) {
	var ticket Tickets
	result := r.db.WithContext(ctx).Unscoped().Where("id = ?", id).First(&ticket)
	if result.Error != nil {
		return nil, notFound(result.Error)
	}
	return toTicketEntity(&ticket), nil
}

// Save writes every mutable ticket column
func (r *GormTicketRepository) Save(ctx context.Context, ticket *entity.Ticket) error {
	model := toTicketModel(ticket)
	result := r.db.WithContext(ctx).Model(&Tickets{}).
		Where("id = ?", ticket.ID).
		Select("assignee_id", "status", "final_price", "paid", "notes", "completed_at", "updated_at").
		Updates(&model)
	if result.Error != nil {
		return fmt.Errorf("failed to save ticket: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// SoftDelete stamps deleted_at and keeps every row
func (r *GormTicketRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&Tickets{}).
		Where("id = ?", id).
		UpdateColumn("deleted_at", at)
	if result.Error != nil {
		return fmt.Errorf("failed to soft delete ticket: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// HardDelete removes the ticket and its child rows
func (r *GormTicketRepository) HardDelete(ctx context.Context, id string) error {
	db := r.db.WithContext(ctx)
	for _, child := range []interface{}{&PartUsages{}, &StatusHistories{}, &PriceAdjustments{}} {
		if err := db.Where("ticket_id = ?", id).Delete(child).Error; err != nil {
			return fmt.Errorf("failed to delete ticket children: %w", err)
		}
	}
	result := db.Unscoped().Where("id = ?", id).Delete(&Tickets{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete ticket: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// AppendHistory inserts a status history entry
func (r *GormTicketRepository) AppendHistory(ctx context.Context, entry *entity.StatusHistoryEntry) error {
	model := StatusHistories{
		ID:          entry.ID,
		TicketID:    entry.TicketID,
		FromStatus:  string(entry.FromStatus),
		Status:      string(entry.Status),
		Notes:       entry.Notes,
		ChangedByID: entry.ChangedByID,
		CreatedAt:   entry.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("failed to append status history: %w", err)
	}
	return nil
}

// AppendPriceAdjustment inserts a price adjustment entry
func (r *GormTicketRepository) AppendPriceAdjustment(ctx context.Context, adj *entity.PriceAdjustment) error {
	model := PriceAdjustments{
		ID:           adj.ID,
		TicketID:     adj.TicketID,
		OldPrice:     nullDecimal(adj.OldPrice),
		NewPrice:     adj.NewPrice,
		Reason:       adj.Reason,
		AdjustedByID: adj.AdjustedByID,
		CreatedAt:    adj.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("failed to append price adjustment: %w", err)
	}
	return nil
}

// History lists status history in insertion order
func (r *GormTicketRepository) History(ctx context.Context, ticketID string) ([]entity.StatusHistoryEntry, error) {
	var rows []StatusHistories
	result := r.db.WithContext(ctx).Where("ticket_id = ?", ticketID).Order("created_at ASC").Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}

	entries := make([]entity.StatusHistoryEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, entity.StatusHistoryEntry{
			ID:          row.ID,
			TicketID:    row.TicketID,
			FromStatus:  entity.TicketStatus(row.FromStatus),
			Status:      entity.TicketStatus(row.Status),
			Notes:       row.Notes,
			ChangedByID: row.ChangedByID,
			CreatedAt:   row.CreatedAt,
		})
	}
	return entries, nil
}

// PriceAdjustments lists price adjustments in insertion order
func (r *GormTicketRepository) PriceAdjustments(ctx context.Context, ticketID string) ([]entity.PriceAdjustment, error) {
	var rows []PriceAdjustments
	result := r.db.WithContext(ctx).Where("ticket_id = ?", ticketID).Order("created_at ASC").Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}

	adjustments := make([]entity.PriceAdjustment, 0, len(rows))
	for _, row := range rows {
		adjustments = append(adjustments, entity.PriceAdjustment{
			ID:           row.ID,
			TicketID:     row.TicketID,
			OldPrice:     decimalPtr(row.OldPrice),
			NewPrice:     row.NewPrice,
			Reason:       row.Reason,
			AdjustedByID: row.AdjustedByID,
			CreatedAt:    row.CreatedAt,
		})
	}
	return adjustments, nil
}

// PartUsages lists parts consumed by a ticket
func (r *GormTicketRepository) PartUsages(ctx context.Context, ticketID string) ([]entity.PartUsage, error) {
	var rows []PartUsages
	result := r.db.WithContext(ctx).Where("ticket_id = ?", ticketID).Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}

	usages := make([]entity.PartUsage, 0, len(rows))
	for _, row := range rows {
		usages = append(usages, entity.PartUsage{
			ID:        row.ID,
			TicketID:  row.TicketID,
			PartID:    row.PartID,
			Quantity:  row.Quantity,
			CreatedAt: row.CreatedAt,
		})
	}
	return usages, nil
}
