package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"repairdesk-service/internal/domain/entity"
	"repairdesk-service/internal/domain/repository"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PaymentNumberIndex is the unique index guarding payment numbers
const PaymentNumberIndex = "idx_payments_payment_number"

// GormPaymentRepository implements the PaymentRepository interface
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GORM payment repository
func NewGormPaymentRepository(db *gorm.DB) repository.PaymentRepository {
	return &GormPaymentRepository{
		db: db,
	}
}

// Payments GORM model for database mapping
type Payments struct {
	ID                string          `gorm:"type:uuid;primaryKey"`
	TicketID          string          `gorm:"column:ticket_id;type:uuid;index;not null"`
	Ticket            *Tickets        `gorm:"foreignKey:TicketID"`
	PaymentNumber     string          `gorm:"column:payment_number;uniqueIndex:idx_payments_payment_number;not null"`
	Amount            decimal.Decimal `gorm:"column:amount;type:decimal(12,2);not null"`
	Method            string          `gorm:"column:method;type:varchar(32);not null"`
	Currency          string          `gorm:"column:currency;type:varchar(8);not null"`
	PerformedByID     string          `gorm:"column:performed_by_id;type:uuid;not null"`
	PerformedBy       *Users          `gorm:"foreignKey:PerformedByID"`
	IsAdjustment      bool            `gorm:"column:is_adjustment;not null;default:false"`
	AdjustmentType    *string         `gorm:"column:adjustment_type;type:varchar(32)"`
	OriginalPaymentID *string         `gorm:"column:original_payment_id;type:uuid"`
	OriginalPayment   *Payments       `gorm:"foreignKey:OriginalPaymentID"`
	Metadata          datatypes.JSON  `gorm:"column:metadata"`
	CreatedAt         time.Time       `gorm:"index"`
}

// TableName overrides the default table name
func (Payments) TableName() string {
	return "payments"
}

func toPaymentEntity(m *Payments) (entity.Payment, error) {
	p := entity.Payment{
		ID:                m.ID,
		TicketID:          m.TicketID,
		PaymentNumber:     m.PaymentNumber,
		Amount:            m.Amount,
		Method:            m.Method,
		Currency:          m.Currency,
		PerformedByID:     m.PerformedByID,
		IsAdjustment:      m.IsAdjustment,
		OriginalPaymentID: m.OriginalPaymentID,
		CreatedAt:         m.CreatedAt,
	}
	if m.AdjustmentType != nil {
		t := entity.AdjustmentType(*m.AdjustmentType)
		p.AdjustmentType = &t
	}
	if len(m.Metadata) > 0 {
		if err := json.Unmarshal(m.Metadata, &p.Metadata); err != nil {
			return p, fmt.Errorf("failed to decode payment metadata: %w", err)
		}
	}
	return p, nil
}

// ListByTicket lists a ticket's payments, oldest first
func (r *GormPaymentRepository) ListByTicket(ctx context.Context, ticketID string) ([]entity.Payment, error) {
	var rows []Payments
	result := r.db.WithContext(ctx).Where("ticket_id = ?", ticketID).Order("created_at ASC").Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}

	payments := make([]entity.Payment, 0, len(rows))
	for i := range rows {
		p, err := toPaymentEntity(&rows[i])
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, nil
}

// CountByTicket counts a ticket's payments
func (r *GormPaymentRepository) CountByTicket(ctx context.Context, ticketID string) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&Payments{}).Where("ticket_id = ?", ticketID).Count(&count)
	return count, result.Error
}

// CountByNumberPrefix counts payments whose number starts with prefix
func (r *GormPaymentRepository) CountByNumberPrefix(ctx context.Context, prefix string) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&Payments{}).Where("payment_number LIKE ?", prefix+"%").Count(&count)
	return count, result.Error
}

// Create inserts a payment
func (r *GormPaymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	model := Payments{
		ID:                payment.ID,
		TicketID:          payment.TicketID,
		PaymentNumber:     payment.PaymentNumber,
		Amount:            payment.Amount,
		Method:            payment.Method,
		Currency:          payment.Currency,
		PerformedByID:     payment.PerformedByID,
		IsAdjustment:      payment.IsAdjustment,
		OriginalPaymentID: payment.OriginalPaymentID,
		CreatedAt:         payment.CreatedAt,
	}
	if payment.AdjustmentType != nil {
		t := string(*payment.AdjustmentType)
		model.AdjustmentType = &t
	}
	if payment.Metadata != nil {
		raw, err := json.Marshal(payment.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode payment metadata: %w", err)
		}
		model.Metadata = datatypes.JSON(raw)
	}

	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	payment.CreatedAt = model.CreatedAt
	return nil
}
