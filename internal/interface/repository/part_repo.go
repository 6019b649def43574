package repository

import (
	"context"
	"fmt"
	"time"

	"repairdesk-service/internal/domain/repository"

	"gorm.io/gorm"
)

// GormPartRepository implements the PartRepository interface
type GormPartRepository struct {
	db *gorm.DB
}

// NewGormPartRepository creates a new GORM part repository
func NewGormPartRepository(db *gorm.DB) repository.PartRepository {
	return &GormPartRepository{
		db: db,
	}
}

// Parts GORM model for database mapping
type Parts struct {
	ID            string `gorm:"type:uuid;primaryKey"`
	Name          string `gorm:"column:name;not null"`
	SKU           string `gorm:"column:sku;uniqueIndex"`
	StockQuantity int    `gorm:"column:stock_quantity;not null;default:0"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName overrides the default table name
func (Parts) TableName() string {
	return "parts"
}

// IncrementStock adds quantity back to a part's stock
func (r *GormPartRepository) IncrementStock(ctx context.Context, partID string, quantity int) error {
	result := r.db.WithContext(ctx).Model(&Parts{}).
		Where("id = ?", partID).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity + ?", quantity))
	if result.Error != nil {
		return fmt.Errorf("failed to increment stock for part %s: %w", partID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("part %s: %w", partID, repository.ErrNotFound)
	}
	return nil
}
