package repository

import (
	"context"
	"time"

	"repairdesk-service/internal/domain/entity"
	"repairdesk-service/internal/domain/repository"

	"gorm.io/gorm"
)

// GormUserRepository implements the UserRepository interface
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GORM user repository
func NewGormUserRepository(db *gorm.DB) repository.UserRepository {
	return &GormUserRepository{
		db: db,
	}
}

// Users GORM model for database mapping
type Users struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Name      string `gorm:"column:name;not null"`
	Email     string `gorm:"column:email;uniqueIndex"`
	Role      string `gorm:"column:role;type:varchar(32);not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides the default table name
func (Users) TableName() string {
	return "users"
}

// GetByID finds a user by id
func (r *GormUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	var user Users
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&user)
	if result.Error != nil {
		return nil, notFound(result.Error)
	}

	return &entity.User{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      entity.Role(user.Role),
		CreatedAt: user.CreatedAt,
	}, nil
}

// GormCustomerRepository implements the CustomerRepository interface
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewGormCustomerRepository creates a new GORM customer repository
func NewGormCustomerRepository(db *gorm.DB) repository.CustomerRepository {
	return &GormCustomerRepository{
		db: db,
	}
}

// Customers GORM model for database mapping
type Customers struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Name      string `gorm:"column:name;not null"`
	Email     string `gorm:"column:email"`
	Phone     string `gorm:"column:phone"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides the default table name
func (Customers) TableName() string {
	return "customers"
}

// GetByID finds a customer by id
func (r *GormCustomerRepository) GetByID(ctx context.Context, id string) (*entity.Customer, error) {
	var customer Customers
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&customer)
	if result.Error != nil {
		return nil, notFound(result.Error)
	}

	return &entity.Customer{
		ID:        customer.ID,
		Name:      customer.Name,
		Email:     customer.Email,
		Phone:     customer.Phone,
		CreatedAt: customer.CreatedAt,
	}, nil
}

// GormReturnRepository implements the ReturnRepository interface
type GormReturnRepository struct {
	db *gorm.DB
}

// NewGormReturnRepository creates a new GORM return repository
func NewGormReturnRepository(db *gorm.DB) repository.ReturnRepository {
	return &GormReturnRepository{
		db: db,
	}
}

// Returns GORM model for database mapping
type Returns struct {
	ID        string   `gorm:"type:uuid;primaryKey"`
	TicketID  string   `gorm:"column:ticket_id;type:uuid;index;not null"`
	Ticket    *Tickets `gorm:"foreignKey:TicketID"`
	Reason    string   `gorm:"column:reason;type:text"`
	CreatedAt time.Time
}

// TableName overrides the default table name
func (Returns) TableName() string {
	return "returns"
}

// CountByTicket counts return records of a ticket
func (r *GormReturnRepository) CountByTicket(ctx context.Context, ticketID string) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&Returns{}).Where("ticket_id = ?", ticketID).Count(&count)
	return count, result.Error
}
