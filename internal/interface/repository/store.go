package repository

import (
	"context"

	"repairdesk-service/internal/domain/repository"

	"gorm.io/gorm"
)

// gormStore binds every repository to one *gorm.DB, usually a transaction
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a store whose repositories share db
func NewGormStore(db *gorm.DB) repository.Store {
	return &gormStore{db: db}
}

func (s *gormStore) Tickets() repository.TicketRepository     { return NewGormTicketRepository(s.db) }
func (s *gormStore) Payments() repository.PaymentRepository   { return NewGormPaymentRepository(s.db) }
func (s *gormStore) Parts() repository.PartRepository         { return NewGormPartRepository(s.db) }
func (s *gormStore) Returns() repository.ReturnRepository     { return NewGormReturnRepository(s.db) }
func (s *gormStore) Users() repository.UserRepository         { return NewGormUserRepository(s.db) }
func (s *gormStore) Customers() repository.CustomerRepository { return NewGormCustomerRepository(s.db) }

// GormUnitOfWork implements the UnitOfWork interface with database transactions
type GormUnitOfWork struct {
	db *gorm.DB
}

// NewGormUnitOfWork creates a new GORM unit of work
func NewGormUnitOfWork(db *gorm.DB) repository.UnitOfWork {
	return &GormUnitOfWork{db: db}
}

// Do runs fn in a transaction and commits when fn returns nil
func (u *GormUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, store repository.Store) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, NewGormStore(tx))
	})
}

// AutoMigrate creates or updates every relational table
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Users{},
		&Customers{},
		&Parts{},
		&Tickets{},
		&StatusHistories{},
		&PriceAdjustments{},
		&PartUsages{},
		&Payments{},
		&Returns{},
	)
}
