package usecase

import (
	"context"
	"fmt"
	"time"

	"repairdesk-service/internal/domain/entity"
	"repairdesk-service/internal/domain/repository"
)

// DatabasePaymentSequence counts the day's payment numbers inside the transaction.
// Concurrent writers can read the same count; the unique index on payment_number
// turns that into a retryable conflict.
type DatabasePaymentSequence struct{}

// NewDatabasePaymentSequence creates a count-based payment sequence
func NewDatabasePaymentSequence() repository.PaymentSequence {
	return DatabasePaymentSequence{}
}

// Next returns the count of the day's payments plus one
func (DatabasePaymentSequence) Next(ctx context.Context, store repository.Store, day time.Time) (int64, error) {
	count, err := store.Payments().CountByNumberPrefix(ctx, entity.PaymentNumberPrefix(day))
	if err != nil {
		return 0, fmt.Errorf("failed to count payments: %w", err)
	}
	return count + 1, nil
}

func allocatePaymentNumber(ctx context.Context, seq repository.PaymentSequence, store repository.Store, now time.Time) (string, error) {
	n, err := seq.Next(ctx, store, now)
	if err != nil {
		return "", err
	}
	return entity.FormatPaymentNumber(now, n), nil
}
