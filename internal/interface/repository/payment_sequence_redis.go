package repository

import (
	"context"
	"fmt"
	"time"

	"repairdesk-service/internal/domain/entity"
	"repairdesk-service/internal/domain/repository"

	"github.com/redis/go-redis/v9"
)

const paymentSequenceTTL = 48 * time.Hour

// RedisPaymentSequence issues daily payment sequence numbers with INCR
type RedisPaymentSequence struct {
	client redis.Cmdable
}

// NewRedisPaymentSequence creates a redis-backed payment sequence
func NewRedisPaymentSequence(client redis.Cmdable) repository.PaymentSequence {
	return &RedisPaymentSequence{client: client}
}

func paymentSequenceKey(day time.Time) string {
	return "payseq:" + day.Format("20060102")
}

// Next increments the day's counter. The first number of a day is seeded from
// the payments already stored so a flushed redis does not reissue numbers.
func (s *RedisPaymentSequence) Next(ctx context.Context, store repository.Store, day time.Time) (int64, error) {
	key := paymentSequenceKey(day)

	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment payment sequence: %w", err)
	}
	if n != 1 {
		return n, nil
	}

	existing, err := store.Payments().CountByNumberPrefix(ctx, entity.PaymentNumberPrefix(day))
	if err != nil {
		return 0, fmt.Errorf("failed to seed payment sequence: %w", err)
	}
	if existing > 0 {
		n, err = s.client.IncrBy(ctx, key, existing).Result()
		if err != nil {
			return 0, fmt.Errorf("failed to seed payment sequence: %w", err)
		}
	}
	if err := s.client.Expire(ctx, key, paymentSequenceTTL).Err(); err != nil {
		return 0, fmt.Errorf("failed to set payment sequence expiry: %w", err)
	}
	return n, nil
}
