package events

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper guards non-idempotent handlers against at-least-once redelivery.
// FirstDelivery reports whether an envelope ID is seen for the first time by
// the given queue.
type Deduper interface {
	FirstDelivery(ctx context.Context, queue, envelopeID string) (bool, error)
}

// RedisDeduper marks envelope IDs with SET NX EX. The TTL only has to outlive
// the bus's redelivery window.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &RedisDeduper{client: client, ttl: ttl}
}

func (d *RedisDeduper) FirstDelivery(ctx context.Context, queue, envelopeID string) (bool, error) {
	key := fmt.Sprintf("dedup:%s:%s", queue, envelopeID)
	first, err := d.client.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check dedup key: %w", err)
	}
	return first, nil
}
