package window

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"trustgraph/internal/ratelimit/models"
)

const redisKeyPrefix = "trustgraph:quota:"

// RedisWindowStore implements the fixed-window ledger on Redis so multiple
// replicas share one quota ledger. The fixed-window algorithm maps onto an
// atomic increment with an expiry anchored at the window's first request;
// rejections never touch the TTL, so the window is not extended.
type RedisWindowStore struct {
	client *redis.Client
}

// NewRedis creates a Redis-backed window store.
func NewRedis(client *redis.Client) *RedisWindowStore {
	return &RedisWindowStore{client: client}
}

func (s *RedisWindowStore) Take(ctx context.Context, key string, limit int, window time.Duration) (models.QuotaDecision, error) {
	redisKey := redisKeyPrefix + key

	used, err := s.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return models.QuotaDecision{}, fmt.Errorf("increment quota counter: %w", err)
	}
	// NX keeps the expiry anchored at the first request of the window.
	if err := s.client.ExpireNX(ctx, redisKey, window).Err(); err != nil {
		return models.QuotaDecision{}, fmt.Errorf("set quota window expiry: %w", err)
	}

	if used > int64(limit) {
		return models.QuotaDecision{Allowed: false, Remaining: 0}, nil
	}
	return models.QuotaDecision{Allowed: true, Remaining: limit - int(used)}, nil
}

// Reset deletes every quota counter. Scan-based so it stays safe on shared
// Redis instances.
func (s *RedisWindowStore) Reset(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("delete quota counter: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan quota counters: %w", err)
	}
	return nil
}

func (s *RedisWindowStore) Close() error {
	return nil
}
