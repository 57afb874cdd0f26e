package ratelimit

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const counterKeyPrefix = "quiz:rl:"

type redisCounterStore struct {
	rdb *goredis.Client
}

// NewRedisCounterStore returns a CounterStore backed by redis INCR with a
// window TTL. Expiry handles sweeping, so there is no explicit cleanup pass.
func NewRedisCounterStore(rdb *goredis.Client) CounterStore {
	return &redisCounterStore{rdb: rdb}
}

func (s *redisCounterStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	fullKey := counterKeyPrefix + key

	pipe := s.rdb.TxPipeline()
	incr := pipe.Incr(ctx, fullKey)
	// NX keeps the window anchored at the first request; later increments in
	// the same window must not push the reset out.
	pipe.ExpireNX(ctx, fullKey, window)
	ttl := pipe.PTTL(ctx, fullKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, fmt.Errorf("redis counter pipeline: %w", err)
	}

	remaining := ttl.Val()
	if remaining < 0 {
		remaining = window
	}
	return incr.Val(), time.Now().Add(remaining), nil
}
