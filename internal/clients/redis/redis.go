package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/quizlab/trivia-backend/internal/logger"
	"github.com/quizlab/trivia-backend/internal/utils"
)

// NewClient dials the redis backing the session store and rate-limit counters.
// Fails fast on an unreachable server so misconfiguration surfaces at boot.
func NewClient(log *logger.Logger) (*goredis.Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	clientLog := log.With("client", "Redis")

	addr := strings.TrimSpace(utils.GetEnv("REDIS_ADDR", "localhost:6379", log))
	db := utils.GetEnvAsInt("REDIS_DB", 0, log)

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	clientLog.Info("Connected to redis", "addr", addr)
	return rdb, nil
}
