package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/quizlab/trivia-backend/internal/logger"
	"github.com/quizlab/trivia-backend/internal/types"
)

const sessionKeyPrefix = "quiz:session:"

// casAttempts bounds optimistic-transaction retries against interleaved
// writers before the conflict is surfaced to the engine.
const casAttempts = 3

type redisStore struct {
	log       *logger.Logger
	rdb       *goredis.Client
	retention time.Duration
}

// NewRedisStore returns a SessionStore backed by redis. Keys carry a TTL of
// the session deadline plus retention, so terminal records stay readable for
// a while and then vanish without a separate purge job.
func NewRedisStore(rdb *goredis.Client, baseLog *logger.Logger, retention time.Duration) SessionStore {
	return &redisStore{
		log:       baseLog.With("store", "RedisSessionStore"),
		rdb:       rdb,
		retention: retention,
	}
}

func sessionKey(sessionID string) string {
	return sessionKeyPrefix + sessionID
}

func (s *redisStore) keyTTL(rec *types.QuizSession) time.Duration {
	ttl := time.Until(rec.ExpiresAt) + s.retention
	if ttl < time.Minute {
		ttl = time.Minute
	}
	return ttl
}

func (s *redisStore) Create(ctx context.Context, rec *types.QuizSession) error {
	rec.Version = 1
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ok, err := s.rdb.SetNX(ctx, sessionKey(rec.SessionID), raw, s.keyTTL(rec)).Result()
	if err != nil {
		return fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return ErrAlreadyExists
	}
	return nil
}

func (s *redisStore) Get(ctx context.Context, sessionID string) (*types.QuizSession, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var rec types.QuizSession
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &rec, nil
}

func (s *redisStore) CompareAndSwap(ctx context.Context, sessionID string, expectedVersion int64, rec *types.QuizSession) error {
	key := sessionKey(sessionID)

	txf := func(tx *goredis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, goredis.Nil) {
				return ErrNotFound
			}
			return err
		}
		var current types.QuizSession
		if err := json.Unmarshal(raw, &current); err != nil {
			return fmt.Errorf("unmarshal session: %w", err)
		}
		if current.Version != expectedVersion {
			return ErrVersionConflict
		}

		rec.Version = expectedVersion + 1
		next, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, next, s.keyTTL(rec))
			return nil
		})
		return err
	}

	for i := 0; i < casAttempts; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		// TxFailedErr means the watched key changed under us; re-read and
		// re-check the version rather than giving up immediately.
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrVersionConflict
}

func (s *redisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.rdb.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (s *redisStore) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	iter := s.rdb.Scan(ctx, 0, sessionKeyPrefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimPrefix(iter.Val(), sessionKeyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return ids, nil
}
