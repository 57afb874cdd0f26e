// Package ratelimit implements a fixed-window request counter keyed by
// (client, route). The counter store is injected so a shared redis can back
// multiple instances while tests run against process memory.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/quizlab/trivia-backend/internal/logger"
)

// ErrRateLimited is returned when a client exceeds its window quota.
var ErrRateLimited = errors.New("rate limited")

// Policy names used by the router.
const (
	PolicyDefault = "default"
	PolicyStrict  = "strict"
	PolicyAuth    = "auth"
)

type Policy struct {
	MaxRequests int64
	Window      time.Duration
}

// Result reports the quota state after counting one request.
type Result struct {
	Allowed    bool
	Limit      int64
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds the wait up to whole seconds for response payloads.
func (r Result) RetryAfterSeconds() int64 {
	return int64(math.Ceil(r.RetryAfter.Seconds()))
}

// CounterStore is the atomic per-key increment behind the limiter. The first
// increment of a key opens a window that resets at the returned time.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)
}

type Limiter struct {
	log      *logger.Logger
	counters CounterStore
	policies map[string]Policy
}

func NewLimiter(counters CounterStore, policies map[string]Policy, baseLog *logger.Logger) *Limiter {
	return &Limiter{
		log:      baseLog.With("service", "RateLimiter"),
		counters: counters,
		policies: policies,
	}
}

// Allow counts one request from clientKey against routeKey's policy. The
// Result is populated even when the request is rejected so callers can always
// report quota headers.
func (l *Limiter) Allow(ctx context.Context, clientKey, routeKey, policyName string) (Result, error) {
	policy, ok := l.policies[policyName]
	if !ok {
		return Result{}, fmt.Errorf("unknown rate limit policy %q", policyName)
	}

	key := clientKey + ":" + routeKey
	count, resetAt, err := l.counters.Incr(ctx, key, policy.Window)
	if err != nil {
		return Result{}, fmt.Errorf("rate limit incr: %w", err)
	}

	remaining := policy.MaxRequests - count
	if remaining < 0 {
		remaining = 0
	}
	res := Result{
		Allowed:   count <= policy.MaxRequests,
		Limit:     policy.MaxRequests,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
	if !res.Allowed {
		res.RetryAfter = time.Until(resetAt)
		if res.RetryAfter < 0 {
			res.RetryAfter = 0
		}
		return res, ErrRateLimited
	}
	return res, nil
}

// DefaultPolicies returns the stock policy set; callers override via config.
func DefaultPolicies() map[string]Policy {
	return map[string]Policy{
		PolicyDefault: {MaxRequests: 100, Window: time.Minute},
		PolicyStrict:  {MaxRequests: 10, Window: time.Minute},
		PolicyAuth:    {MaxRequests: 5, Window: 15 * time.Minute},
	}
}
