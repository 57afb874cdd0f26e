package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/quizlab/trivia-backend/internal/http/response"
	"github.com/quizlab/trivia-backend/internal/logger"
	"github.com/quizlab/trivia-backend/internal/ratelimit"
)

type RateLimitMiddleware struct {
	log     *logger.Logger
	limiter *ratelimit.Limiter
}

func NewRateLimitMiddleware(log *logger.Logger, limiter *ratelimit.Limiter) *RateLimitMiddleware {
	middlewareLog := log.With("middleware", "RateLimitMiddleware")
	return &RateLimitMiddleware{log: middlewareLog, limiter: limiter}
}

// Limit counts the request against policyName for the resolved client key.
// Quota headers are set on every response, throttled or not.
func (m *RateLimitMiddleware) Limit(policyName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientKey := ClientKeyFromContext(c)
		if clientKey == "" {
			clientKey = "ip:" + c.ClientIP()
		}
		routeKey := c.FullPath()
		if routeKey == "" {
			routeKey = c.Request.URL.Path
		}

		result, err := m.limiter.Allow(c.Request.Context(), clientKey, routeKey, policyName)
		if err != nil && !errors.Is(err, ratelimit.ErrRateLimited) {
			// A broken counter backend must not take the API down with it.
			m.log.Error("Rate limiter unavailable, letting request through", "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if errors.Is(err, ratelimit.ErrRateLimited) {
			retryAfter := result.RetryAfterSeconds()
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": response.APIError{
					Message: "rate limit exceeded",
					Code:    "rate_limited",
				},
				"retry_after_seconds": retryAfter,
			})
			return
		}
		c.Next()
	}
}
