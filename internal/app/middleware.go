package app

import (
	"github.com/quizlab/trivia-backend/internal/http/middleware"
	"github.com/quizlab/trivia-backend/internal/logger"
)

type Middleware struct {
	ClientKey *middleware.ClientKeyMiddleware
	RateLimit *middleware.RateLimitMiddleware
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		ClientKey: middleware.NewClientKeyMiddleware(log, services.DeviceToken),
		RateLimit: middleware.NewRateLimitMiddleware(log, services.RateLimiter),
	}
}
