package app

import (
	"github.com/quizlab/trivia-backend/internal/logger"
	"github.com/quizlab/trivia-backend/internal/ratelimit"
	"github.com/quizlab/trivia-backend/internal/services"
	"github.com/quizlab/trivia-backend/internal/store"
)

type Services struct {
	Selector    services.SelectorService
	Session     services.SessionService
	Telemetry   services.TelemetryService
	DeviceToken services.DeviceTokenService
	RateLimiter *ratelimit.Limiter
}

func wireServices(cfg Config, reposet Repos, sessions store.SessionStore, counters ratelimit.CounterStore, log *logger.Logger) Services {
	log.Info("Wiring services...")

	telemetry := services.NewTelemetryService(reposet.SessionEvent, reposet.PlayerProgress, cfg.Quiz.RecentHistoryCap, log)
	selector := services.NewSelectorService(reposet.Question, log)
	session := services.NewSessionService(sessions, selector, reposet.Question, reposet.PlayerProgress, telemetry, cfg.Quiz, log)
	deviceToken := services.NewDeviceTokenService(cfg.JWTSecretKey, cfg.DeviceTokenTTL, log)
	limiter := ratelimit.NewLimiter(counters, cfg.RateLimits, log)

	return Services{
		Selector:    selector,
		Session:     session,
		Telemetry:   telemetry,
		DeviceToken: deviceToken,
		RateLimiter: limiter,
	}
}
