package app

import (
	"github.com/quizlab/trivia-backend/internal/http/handlers"
	"github.com/quizlab/trivia-backend/internal/logger"
)

type Handlers struct {
	Health  *handlers.HealthHandler
	Token   *handlers.TokenHandler
	Session *handlers.SessionHandler
	Rules   *handlers.RulesHandler
	Pool    *handlers.PoolHandler
}

func wireHandlers(cfg Config, services Services, reposet Repos, log *logger.Logger) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:  handlers.NewHealthHandler(),
		Token:   handlers.NewTokenHandler(services.DeviceToken),
		Session: handlers.NewSessionHandler(services.Session),
		Rules:   handlers.NewRulesHandler(cfg.Quiz),
		Pool:    handlers.NewPoolHandler(reposet.Question),
	}
}
