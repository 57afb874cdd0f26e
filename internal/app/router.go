package app

import (
	"github.com/gin-gonic/gin"

	"github.com/quizlab/trivia-backend/internal/http/middleware"
	"github.com/quizlab/trivia-backend/internal/logger"
	"github.com/quizlab/trivia-backend/internal/server"
)

func wireRouter(cfg Config, handlers Handlers, mw Middleware, log *logger.Logger) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		HealthHandler:       handlers.Health,
		TokenHandler:        handlers.Token,
		SessionHandler:      handlers.Session,
		RulesHandler:        handlers.Rules,
		PoolHandler:         handlers.Pool,
		ClientKeyMiddleware: mw.ClientKey,
		RateLimit:           mw.RateLimit,
		RequestLogger:       middleware.RequestLogger(log),
		AllowOrigins:        cfg.AllowOrigins,
	})
}
