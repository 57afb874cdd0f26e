package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/quizlab/trivia-backend/internal/http/handlers"
	"github.com/quizlab/trivia-backend/internal/http/middleware"
	"github.com/quizlab/trivia-backend/internal/ratelimit"
)

type RouterConfig struct {
	HealthHandler       *handlers.HealthHandler
	TokenHandler        *handlers.TokenHandler
	SessionHandler      *handlers.SessionHandler
	RulesHandler        *handlers.RulesHandler
	PoolHandler         *handlers.PoolHandler
	ClientKeyMiddleware *middleware.ClientKeyMiddleware
	RateLimit           *middleware.RateLimitMiddleware
	RequestLogger       gin.HandlerFunc
	AllowOrigins        []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.RequestLogger != nil {
		router.Use(cfg.RequestLogger)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", cfg.HealthHandler.HealthCheck)

	api := router.Group("/api")
	api.Use(cfg.ClientKeyMiddleware.Resolve())
	{
		api.POST("/device-token", cfg.RateLimit.Limit(ratelimit.PolicyAuth), cfg.TokenHandler.Issue)

		api.POST("/session", cfg.RateLimit.Limit(ratelimit.PolicyStrict), cfg.SessionHandler.Start)
		api.GET("/session/:id", cfg.RateLimit.Limit(ratelimit.PolicyDefault), cfg.SessionHandler.Get)
		api.GET("/session/:id/question", cfg.RateLimit.Limit(ratelimit.PolicyDefault), cfg.SessionHandler.CurrentQuestion)
		api.POST("/session/:id/answer", cfg.RateLimit.Limit(ratelimit.PolicyDefault), cfg.SessionHandler.SubmitAnswer)
		api.POST("/session/:id/pause", cfg.RateLimit.Limit(ratelimit.PolicyDefault), cfg.SessionHandler.Pause)
		api.POST("/session/:id/resume", cfg.RateLimit.Limit(ratelimit.PolicyDefault), cfg.SessionHandler.Resume)
		api.POST("/session/:id/finish", cfg.RateLimit.Limit(ratelimit.PolicyDefault), cfg.SessionHandler.Finish)

		api.GET("/rules", cfg.RateLimit.Limit(ratelimit.PolicyDefault), cfg.RulesHandler.Get)
		api.GET("/pool-stats", cfg.RateLimit.Limit(ratelimit.PolicyStrict), cfg.PoolHandler.Stats)
	}

	return router
}
