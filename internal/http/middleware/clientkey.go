package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/quizlab/trivia-backend/internal/logger"
	"github.com/quizlab/trivia-backend/internal/services"
)

const clientKeyContextKey = "client_key"

// ClientKeyMiddleware resolves the rate-limit identity for each request: the
// subject of a valid device token when one is presented, otherwise the client
// IP. An invalid token falls back to IP rather than rejecting the request;
// tokens here are identity hints, not access control.
type ClientKeyMiddleware struct {
	log    *logger.Logger
	tokens services.DeviceTokenService
}

func NewClientKeyMiddleware(log *logger.Logger, tokens services.DeviceTokenService) *ClientKeyMiddleware {
	middlewareLog := log.With("middleware", "ClientKeyMiddleware")
	return &ClientKeyMiddleware{log: middlewareLog, tokens: tokens}
}

func (m *ClientKeyMiddleware) Resolve() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientKey := "ip:" + c.ClientIP()
		if tokenString := extractBearerToken(c); tokenString != "" {
			subject, err := m.tokens.Parse(tokenString)
			if err != nil {
				m.log.Debug("Ignoring invalid device token", "error", err)
			} else {
				clientKey = subject
			}
		}
		c.Set(clientKeyContextKey, clientKey)
		c.Next()
	}
}

// ClientKeyFromContext returns the resolved client key, or "" before Resolve ran.
func ClientKeyFromContext(c *gin.Context) string {
	key, _ := c.Get(clientKeyContextKey)
	s, _ := key.(string)
	return s
}

func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return ""
}
