package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quizlab/trivia-backend/internal/logger"
	"github.com/quizlab/trivia-backend/internal/services"
)

func clientKeyRouter(t *testing.T, secret string) (*gin.Engine, *string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	tokens := services.NewDeviceTokenService(secret, time.Hour, log)
	mw := NewClientKeyMiddleware(log, tokens)

	var resolved string
	r := gin.New()
	r.GET("/ping", mw.Resolve(), func(c *gin.Context) {
		resolved = ClientKeyFromContext(c)
		c.Status(http.StatusOK)
	})
	return r, &resolved
}

func TestResolveFallsBackToIP(t *testing.T) {
	r, resolved := clientKeyRouter(t, "test-secret")

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	r.ServeHTTP(httptest.NewRecorder(), req)

	if *resolved != "ip:203.0.113.7" {
		t.Fatalf("client key = %q, want ip:203.0.113.7", *resolved)
	}
}

func TestResolveUsesDeviceTokenSubject(t *testing.T) {
	secret := "test-secret"
	r, resolved := clientKeyRouter(t, secret)

	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	token, _, err := services.NewDeviceTokenService(secret, time.Hour, log).Issue("abc-123")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(httptest.NewRecorder(), req)

	if *resolved != "device:abc-123" {
		t.Fatalf("client key = %q, want device:abc-123", *resolved)
	}
}

func TestResolveIgnoresInvalidToken(t *testing.T) {
	r, resolved := clientKeyRouter(t, "test-secret")

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	req.Header.Set("Authorization", "Bearer "+strings.Repeat("x", 40))
	r.ServeHTTP(httptest.NewRecorder(), req)

	if *resolved != "ip:203.0.113.7" {
		t.Fatalf("client key = %q, want IP fallback for an invalid token", *resolved)
	}
}
