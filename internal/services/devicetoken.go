package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/quizlab/trivia-backend/internal/logger"
)

// DeviceTokenService issues the signed client keys that rate limiting and
// player progress are keyed on. This is transport identity only; there are no
// accounts behind it.
type DeviceTokenService interface {
	Issue(deviceID string) (token string, expiresAt time.Time, err error)
	Parse(tokenString string) (clientKey string, err error)
}

type deviceTokenService struct {
	log       *logger.Logger
	secretKey []byte
	tokenTTL  time.Duration
}

func NewDeviceTokenService(secretKey string, tokenTTL time.Duration, baseLog *logger.Logger) DeviceTokenService {
	serviceLog := baseLog.With("service", "DeviceTokenService")
	return &deviceTokenService{
		log:       serviceLog,
		secretKey: []byte(secretKey),
		tokenTTL:  tokenTTL,
	}
}

func (s *deviceTokenService) Issue(deviceID string) (string, time.Time, error) {
	if deviceID == "" {
		return "", time.Time{}, fmt.Errorf("device id required")
	}
	now := time.Now().UTC()
	expiresAt := now.Add(s.tokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   "device:" + deviceID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign device token: %w", err)
	}
	return signed, expiresAt, nil
}

func (s *deviceTokenService) Parse(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("parse device token: %w", err)
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", fmt.Errorf("device token missing subject")
	}
	return claims.Subject, nil
}
