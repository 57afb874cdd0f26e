package services

import (
	"strings"
	"testing"
	"time"
)

func TestDeviceTokenRoundTrip(t *testing.T) {
	svc := NewDeviceTokenService("test-secret", time.Hour, testLogger(t))

	token, expiresAt, err := svc.Issue("abc-123")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("expiresAt %v is not in the future", expiresAt)
	}

	subject, err := svc.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if subject != "device:abc-123" {
		t.Fatalf("subject = %q, want device:abc-123", subject)
	}
}

func TestDeviceTokenEmptyDeviceID(t *testing.T) {
	svc := NewDeviceTokenService("test-secret", time.Hour, testLogger(t))
	if _, _, err := svc.Issue(""); err == nil {
		t.Fatal("expected error for empty device id")
	}
}

func TestDeviceTokenWrongSecretRejected(t *testing.T) {
	issuer := NewDeviceTokenService("secret-a", time.Hour, testLogger(t))
	verifier := NewDeviceTokenService("secret-b", time.Hour, testLogger(t))

	token, _, err := issuer.Issue("abc-123")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := verifier.Parse(token); err == nil {
		t.Fatal("token signed with a different secret must not parse")
	}
}

func TestDeviceTokenExpiredRejected(t *testing.T) {
	svc := NewDeviceTokenService("test-secret", -time.Minute, testLogger(t))
	token, _, err := svc.Issue("abc-123")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := svc.Parse(token); err == nil {
		t.Fatal("expired token must not parse")
	}
}

func TestDeviceTokenGarbageRejected(t *testing.T) {
	svc := NewDeviceTokenService("test-secret", time.Hour, testLogger(t))
	for _, token := range []string{"", "not-a-jwt", strings.Repeat("x", 64)} {
		if _, err := svc.Parse(token); err == nil {
			t.Fatalf("garbage token %q parsed", token)
		}
	}
}
