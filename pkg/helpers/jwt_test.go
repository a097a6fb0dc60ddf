package helpers

import (
	"errors"
	"testing"
	"time"
)

func TestJWTRoundTrip(t *testing.T) {
	m := NewJWTManager("access-secret-123", "refresh-secret-123", time.Minute, time.Hour)

	access, aexp, err := m.GenerateAccessToken("user-1", "sid-1")
	if err != nil {
		t.Fatalf("generate access: %v", err)
	}
	if time.Until(aexp) <= 0 {
		t.Fatalf("expected future expiry, got %v", aexp)
	}
	claims, err := m.ParseAccessToken(access)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if claims.UserID != "user-1" || claims.SessionID != "sid-1" {
		t.Fatalf("unexpected claims %+v", claims)
	}

	refresh, _, err := m.GenerateRefreshToken("user-1", "sid-1")
	if err != nil {
		t.Fatalf("generate refresh: %v", err)
	}
	if _, err := m.ParseAccessToken(refresh); err == nil {
		t.Fatal("expected refresh token to be rejected by the access secret")
	}
	if _, err := m.ParseRefreshToken(refresh); err != nil {
		t.Fatalf("parse refresh: %v", err)
	}
}

func TestJWTExpired(t *testing.T) {
	m := NewJWTManager("access-secret-123", "refresh-secret-123", -time.Minute, time.Hour)
	tok, _, err := m.GenerateAccessToken("user-1", "sid-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := m.ParseAccessToken(tok); err == nil {
		t.Fatal("expected expired token error")
	}
}

func TestJWTGarbage(t *testing.T) {
	m := NewJWTManager("a-secret-123", "r-secret-123", time.Minute, time.Hour)
	if _, err := m.ParseAccessToken("not-a-token"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestJWTSharedSecretStillSeparatesTypes(t *testing.T) {
	m := NewJWTManager("same-secret-123", "same-secret-123", time.Minute, time.Hour)
	refresh, _, err := m.GenerateRefreshToken("user-1", "sid-1")
	if err != nil {
		t.Fatalf("generate refresh: %v", err)
	}
	if _, err := m.ParseAccessToken(refresh); !errors.Is(err, ErrWrongTokenType) {
		t.Fatalf("expected ErrWrongTokenType, got %v", err)
	}
	access, _, _ := m.GenerateAccessToken("user-1", "sid-1")
	if _, err := m.ParseRefreshToken(access); !errors.Is(err, ErrWrongTokenType) {
		t.Fatalf("expected ErrWrongTokenType, got %v", err)
	}
}
