package auth

import (
	"errors"
	"testing"
	"time"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	m, err := NewTokenManager("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("new token manager: %v", err)
	}

	token, err := m.Sign(1234567890, "alice")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	ident, err := m.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ident.UserID != 1234567890 || ident.Username != "alice" {
		t.Fatalf("unexpected identity %+v", ident)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	m1, err := NewTokenManager("secret-one", time.Hour)
	if err != nil {
		t.Fatalf("manager one: %v", err)
	}
	m2, err := NewTokenManager("secret-two", time.Hour)
	if err != nil {
		t.Fatalf("manager two: %v", err)
	}

	token, err := m1.Sign(1, "alice")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := m2.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	m, err := NewTokenManager("secret", time.Nanosecond)
	if err != nil {
		t.Fatalf("new token manager: %v", err)
	}
	token, err := m.Sign(1, "alice")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, err := m.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerifyGarbage(t *testing.T) {
	m, err := NewTokenManager("secret", time.Hour)
	if err != nil {
		t.Fatalf("new token manager: %v", err)
	}
	if _, err := m.Verify("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestPasswordHashVerify(t *testing.T) {
	h, err := HashPassword("pw1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !VerifyPassword("pw1", h) {
		t.Fatalf("expected password to verify")
	}
	if VerifyPassword("wrong", h) {
		t.Fatalf("expected wrong password to fail")
	}
}
