package crypto

import (
	"errors"
	"strings"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	v, err := NewVault("any-length-secret")
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}

	token, err := v.EncryptString("sk-super-secret")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if len(strings.Split(token, ".")) != 3 {
		t.Fatalf("expected three token segments, got %q", token)
	}

	out, err := v.DecryptString(token)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if out != "sk-super-secret" {
		t.Fatalf("expected original plaintext, got %q", out)
	}
}

func TestEncryptProducesFreshTokens(t *testing.T) {
	v, err := NewVault("secret")
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}
	a, err := v.EncryptString("same")
	if err != nil {
		t.Fatalf("encrypt a: %v", err)
	}
	b, err := v.EncryptString("same")
	if err != nil {
		t.Fatalf("encrypt b: %v", err)
	}
	if a == b {
		t.Fatalf("expected distinct tokens for repeated plaintext")
	}
}

func TestDecryptWrongSecret(t *testing.T) {
	v1, err := NewVault("secret-one")
	if err != nil {
		t.Fatalf("vault one: %v", err)
	}
	v2, err := NewVault("secret-two")
	if err != nil {
		t.Fatalf("vault two: %v", err)
	}

	token, err := v1.EncryptString("sk-1")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	_, err = v2.DecryptString(token)
	var de *DecryptError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecryptError, got %v", err)
	}
	if !strings.Contains(de.Error(), "AI_KEY_ENCRYPTION_SECRET") {
		t.Fatalf("expected secret mismatch hint, got %q", de.Error())
	}
}

func TestDecryptMalformedToken(t *testing.T) {
	v, err := NewVault("secret")
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}

	for _, token := range []string{"", "abc", "a.b", "..", "a.b.c.d", "!!.!!.!!"} {
		_, err := v.DecryptString(token)
		var de *DecryptError
		if !errors.As(err, &de) {
			t.Fatalf("token %q: expected DecryptError, got %v", token, err)
		}
	}
}

func TestNewVaultEmptySecret(t *testing.T) {
	if _, err := NewVault("  "); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
