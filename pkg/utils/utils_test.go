package utils

import (
	"strings"
	"testing"
	"time"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("titok123")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "titok123" {
		t.Fatalf("hash equals plaintext")
	}
	ok, err := VerifyPassword("titok123", hash)
	if err != nil || !ok {
		t.Fatalf("expected match, got %v %v", ok, err)
	}
	ok, err = VerifyPassword("wrong", hash)
	if err != nil || ok {
		t.Fatalf("expected mismatch without error, got %v %v", ok, err)
	}
	if _, err := VerifyPassword("x", "not-a-hash"); err == nil {
		t.Fatalf("expected error for malformed hash")
	}
}

func TestTokenManager(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)
	tok, err := m.Generate("64b000000000000000000001")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	id, err := m.Verify(tok)
	if err != nil || id != "64b000000000000000000001" {
		t.Fatalf("Verify returned %q %v", id, err)
	}

	other := NewTokenManager("other-secret", time.Hour)
	if _, err := other.Verify(tok); err == nil {
		t.Fatalf("expected signature failure with a different secret")
	}

	expired := NewTokenManager("test-secret", -time.Minute)
	old, _ := expired.Generate("x")
	if _, err := m.Verify(old); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}

func TestGenerateCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		code, err := GenerateCode()
		if err != nil {
			t.Fatalf("GenerateCode failed: %v", err)
		}
		if len(code) != CodeLength {
			t.Fatalf("unexpected length %d", len(code))
		}
		for _, r := range code {
			if !strings.ContainsRune(CodeAlphabet, r) {
				t.Fatalf("code %q contains %q outside the alphabet", code, r)
			}
		}
		seen[code] = true
	}
	if len(seen) < 195 {
		t.Fatalf("too many collisions: %d unique of 200", len(seen))
	}
}
