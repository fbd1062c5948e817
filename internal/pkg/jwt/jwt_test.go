package jwt

import (
	"errors"
	"testing"
	"time"
)

func TestSignAndParse(t *testing.T) {
	s := NewSigner("test-secret")
	tok, err := s.Sign("user-1", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := s.Parse(tok)
	if err != nil || claims.UserID != "user-1" {
		t.Fatalf("parse: %v %+v", err, claims)
	}
	if s.IsDefault() || !NewSigner("").IsDefault() {
		t.Fatalf("IsDefault misreported")
	}
}

func TestParseRejects(t *testing.T) {
	s := NewSigner("test-secret")
	expired, _ := s.Sign("user-1", -time.Minute)
	other, _ := NewSigner("other-secret").Sign("user-1", time.Hour)

	for name, tok := range map[string]string{"expired": expired, "wrong secret": other, "garbage": "a.b.c"} {
		if _, err := s.Parse(tok); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}
