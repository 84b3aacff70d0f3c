package jwt

import (
	"testing"
	"time"
)

func TestGenerateAndParseRoundTrip(t *testing.T) {
	token, err := GenerateToken("user-1", "secret", 30*24*time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := Parse(token, "secret")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Fatalf("unexpected user id: %q", claims.UserID)
	}
	if claims.ExpiresAt == nil || time.Until(claims.ExpiresAt.Time) < 29*24*time.Hour {
		t.Fatalf("expected expiry ~30 days out, got %v", claims.ExpiresAt)
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	token, err := GenerateToken("user-1", "secret", -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := Parse(token, "secret"); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken("user-1", "secret", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := Parse(token, "other-secret"); err == nil {
		t.Fatal("expected token signed with different secret to be rejected")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse("not-a-token", "secret"); err == nil {
		t.Fatal("expected malformed token to be rejected")
	}
}
