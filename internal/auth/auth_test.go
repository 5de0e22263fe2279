package auth

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("admin", "test-secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}

	userID, err := ValidateToken(token, "test-secret")
	if err != nil {
		t.Fatalf("ValidateToken returned error: %v", err)
	}
	if userID != "admin" {
		t.Errorf("userID = %q, want %q", userID, "admin")
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	token, err := GenerateToken("admin", "test-secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}

	if _, err := ValidateToken(token, "other-secret"); err == nil {
		t.Fatal("expected error for wrong secret")
	}
}

func TestValidateToken_Expired(t *testing.T) {
	token, err := GenerateToken("admin", "test-secret", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}

	if _, err := ValidateToken(token, "test-secret"); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestVerifyAdminPassword_PrefersHash(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	cfg := Config{AdminPassword: "plaintext", AdminPasswordHash: hash}
	if !cfg.VerifyAdminPassword("s3cret") {
		t.Error("hashed password rejected")
	}
	if cfg.VerifyAdminPassword("plaintext") {
		t.Error("plaintext fallback accepted despite configured hash")
	}
}

func TestVerifyAdminPassword_PlaintextFallback(t *testing.T) {
	cfg := Config{AdminPassword: "plaintext"}
	if !cfg.VerifyAdminPassword("plaintext") {
		t.Error("plaintext password rejected")
	}
	if cfg.VerifyAdminPassword("wrong") {
		t.Error("wrong password accepted")
	}
}
