package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "s3cret" {
		t.Fatal("hash must not equal the plaintext")
	}
	if !CheckPassword("s3cret", hash) {
		t.Error("correct password should verify")
	}
	if CheckPassword("wrong", hash) {
		t.Error("wrong password must not verify")
	}
}

func TestJWTRoundTrip(t *testing.T) {
	token, err := GenerateJWT("u1", "a@b.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ValidateJWT(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != "u1" || claims.Email != "a@b.com" {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if claims.ExpiresAt.Time.Before(time.Now()) {
		t.Error("token should not be issued already expired")
	}
}

func TestJWTTampered(t *testing.T) {
	token, err := GenerateJWT("u1", "a@b.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ValidateJWT(token + "x"); err == nil {
		t.Error("tampered token must not validate")
	}
	if _, err := ValidateJWT("not-a-token"); err == nil {
		t.Error("garbage must not validate")
	}
}

func TestOTPFlow(t *testing.T) {
	secret, err := GenerateOTPSecret()
	if err != nil {
		t.Fatalf("generate secret: %v", err)
	}

	code, err := totp.GenerateCode(secret, time.Now())
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}
	if !VerifyOTP(secret, code) {
		t.Error("current code should verify")
	}
	if VerifyOTP(secret, "000000") {
		t.Error("arbitrary code must not verify")
	}

	url := GetOTPQRCodeURL(secret, "a@b.com")
	if !strings.HasPrefix(url, "otpauth://totp/") || !strings.Contains(url, secret) {
		t.Errorf("unexpected otpauth URL: %s", url)
	}
}

func TestTokenBlacklist(t *testing.T) {
	token, err := GenerateJWT("u1", "a@b.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if IsTokenBlacklisted(token) {
		t.Fatal("fresh token must not be blacklisted")
	}
	BlacklistToken(token)
	if !IsTokenBlacklisted(token) {
		t.Error("token should be blacklisted after logout")
	}
}
