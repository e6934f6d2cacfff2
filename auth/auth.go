// Package auth provides password hashing, TOTP and JWT session tokens for the
// API layer.
package auth

import (
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"sync"
	"time"

	"botdeck/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
)

// Claims JWT claims carried by every authenticated request
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// tokenTTL session token lifetime
const tokenTTL = 24 * time.Hour

// HashPassword generates a bcrypt hash for storage
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword verifies a password against its stored hash
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateJWT issues a signed session token
func GenerateJWT(userID, email string) (string, error) {
	claims := &Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.Get().JWTSecret))
}

// ValidateJWT parses and validates a session token
func ValidateJWT(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(config.Get().JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// GenerateOTPSecret generates a base32 TOTP secret
func GenerateOTPSecret() (string, error) {
	secret := make([]byte, 20)
	if _, err := rand.Read(secret); err != nil {
		return "", err
	}
	return base32.StdEncoding.EncodeToString(secret), nil
}

// VerifyOTP checks a 6-digit TOTP code against the stored secret
func VerifyOTP(secret, code string) bool {
	return totp.Validate(code, secret)
}

// GetOTPQRCodeURL builds the otpauth:// URL for authenticator apps
func GetOTPQRCodeURL(secret, email string) string {
	return fmt.Sprintf("otpauth://totp/botdeck:%s?secret=%s&issuer=botdeck", email, secret)
}

// Token blacklist (logout). In-memory: a restart invalidates nothing the JWT
// expiry doesn't already bound.
var (
	blacklistMu sync.RWMutex
	blacklist   = make(map[string]time.Time)
)

// BlacklistToken marks a token as logged out until its natural expiry
func BlacklistToken(tokenString string) {
	blacklistMu.Lock()
	defer blacklistMu.Unlock()

	// Opportunistically drop expired entries
	now := time.Now()
	for t, exp := range blacklist {
		if now.After(exp) {
			delete(blacklist, t)
		}
	}
	blacklist[tokenString] = now.Add(tokenTTL)
}

// IsTokenBlacklisted reports whether a token has been logged out
func IsTokenBlacklisted(tokenString string) bool {
	blacklistMu.RLock()
	defer blacklistMu.RUnlock()
	exp, ok := blacklist[tokenString]
	return ok && time.Now().Before(exp)
}
