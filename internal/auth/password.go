// Package auth provides credential hashing and session token generation.
//
// Policy decisions, documented once here:
//   - usernames are case-sensitive and stored as submitted, after trimming
//     surrounding whitespace;
//   - passwords must be at least MinPasswordLength characters.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"spendtrack/internal/core"
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// dummyHash is a valid bcrypt hash of an unguessable value, compared against
// when a login names an unknown username so both failure paths cost one
// bcrypt verification.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// NormalizeUsername applies the username policy: trim whitespace, keep case.
func NormalizeUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", core.ErrEmptyUsername
	}
	if len(username) > 150 {
		return "", fmt.Errorf("username too long (max 150 characters)")
	}
	return username, nil
}

// ValidatePassword applies the password policy.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return core.ErrPasswordTooShort
	}
	return nil
}

// HashPassword hashes a password with bcrypt at the given cost.
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored bcrypt hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// BurnVerification spends one bcrypt verification against a dummy hash.
// Called on the unknown-username login path for timing uniformity.
func BurnVerification(password string) {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
}

// GenerateSessionToken returns a 32-byte random token, hex encoded.
func GenerateSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
