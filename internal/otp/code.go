// Package otp generates and verifies the takeover passcodes used to
// authorize a forced device takeover.
package otp

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

const codeDigits = 6

// GenerateCode returns a 6-digit numeric passcode string (e.g. "123456").
// Uses crypto/rand for randomness.
func GenerateCode() (string, error) {
	b := make([]byte, codeDigits)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := make([]byte, codeDigits)
	for i := 0; i < codeDigits; i++ {
		s[i] = '0' + (b[i] % 10)
	}
	return string(s), nil
}

// NewSalt returns a random hex-encoded 16-byte salt.
func NewSalt() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HashCode returns the SHA-256 hash of salt||code, hex-encoded. Only the hash
// and salt are stored; the code itself never is.
func HashCode(salt, code string) string {
	h := sha256.Sum256([]byte(salt + code))
	return hex.EncodeToString(h[:])
}

// CodeEqual performs constant-time comparison of the provided code's salted
// hash with the stored hash.
func CodeEqual(providedCode, salt, storedHash string) bool {
	providedHash := HashCode(salt, providedCode)
	return subtle.ConstantTimeCompare([]byte(providedHash), []byte(storedHash)) == 1
}
