package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

const passwordCheckLabel = "didstore/password-check/v1"

// Fingerprint returns a short hex fingerprint of a public key.
//
// It hashes with SHA-256 and truncates to 10 bytes (20 hex chars).
func Fingerprint(pub []byte) string {
	sum := sha256.Sum256(pub)
	return hex.EncodeToString(sum[:10])
}

// PasswordCheck returns the value stored in the store metadata to validate a
// derived key before any secret is decrypted with it.
func PasswordCheck(key []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(passwordCheckLabel))
	return hex.EncodeToString(mac.Sum(nil))
}

// CheckPassword compares key against a stored PasswordCheck value in
// constant time.
func CheckPassword(key []byte, check string) bool {
	want, err := hex.DecodeString(check)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(passwordCheckLabel))
	return hmac.Equal(mac.Sum(nil), want)
}
