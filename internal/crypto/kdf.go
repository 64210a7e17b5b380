package crypto

import (
	"crypto/rand"
	"errors"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const (
	KeyBytes  = chacha20poly1305.KeySize
	SaltBytes = 16
)

// Tunables for scrypt key derivation.
func ScryptParamsDefault() (N, r, p int) { return 1 << 15, 8, 1 }

// NewSalt returns SaltBytes of fresh randomness.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltBytes)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// DeriveKey derives the store key from a password with scrypt. The caller
// wipes the result.
func DeriveKey(password string, salt []byte, N, r, p int) ([]byte, error) {
	if len(salt) != SaltBytes {
		return nil, errors.New("invalid salt size")
	}
	pw := []byte(password)
	defer Wipe(pw)
	return scrypt.Key(pw, salt, N, r, p, KeyBytes)
}
