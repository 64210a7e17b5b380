package crypto

import (
	"crypto/rand"

	"golang.org/x/crypto/chacha20poly1305"

	"didstore/internal/fault"
)

// Encrypt seals plaintext under key. The result is nonce‖ciphertext.
func Encrypt(key, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	ns := aead.NonceSize()
	box := make([]byte, ns, ns+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(box); err != nil {
		return nil, err
	}
	return aead.Seal(box, box[:ns], plaintext, nil), nil
}

// Decrypt opens a box produced by Encrypt. A failed integrity check is
// reported as fault.ErrWrongPassword.
func Decrypt(key, box []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	ns := aead.NonceSize()
	if len(box) < ns+aead.Overhead() {
		return nil, fault.New(fault.Malformed, "ciphertext too short")
	}
	pt, err := aead.Open(nil, box[:ns], box[ns:], nil)
	if err != nil {
		return nil, fault.ErrWrongPassword
	}
	return pt, nil
}
