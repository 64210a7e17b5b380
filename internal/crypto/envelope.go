package crypto

import (
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"didstore/internal/fault"
)

const (
	// The current supported version of the password envelope format.
	envelopeFormatVersion = 1

	// Upper bound on the memory cost accepted from an envelope (KiB).
	maxArgon2Memory = 1 << 20
)

// Argon2Params are the argon2id costs recorded in every envelope.
type Argon2Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
}

// DefaultArgon2 is used by SealWithPassword.
var DefaultArgon2 = Argon2Params{Time: 1, Memory: 64 * 1024, Threads: 4}

// envelope is the JSON structure holding the ciphertext and KDF parameters.
type envelope struct {
	V       int    `json:"v"`
	Salt    []byte `json:"salt"`
	Time    uint32 `json:"argon2_t"`
	Memory  uint32 `json:"argon2_m"`
	Threads uint8  `json:"argon2_p"`
	Cipher  []byte `json:"cipher"`
}

// SealWithPassword derives a key from password and seals plaintext into a
// self-describing JSON envelope.
func SealWithPassword(password string, plaintext []byte) ([]byte, error) {
	return SealWithPasswordParams(password, plaintext, DefaultArgon2)
}

// SealWithPasswordParams is SealWithPassword with explicit argon2id costs.
func SealWithPasswordParams(password string, plaintext []byte, p Argon2Params) ([]byte, error) {
	if !validArgon2(p.Time, p.Memory, p.Threads) {
		return nil, fault.New(fault.Malformed, "invalid argon2 parameters")
	}
	salt, err := NewSalt()
	if err != nil {
		return nil, err
	}
	key := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, chacha20poly1305.KeySize)
	defer Wipe(key)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	var nonce [chacha20poly1305.NonceSize]byte // zero nonce; salt-bound key guarantees uniqueness
	ct := aead.Seal(nil, nonce[:], plaintext, salt)

	return json.Marshal(envelope{
		V:       envelopeFormatVersion,
		Salt:    salt,
		Time:    p.Time,
		Memory:  p.Memory,
		Threads: p.Threads,
		Cipher:  ct,
	})
}

// validArgon2 reports whether argon2.IDKey accepts the costs: at least one
// round and one lane, and 8 KiB of memory per lane.
func validArgon2(time, memory uint32, threads uint8) bool {
	return time > 0 && threads > 0 && memory >= 8*uint32(threads) && memory <= maxArgon2Memory
}

// OpenWithPassword opens an envelope produced by SealWithPassword.
func OpenWithPassword(password string, blob []byte) ([]byte, error) {
	var env envelope
	if err := json.Unmarshal(blob, &env); err != nil {
		return nil, fault.Wrap(fault.Malformed, "password envelope", err)
	}
	if env.V > envelopeFormatVersion {
		return nil, fault.Newf(fault.Malformed, "unsupported envelope version %d", env.V)
	}
	if !validArgon2(env.Time, env.Memory, env.Threads) || len(env.Salt) != SaltBytes {
		return nil, fault.New(fault.Malformed, "invalid envelope parameters")
	}

	key := argon2.IDKey([]byte(password), env.Salt, env.Time, env.Memory, env.Threads, chacha20poly1305.KeySize)
	defer Wipe(key)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	var nonce [chacha20poly1305.NonceSize]byte
	pt, err := aead.Open(nil, nonce[:], env.Cipher, env.Salt)
	if err != nil {
		return nil, fmt.Errorf("open envelope: %w", fault.ErrWrongExportPassword)
	}
	return pt, nil
}
