package crypto

import (
	"encoding/base64"

	"github.com/mr-tron/base58"
)

// B64 returns standard base64 encoding without newlines.
func B64(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

// FromB64 reverses B64.
func FromB64(s string) ([]byte, error) { return base64.StdEncoding.DecodeString(s) }

// B64URL returns unpadded URL-safe base64, the encoding of every signature.
func B64URL(b []byte) string { return base64.RawURLEncoding.EncodeToString(b) }

// FromB64URL reverses B64URL.
func FromB64URL(s string) ([]byte, error) { return base64.RawURLEncoding.DecodeString(s) }

// Base58 encodes b with the Bitcoin alphabet.
func Base58(b []byte) string { return base58.Encode(b) }

// FromBase58 reverses Base58.
func FromBase58(s string) ([]byte, error) { return base58.Decode(s) }
