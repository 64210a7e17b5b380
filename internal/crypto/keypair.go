package crypto

import (
	"crypto/sha256"
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

const (
	PrivateKeyBytes = btcec.PrivKeyBytesLen
	PublicKeyBytes  = btcec.PubKeyBytesLenCompressed
)

// KeyPair is a secp256k1 signing key.
type KeyPair struct {
	priv *btcec.PrivateKey
	pub  *btcec.PublicKey
}

// GenerateKeyPair returns a fresh random key pair.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, err
	}
	return &KeyPair{priv: priv, pub: priv.PubKey()}, nil
}

// KeyPairFromPrivate rebuilds a key pair from a 32-byte private scalar.
func KeyPairFromPrivate(b []byte) (*KeyPair, error) {
	if len(b) != PrivateKeyBytes {
		return nil, errors.New("invalid private key size")
	}
	priv, pub := btcec.PrivKeyFromBytes(b)
	return &KeyPair{priv: priv, pub: pub}, nil
}

// PublicKey returns the 33-byte compressed public key.
func (k *KeyPair) PublicKey() []byte { return k.pub.SerializeCompressed() }

// PublicKeyBase58 returns the compressed public key in base58.
func (k *KeyPair) PublicKeyBase58() string { return Base58(k.PublicKey()) }

// PrivateKey returns a copy of the private scalar. The caller wipes it.
func (k *KeyPair) PrivateKey() []byte { return k.priv.Serialize() }

// Sign signs the SHA-256 digest of the concatenated data and returns the
// DER signature in unpadded base64url.
func (k *KeyPair) Sign(data ...[]byte) string {
	sig := ecdsa.Sign(k.priv, digest(data...))
	return B64URL(sig.Serialize())
}

// Wipe zeroes the private scalar.
func (k *KeyPair) Wipe() {
	if k != nil && k.priv != nil {
		k.priv.Zero()
	}
}

// ParsePublicKeyBase58 decodes and validates a compressed public key.
func ParsePublicKeyBase58(s string) ([]byte, error) {
	raw, err := FromBase58(s)
	if err != nil {
		return nil, err
	}
	pub, err := btcec.ParsePubKey(raw)
	if err != nil {
		return nil, err
	}
	return pub.SerializeCompressed(), nil
}

func digest(data ...[]byte) []byte {
	h := sha256.New()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}
