package crypto

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// Sign signs data with a raw private scalar. The scalar is not retained.
func Sign(priv []byte, data ...[]byte) (string, error) {
	kp, err := KeyPairFromPrivate(priv)
	if err != nil {
		return "", err
	}
	defer kp.Wipe()
	return kp.Sign(data...), nil
}

// Verify checks a signature produced by Sign against a base58 public key.
func Verify(publicKeyBase58, signature string, data ...[]byte) bool {
	raw, err := FromBase58(publicKeyBase58)
	if err != nil {
		return false
	}
	pub, err := btcec.ParsePubKey(raw)
	if err != nil {
		return false
	}
	der, err := FromB64URL(signature)
	if err != nil {
		return false
	}
	sig, err := ecdsa.ParseDERSignature(der)
	if err != nil {
		return false
	}
	return sig.Verify(digest(data...), pub)
}
