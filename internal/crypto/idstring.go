package crypto

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcutil"
)

const (
	idVersion  = 0x67 // leads every id string with 'i'
	opPushKey  = 0x21
	opCheckSig = 0xAC
)

// IDString returns the method-specific DID id of a compressed public key:
// base58check(0x67 ‖ Hash160(0x21 ‖ pub ‖ 0xAC)).
func IDString(pub []byte) string {
	script := make([]byte, 0, len(pub)+2)
	script = append(script, opPushKey)
	script = append(script, pub...)
	script = append(script, opCheckSig)

	payload := make([]byte, 0, 25)
	payload = append(payload, idVersion)
	payload = append(payload, btcutil.Hash160(script)...)

	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return Base58(append(payload, second[:4]...))
}

// IDStringFromBase58 is IDString for a base58 public key.
func IDStringFromBase58(pub string) (string, error) {
	raw, err := ParsePublicKeyBase58(pub)
	if err != nil {
		return "", err
	}
	return IDString(raw), nil
}
