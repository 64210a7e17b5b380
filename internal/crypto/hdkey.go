package crypto

import (
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
)

// HDKey is the external chain m/44'/0'/0'/0 of a BIP32 tree. Every DID key
// is a non-hardened child of it, addressed by the identity's index.
type HDKey struct {
	ext *hdkeychain.ExtendedKey
}

var accountPath = []uint32{
	hdkeychain.HardenedKeyStart + 44,
	hdkeychain.HardenedKeyStart + 0,
	hdkeychain.HardenedKeyStart + 0,
	0,
}

// NewHDKey derives the external chain from a BIP39 seed.
func NewHDKey(seed []byte) (*HDKey, error) {
	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, err
	}
	k := master
	for _, i := range accountPath {
		child, err := k.Derive(i)
		k.Zero()
		if err != nil {
			return nil, err
		}
		k = child
	}
	return &HDKey{ext: k}, nil
}

// Derive returns the key pair at index.
func (h *HDKey) Derive(index int) (*KeyPair, error) {
	child, err := h.ext.Derive(uint32(index))
	if err != nil {
		return nil, err
	}
	defer child.Zero()
	priv, err := child.ECPrivKey()
	if err != nil {
		return nil, err
	}
	return &KeyPair{priv: priv, pub: priv.PubKey()}, nil
}

// Wipe zeroes the extended key.
func (h *HDKey) Wipe() {
	if h != nil && h.ext != nil {
		h.ext.Zero()
	}
}
