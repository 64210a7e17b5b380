package types

import (
	"maps"
	"time"
)

const (
	StoreType    = "DIDStore"
	StoreVersion = 1
)

// StoreMeta is the store-wide metadata persisted in <store>/.meta.
type StoreMeta struct {
	Type    string `json:"type"`
	Version int    `json:"version"`

	// scrypt parameters of the store key
	Salt []byte `json:"salt"`
	N    int    `json:"scrypt_N"`
	R    int    `json:"scrypt_r"`
	P    int    `json:"scrypt_p"`

	// PasswordCheck validates a derived key before any secret is opened.
	// Empty until the first password-protected write.
	PasswordCheck string `json:"fingerprint,omitempty"`
}

// DIDMeta is local, unsigned metadata kept beside a DID's document.
type DIDMeta struct {
	Alias         string            `json:"alias,omitempty"`
	TransactionID string            `json:"txid,omitempty"`
	Published     time.Time         `json:"published,omitzero"`
	Updated       time.Time         `json:"updated,omitzero"`
	Resolved      time.Time         `json:"resolved,omitzero"`
	Deactivated   bool              `json:"deactivated,omitempty"`
	Extra         map[string]string `json:"extra,omitempty"`
}

// Clone returns a deep copy; a nil receiver yields an empty meta.
func (m *DIDMeta) Clone() *DIDMeta {
	if m == nil {
		return &DIDMeta{}
	}
	c := *m
	c.Extra = maps.Clone(m.Extra)
	return &c
}

// CredentialMeta is local, unsigned metadata kept beside a credential.
type CredentialMeta struct {
	Alias string            `json:"alias,omitempty"`
	Extra map[string]string `json:"extra,omitempty"`
}

// Clone returns a deep copy; a nil receiver yields an empty meta.
func (m *CredentialMeta) Clone() *CredentialMeta {
	if m == nil {
		return &CredentialMeta{}
	}
	c := *m
	c.Extra = maps.Clone(m.Extra)
	return &c
}
