package types

// PrivateIdentity is the identity root of a store as persisted. Seed and
// Mnemonic are ciphertexts under the store key; Mnemonic may be empty when
// the identity was imported from a bare seed.
type PrivateIdentity struct {
	Seed     []byte `json:"seed"`
	Mnemonic []byte `json:"mnemonic,omitempty"`
	Index    int    `json:"index"`
}

// KeyBlob is one encrypted private key.
type KeyBlob struct {
	ID   DIDURL
	Blob []byte
}

// Rotation carries every secret of a store re-encrypted under a new key,
// together with the metadata that validates that key. Storage commits it
// as one unit.
type Rotation struct {
	Meta        StoreMeta
	Identity    *PrivateIdentity
	PrivateKeys []KeyBlob
}

// CredentialRecord is one stored credential with its local metadata.
type CredentialRecord struct {
	ID         DIDURL
	Credential []byte
	Meta       *CredentialMeta
}

// DIDRecord is the whole stored state of one DID. PrivateKeys are
// ciphertexts under the store key.
type DIDRecord struct {
	DID         DID
	Document    []byte
	Meta        *DIDMeta
	PrivateKeys []KeyBlob
	Credentials []CredentialRecord
}

// Import replaces the identity root, when set, and the stored state of
// every listed DID. Storage commits it as one unit.
type Import struct {
	Identity *PrivateIdentity
	DIDs     []DIDRecord
}
