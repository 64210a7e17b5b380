package interfaces

import domaintypes "didstore/internal/domain/types"

// Storage persists the raw state of one DID store. Documents and
// credentials are opaque serialized bytes; secrets are already encrypted.
// Loads of absent values return nil with a nil error.
type Storage interface {
	LoadStoreMeta() (*domaintypes.StoreMeta, error)
	StoreStoreMeta(meta *domaintypes.StoreMeta) error

	// Identity root. StorePrivateIdentity replaces seed, mnemonic and index
	// together.
	ContainsPrivateIdentity() (bool, error)
	LoadPrivateIdentity() (*domaintypes.PrivateIdentity, error)
	StorePrivateIdentity(id *domaintypes.PrivateIdentity) error
	StoreIndex(index int) error

	// DIDs. DeleteDID removes document, meta, keys and credentials.
	StoreDID(did domaintypes.DID, document []byte) error
	LoadDID(did domaintypes.DID) ([]byte, error)
	ContainsDID(did domaintypes.DID) (bool, error)
	DeleteDID(did domaintypes.DID) (bool, error)
	ListDIDs() ([]domaintypes.DID, error)
	StoreDIDMeta(did domaintypes.DID, meta *domaintypes.DIDMeta) error
	LoadDIDMeta(did domaintypes.DID) (*domaintypes.DIDMeta, error)

	// Private keys, one encrypted blob per key id.
	StorePrivateKey(id domaintypes.DIDURL, blob []byte) error
	LoadPrivateKey(id domaintypes.DIDURL) ([]byte, error)
	ContainsPrivateKey(id domaintypes.DIDURL) (bool, error)
	ContainsPrivateKeys(did domaintypes.DID) (bool, error)
	DeletePrivateKey(id domaintypes.DIDURL) (bool, error)
	ListPrivateKeys(did domaintypes.DID) ([]domaintypes.DIDURL, error)
	// ListKeyOwners lists every DID holding private keys, with or without
	// a document.
	ListKeyOwners() ([]domaintypes.DID, error)

	// Credentials.
	StoreCredential(id domaintypes.DIDURL, credential []byte) error
	LoadCredential(id domaintypes.DIDURL) ([]byte, error)
	ContainsCredential(id domaintypes.DIDURL) (bool, error)
	DeleteCredential(id domaintypes.DIDURL) (bool, error)
	ListCredentials(did domaintypes.DID) ([]domaintypes.DIDURL, error)
	StoreCredentialMeta(id domaintypes.DIDURL, meta *domaintypes.CredentialMeta) error
	LoadCredentialMeta(id domaintypes.DIDURL) (*domaintypes.CredentialMeta, error)

	// CommitRotation replaces every secret and the store meta atomically.
	CommitRotation(r *domaintypes.Rotation) error

	// CommitImport replaces the identity root, when set, and the whole
	// stored state of every imported DID atomically. Keys and credentials
	// of those DIDs that are absent from the import are removed.
	CommitImport(im *domaintypes.Import) error

	Close() error
}
