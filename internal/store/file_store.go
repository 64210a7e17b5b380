package store

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"didstore/internal/crypto"
	"didstore/internal/domain"
	"didstore/internal/fault"
)

// FileStore persists a DID store as a directory tree:
//
//	<dir>/.meta
//	<dir>/private/{seed,index,mnemonic}
//	<dir>/ids/<id>/document
//	<dir>/ids/<id>/.meta
//	<dir>/ids/<id>/privatekeys/<fragment>
//	<dir>/ids/<id>/credentials/<fragment>/{credential,.meta}
//
// Encrypted blobs are stored as base64 text. Single files are replaced
// atomically; multi-file updates go through the journal.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore opens (creating if needed) the tree rooted at dir and
// finishes or discards any interrupted multi-file update.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fault.Wrap(fault.Store, "create store directory", err)
	}
	s := &FileStore{dir: dir}
	if err := s.replay(); err != nil {
		return nil, fault.Wrap(fault.Store, "recover journal", err)
	}
	trash, err := filepath.Glob(filepath.Join(dir, trashPrefix+"*"))
	if err != nil {
		return nil, err
	}
	for _, t := range trash {
		_ = os.RemoveAll(t)
	}
	return s, nil
}

// Dir returns the store root.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, filepath.FromSlash(key))
}

func (s *FileStore) read(key string) ([]byte, error) { return readFile(s.path(key)) }

func (s *FileStore) write(key string, b []byte) error { return writeFile(s.path(key), b, 0o600) }

func (s *FileStore) readBlob(key string) ([]byte, error) {
	b, err := s.read(key)
	if err != nil || b == nil {
		return nil, err
	}
	raw, err := crypto.FromB64(strings.TrimSpace(string(b)))
	if err != nil {
		return nil, fault.Wrap(fault.Store, "corrupted "+key, err)
	}
	return raw, nil
}

func blobText(b []byte) []byte { return []byte(crypto.B64(b)) }

// ---------- Store meta ----------

func (s *FileStore) LoadStoreMeta() (*domain.StoreMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.read(metaFile)
	if err != nil {
		return nil, err
	}
	return decodeStoreMeta(b)
}

func (s *FileStore) StoreStoreMeta(meta *domain.StoreMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := encodeJSON(meta)
	if err != nil {
		return err
	}
	return s.write(metaFile, b)
}

// ---------- Identity root ----------

func (s *FileStore) ContainsPrivateIdentity() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return exists(s.path(seedKey))
}

func (s *FileStore) LoadPrivateIdentity() (*domain.PrivateIdentity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seed, err := s.readBlob(seedKey)
	if err != nil || seed == nil {
		return nil, err
	}
	mnemonic, err := s.readBlob(mnemonicKey)
	if err != nil {
		return nil, err
	}
	id := &domain.PrivateIdentity{Seed: seed, Mnemonic: mnemonic}
	if b, err := s.read(indexKey); err != nil {
		return nil, err
	} else if b != nil {
		if id.Index, err = decodeIndex(b); err != nil {
			return nil, err
		}
	}
	return id, nil
}

func (s *FileStore) StorePrivateIdentity(id *domain.PrivateIdentity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.commit(identityWrites(id, blobText))
}

func (s *FileStore) StoreIndex(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.write(indexKey, encodeIndex(index))
}

// ---------- DIDs ----------

func (s *FileStore) StoreDID(did domain.DID, document []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkDID(did); err != nil {
		return err
	}

	return s.write(documentKey(did), document)
}

func (s *FileStore) LoadDID(did domain.DID) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkDID(did); err != nil {
		return nil, err
	}

	return s.read(documentKey(did))
}

func (s *FileStore) ContainsDID(did domain.DID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkDID(did); err != nil {
		return false, err
	}

	return exists(s.path(documentKey(did)))
}

func (s *FileStore) DeleteDID(did domain.DID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkDID(did); err != nil {
		return false, err
	}

	return removeTree(s.dir, s.path(didDir(did)))
}

func (s *FileStore) ListDIDs() ([]domain.DID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := subdirs(s.path(idsDir), documentFile)
	if err != nil {
		return nil, err
	}
	out := make([]domain.DID, 0, len(names))
	for _, n := range names {
		out = append(out, domain.NewDID(n))
	}
	return out, nil
}

func (s *FileStore) StoreDIDMeta(did domain.DID, meta *domain.DIDMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkDID(did); err != nil {
		return err
	}

	b, err := encodeJSON(meta)
	if err != nil {
		return err
	}
	return s.write(didMetaKey(did), b)
}

func (s *FileStore) LoadDIDMeta(did domain.DID) (*domain.DIDMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkDID(did); err != nil {
		return nil, err
	}

	b, err := s.read(didMetaKey(did))
	if err != nil {
		return nil, err
	}
	return decodeDIDMeta(b)
}

// ---------- Private keys ----------

func (s *FileStore) StorePrivateKey(id domain.DIDURL, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkURL(id); err != nil {
		return err
	}

	return s.write(privateKeyKey(id), blobText(blob))
}

func (s *FileStore) LoadPrivateKey(id domain.DIDURL) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkURL(id); err != nil {
		return nil, err
	}

	return s.readBlob(privateKeyKey(id))
}

func (s *FileStore) ContainsPrivateKey(id domain.DIDURL) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkURL(id); err != nil {
		return false, err
	}

	return exists(s.path(privateKeyKey(id)))
}

func (s *FileStore) ContainsPrivateKeys(did domain.DID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkDID(did); err != nil {
		return false, err
	}

	names, err := files(s.path(privateKeysKey(did)))
	return len(names) > 0, err
}

func (s *FileStore) DeletePrivateKey(id domain.DIDURL) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkURL(id); err != nil {
		return false, err
	}

	return removeFile(s.path(privateKeyKey(id)))
}

func (s *FileStore) ListPrivateKeys(did domain.DID) ([]domain.DIDURL, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkDID(did); err != nil {
		return nil, err
	}

	names, err := files(s.path(privateKeysKey(did)))
	if err != nil {
		return nil, err
	}
	out := make([]domain.DIDURL, 0, len(names))
	for _, n := range names {
		out = append(out, domain.NewDIDURL(did, n))
	}
	return out, nil
}

func (s *FileStore) ListKeyOwners() ([]domain.DID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := subdirs(s.path(idsDir), privateKeysDir)
	if err != nil {
		return nil, err
	}
	var out []domain.DID
	for _, n := range names {
		keys, err := files(s.path(privateKeysKey(domain.NewDID(n))))
		if err != nil {
			return nil, err
		}
		if len(keys) > 0 {
			out = append(out, domain.NewDID(n))
		}
	}
	return out, nil
}

// ---------- Credentials ----------

func (s *FileStore) StoreCredential(id domain.DIDURL, credential []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkURL(id); err != nil {
		return err
	}

	return s.write(credentialKey(id), credential)
}

func (s *FileStore) LoadCredential(id domain.DIDURL) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkURL(id); err != nil {
		return nil, err
	}

	return s.read(credentialKey(id))
}

func (s *FileStore) ContainsCredential(id domain.DIDURL) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkURL(id); err != nil {
		return false, err
	}

	return exists(s.path(credentialKey(id)))
}

func (s *FileStore) DeleteCredential(id domain.DIDURL) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkURL(id); err != nil {
		return false, err
	}

	ok, err := exists(s.path(credentialKey(id)))
	if err != nil || !ok {
		return false, err
	}
	return removeTree(s.dir, s.path(credentialDir(id)))
}

func (s *FileStore) ListCredentials(did domain.DID) ([]domain.DIDURL, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkDID(did); err != nil {
		return nil, err
	}

	names, err := subdirs(s.path(credentialsKey(did)), credentialFile)
	if err != nil {
		return nil, err
	}
	out := make([]domain.DIDURL, 0, len(names))
	for _, n := range names {
		out = append(out, domain.NewDIDURL(did, n))
	}
	return out, nil
}

func (s *FileStore) StoreCredentialMeta(id domain.DIDURL, meta *domain.CredentialMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkURL(id); err != nil {
		return err
	}

	b, err := encodeJSON(meta)
	if err != nil {
		return err
	}
	return s.write(credentialMetaKey(id), b)
}

func (s *FileStore) LoadCredentialMeta(id domain.DIDURL) (*domain.CredentialMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkURL(id); err != nil {
		return nil, err
	}

	b, err := s.read(credentialMetaKey(id))
	if err != nil {
		return nil, err
	}
	return decodeCredentialMeta(b)
}

// ---------- Rotation ----------

func (s *FileStore) CommitRotation(r *domain.Rotation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := rotationWrites(r, blobText)
	if err != nil {
		return err
	}
	return s.commit(w)
}

// CommitImport journals the whole import, including the removal of every
// file of an imported DID that the import does not rewrite.
func (s *FileStore) CommitImport(im *domain.Import) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := importWrites(im, blobText, func(did domain.DID) ([]string, error) {
		return tree(s.dir, s.path(didDir(did)))
	})
	if err != nil {
		return err
	}
	return s.commit(w)
}

func (s *FileStore) Close() error { return nil }

// Compile-time assertion that FileStore implements domain.Storage.
var _ domain.Storage = (*FileStore)(nil)
