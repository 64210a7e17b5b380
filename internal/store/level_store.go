package store

import (
	"strings"

	"github.com/syndtr/goleveldb/leveldb"
	ldb_opt "github.com/syndtr/goleveldb/leveldb/opt"
	ldb_util "github.com/syndtr/goleveldb/leveldb/util"

	"didstore/internal/domain"
	"didstore/internal/fault"
)

// LevelStore keeps the same logical layout as FileStore in a single
// LevelDB database. Keys are the layout paths; values are raw bytes.
// Multi-key updates are written as one batch.
type LevelStore struct {
	db *leveldb.DB
}

// NewLevelStore opens (creating if needed) the database at path.
func NewLevelStore(path string) (*LevelStore, error) {
	opt := &ldb_opt.Options{
		ErrorIfExist:   false,
		ErrorIfMissing: false,
	}
	db, err := leveldb.OpenFile(path, opt)
	if err != nil {
		return nil, fault.Wrap(fault.Store, "open leveldb", err)
	}
	return &LevelStore{db: db}, nil
}

func (s *LevelStore) get(key string) ([]byte, error) {
	v, err := s.db.Get([]byte(key), nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fault.Wrap(fault.Store, "read "+key, err)
	}
	return v, nil
}

func (s *LevelStore) put(key string, v []byte) error {
	if err := s.db.Put([]byte(key), v, nil); err != nil {
		return fault.Wrap(fault.Store, "write "+key, err)
	}
	return nil
}

func (s *LevelStore) has(key string) (bool, error) {
	ok, err := s.db.Has([]byte(key), nil)
	if err != nil {
		return false, fault.Wrap(fault.Store, "read "+key, err)
	}
	return ok, nil
}

func (s *LevelStore) del(key string) (bool, error) {
	ok, err := s.has(key)
	if err != nil || !ok {
		return false, err
	}
	if err := s.db.Delete([]byte(key), nil); err != nil {
		return false, fault.Wrap(fault.Store, "delete "+key, err)
	}
	return true, nil
}

// apply writes a set of updates atomically; nil values are deletes.
func (s *LevelStore) apply(writes map[string][]byte) error {
	batch := new(leveldb.Batch)
	for k, v := range writes {
		if v == nil {
			batch.Delete([]byte(k))
		} else {
			batch.Put([]byte(k), v)
		}
	}
	if err := s.db.Write(batch, &ldb_opt.WriteOptions{Sync: true}); err != nil {
		return fault.Wrap(fault.Store, "write batch", err)
	}
	return nil
}

// scan returns the key suffixes under prefix, in key order.
func (s *LevelStore) scan(prefix string) ([]string, error) {
	iter := s.db.NewIterator(ldb_util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()

	var out []string
	for iter.Next() {
		out = append(out, strings.TrimPrefix(string(iter.Key()), prefix))
	}
	if err := iter.Error(); err != nil {
		return nil, fault.Wrap(fault.Store, "scan "+prefix, err)
	}
	return out, nil
}

// children lists the first path segments under prefix whose remainder
// equals leaf, i.e. the directories holding a given file.
func (s *LevelStore) children(prefix, leaf string) ([]string, error) {
	rest, err := s.scan(prefix)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, r := range rest {
		name, tail, ok := strings.Cut(r, "/")
		if ok && tail == leaf {
			out = append(out, name)
		}
	}
	return out, nil
}

func (s *LevelStore) LoadStoreMeta() (*domain.StoreMeta, error) {
	b, err := s.get(metaFile)
	if err != nil {
		return nil, err
	}
	return decodeStoreMeta(b)
}

func (s *LevelStore) StoreStoreMeta(meta *domain.StoreMeta) error {
	b, err := encodeJSON(meta)
	if err != nil {
		return err
	}
	return s.put(metaFile, b)
}

func (s *LevelStore) ContainsPrivateIdentity() (bool, error) { return s.has(seedKey) }

func (s *LevelStore) LoadPrivateIdentity() (*domain.PrivateIdentity, error) {
	snap, err := s.db.GetSnapshot()
	if err != nil {
		return nil, fault.Wrap(fault.Store, "snapshot", err)
	}
	defer snap.Release()

	get := func(k string) ([]byte, error) {
		v, err := snap.Get([]byte(k), nil)
		if err == leveldb.ErrNotFound {
			return nil, nil
		}
		return v, err
	}
	seed, err := get(seedKey)
	if err != nil || seed == nil {
		return nil, err
	}
	mnemonic, err := get(mnemonicKey)
	if err != nil {
		return nil, err
	}
	id := &domain.PrivateIdentity{Seed: seed, Mnemonic: mnemonic}
	if b, err := get(indexKey); err != nil {
		return nil, err
	} else if b != nil {
		if id.Index, err = decodeIndex(b); err != nil {
			return nil, err
		}
	}
	return id, nil
}

func (s *LevelStore) StorePrivateIdentity(id *domain.PrivateIdentity) error {
	return s.apply(identityWrites(id, rawBlob))
}

func (s *LevelStore) StoreIndex(index int) error { return s.put(indexKey, encodeIndex(index)) }

func (s *LevelStore) StoreDID(did domain.DID, document []byte) error {
	if err := checkDID(did); err != nil {
		return err
	}
	return s.put(documentKey(did), document)
}

func (s *LevelStore) LoadDID(did domain.DID) ([]byte, error) {
	if err := checkDID(did); err != nil {
		return nil, err
	}
	return s.get(documentKey(did))
}

func (s *LevelStore) ContainsDID(did domain.DID) (bool, error) {
	if err := checkDID(did); err != nil {
		return false, err
	}
	return s.has(documentKey(did))
}

func (s *LevelStore) DeleteDID(did domain.DID) (bool, error) {
	if err := checkDID(did); err != nil {
		return false, err
	}
	prefix := didDir(did) + "/"
	rest, err := s.scan(prefix)
	if err != nil || len(rest) == 0 {
		return false, err
	}
	w := make(map[string][]byte, len(rest))
	for _, r := range rest {
		w[prefix+r] = nil
	}
	return true, s.apply(w)
}

func (s *LevelStore) ListDIDs() ([]domain.DID, error) {
	names, err := s.children(idsDir+"/", documentFile)
	if err != nil {
		return nil, err
	}
	out := make([]domain.DID, 0, len(names))
	for _, n := range names {
		out = append(out, domain.NewDID(n))
	}
	return out, nil
}

func (s *LevelStore) StoreDIDMeta(did domain.DID, meta *domain.DIDMeta) error {
	if err := checkDID(did); err != nil {
		return err
	}
	b, err := encodeJSON(meta)
	if err != nil {
		return err
	}
	return s.put(didMetaKey(did), b)
}

func (s *LevelStore) LoadDIDMeta(did domain.DID) (*domain.DIDMeta, error) {
	if err := checkDID(did); err != nil {
		return nil, err
	}
	b, err := s.get(didMetaKey(did))
	if err != nil {
		return nil, err
	}
	return decodeDIDMeta(b)
}

func (s *LevelStore) StorePrivateKey(id domain.DIDURL, blob []byte) error {
	if err := checkURL(id); err != nil {
		return err
	}
	return s.put(privateKeyKey(id), blob)
}

func (s *LevelStore) LoadPrivateKey(id domain.DIDURL) ([]byte, error) {
	if err := checkURL(id); err != nil {
		return nil, err
	}
	return s.get(privateKeyKey(id))
}

func (s *LevelStore) ContainsPrivateKey(id domain.DIDURL) (bool, error) {
	if err := checkURL(id); err != nil {
		return false, err
	}
	return s.has(privateKeyKey(id))
}

func (s *LevelStore) ContainsPrivateKeys(did domain.DID) (bool, error) {
	keys, err := s.ListPrivateKeys(did)
	return len(keys) > 0, err
}

func (s *LevelStore) DeletePrivateKey(id domain.DIDURL) (bool, error) {
	if err := checkURL(id); err != nil {
		return false, err
	}
	return s.del(privateKeyKey(id))
}

func (s *LevelStore) ListPrivateKeys(did domain.DID) ([]domain.DIDURL, error) {
	if err := checkDID(did); err != nil {
		return nil, err
	}
	rest, err := s.scan(privateKeysKey(did) + "/")
	if err != nil {
		return nil, err
	}
	out := make([]domain.DIDURL, 0, len(rest))
	for _, r := range rest {
		if !strings.Contains(r, "/") {
			out = append(out, domain.NewDIDURL(did, r))
		}
	}
	return out, nil
}

func (s *LevelStore) ListKeyOwners() ([]domain.DID, error) {
	rest, err := s.scan(idsDir + "/")
	if err != nil {
		return nil, err
	}
	var out []domain.DID
	for _, r := range rest {
		name, tail, _ := strings.Cut(r, "/")
		dir, key, ok := strings.Cut(tail, "/")
		if !ok || dir != privateKeysDir || strings.Contains(key, "/") {
			continue
		}
		if did := domain.NewDID(name); len(out) == 0 || out[len(out)-1] != did {
			out = append(out, did)
		}
	}
	return out, nil
}

func (s *LevelStore) StoreCredential(id domain.DIDURL, credential []byte) error {
	if err := checkURL(id); err != nil {
		return err
	}
	return s.put(credentialKey(id), credential)
}

func (s *LevelStore) LoadCredential(id domain.DIDURL) ([]byte, error) {
	if err := checkURL(id); err != nil {
		return nil, err
	}
	return s.get(credentialKey(id))
}

func (s *LevelStore) ContainsCredential(id domain.DIDURL) (bool, error) {
	if err := checkURL(id); err != nil {
		return false, err
	}
	return s.has(credentialKey(id))
}

func (s *LevelStore) DeleteCredential(id domain.DIDURL) (bool, error) {
	if err := checkURL(id); err != nil {
		return false, err
	}
	ok, err := s.has(credentialKey(id))
	if err != nil || !ok {
		return false, err
	}
	return true, s.apply(map[string][]byte{
		credentialKey(id):     nil,
		credentialMetaKey(id): nil,
	})
}

func (s *LevelStore) ListCredentials(did domain.DID) ([]domain.DIDURL, error) {
	if err := checkDID(did); err != nil {
		return nil, err
	}
	names, err := s.children(credentialsKey(did)+"/", credentialFile)
	if err != nil {
		return nil, err
	}
	out := make([]domain.DIDURL, 0, len(names))
	for _, n := range names {
		out = append(out, domain.NewDIDURL(did, n))
	}
	return out, nil
}

func (s *LevelStore) StoreCredentialMeta(id domain.DIDURL, meta *domain.CredentialMeta) error {
	if err := checkURL(id); err != nil {
		return err
	}
	b, err := encodeJSON(meta)
	if err != nil {
		return err
	}
	return s.put(credentialMetaKey(id), b)
}

func (s *LevelStore) LoadCredentialMeta(id domain.DIDURL) (*domain.CredentialMeta, error) {
	if err := checkURL(id); err != nil {
		return nil, err
	}
	b, err := s.get(credentialMetaKey(id))
	if err != nil {
		return nil, err
	}
	return decodeCredentialMeta(b)
}

func (s *LevelStore) CommitRotation(r *domain.Rotation) error {
	w, err := rotationWrites(r, rawBlob)
	if err != nil {
		return err
	}
	return s.apply(w)
}

// CommitImport writes the whole import, including the removal of every
// key of an imported DID that the import does not rewrite, as one batch.
func (s *LevelStore) CommitImport(im *domain.Import) error {
	w, err := importWrites(im, rawBlob, func(did domain.DID) ([]string, error) {
		prefix := didDir(did) + "/"
		rest, err := s.scan(prefix)
		if err != nil {
			return nil, err
		}
		keys := make([]string, len(rest))
		for i, r := range rest {
			keys[i] = prefix + r
		}
		return keys, nil
	})
	if err != nil {
		return err
	}
	return s.apply(w)
}

func (s *LevelStore) Close() error { return s.db.Close() }

func rawBlob(b []byte) []byte { return b }

var _ domain.Storage = (*LevelStore)(nil)
