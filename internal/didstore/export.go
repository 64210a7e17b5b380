package didstore

import (
	"encoding/json"
	"time"

	"github.com/fxamacker/cbor/v2"

	"didstore/internal/credential"
	"didstore/internal/crypto"
	"didstore/internal/document"
	"didstore/internal/domain"
	"didstore/internal/fault"
)

// ExportKind identifies the content of an export bundle.
type ExportKind string

const (
	ExportDIDKind      ExportKind = "DID"
	ExportIdentityKind ExportKind = "PrivateIdentity"
	ExportStoreKind    ExportKind = "DIDStore"
)

const exportVersion = 1

// exportFile is the self-describing outer form of every bundle. Payload
// is a password envelope around the kind-specific content.
type exportFile struct {
	Type    ExportKind      `json:"type"`
	Version int             `json:"version"`
	ID      string          `json:"id,omitempty"`
	Created time.Time       `json:"created"`
	Payload json.RawMessage `json:"payload"`
}

type didExport struct {
	Document    json.RawMessage    `json:"document"`
	Meta        *domain.DIDMeta    `json:"meta,omitempty"`
	PrivateKeys []keyExport        `json:"privateKeys,omitempty"`
	Credentials []credentialExport `json:"credentials,omitempty"`
}

type keyExport struct {
	ID  domain.DIDURL `json:"id"`
	Key []byte        `json:"key"`
}

type credentialExport struct {
	Credential json.RawMessage        `json:"credential"`
	Meta       *domain.CredentialMeta `json:"meta,omitempty"`
}

type identityExport struct {
	Mnemonic string `json:"mnemonic,omitempty"`
	Seed     []byte `json:"seed"`
	Index    int    `json:"index"`
}

// storeExport is CBOR encoded.
type storeExport struct {
	Identity *identityExport `json:"identity,omitempty"`
	DIDs     []didExport     `json:"dids"`
}

func (d *didExport) wipe() {
	for _, k := range d.PrivateKeys {
		crypto.Wipe(k.Key)
	}
}

func (e *identityExport) wipe() { crypto.Wipe(e.Seed) }

func (e *identityExport) check() error {
	if len(e.Seed) == 0 || e.Index < 0 {
		return fault.New(fault.Malformed, "invalid identity export")
	}
	return nil
}

var cborEnc = func() cbor.EncMode {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	em, err := opts.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// OpenExport decrypts a bundle and returns its kind and plaintext content.
// Two bundles of the same logical state open to equal content.
func OpenExport(data []byte, password string) (ExportKind, []byte, error) {
	var f exportFile
	if err := json.Unmarshal(data, &f); err != nil {
		return "", nil, fault.Wrap(fault.Malformed, "export bundle", err)
	}
	if f.Version != exportVersion {
		return "", nil, fault.ErrUnsupportedExport
	}
	switch f.Type {
	case ExportDIDKind, ExportIdentityKind, ExportStoreKind:
	default:
		return "", nil, fault.ErrUnsupportedExport
	}
	pt, err := crypto.OpenWithPassword(password, f.Payload)
	if err != nil {
		return "", nil, err
	}
	return f.Type, pt, nil
}

func (s *Store) pack(kind ExportKind, id string, content []byte, password string) ([]byte, error) {
	env, err := crypto.SealWithPasswordParams(password, content, s.argon)
	if err != nil {
		return nil, fault.Wrap(fault.Store, "seal export", err)
	}
	return json.Marshal(exportFile{
		Type:    kind,
		Version: exportVersion,
		ID:      id,
		Created: time.Now().UTC().Truncate(time.Second),
		Payload: env,
	})
}

func unpack(data []byte, want ExportKind, password string) ([]byte, error) {
	kind, pt, err := OpenExport(data, password)
	if err != nil {
		return nil, err
	}
	if kind != want {
		crypto.Wipe(pt)
		return nil, fault.Newf(fault.Store, "export holds %s, not %s", kind, want)
	}
	return pt, nil
}

// ExportDID bundles did's document, metadata, private keys and
// credentials under exportPassword.
func (s *Store) ExportDID(did domain.DID, exportPassword, storePassword string) ([]byte, error) {
	s.rw.RLock()
	defer s.rw.RUnlock()
	defer s.dids.lock(did)()

	key, err := s.unlock(storePassword)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(key)

	d, err := s.exportDID(did, key)
	if err != nil {
		return nil, err
	}
	defer d.wipe()

	content, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(content)
	return s.pack(ExportDIDKind, did.String(), content, exportPassword)
}

// ImportDID restores a DID bundle, re-encrypting its private keys under
// storePassword. An existing DID of the same id is replaced as a whole:
// keys and credentials missing from the bundle are removed. Every item is
// validated before anything is written.
func (s *Store) ImportDID(data []byte, exportPassword, storePassword string) (domain.DID, error) {
	pt, err := unpack(data, ExportDIDKind, exportPassword)
	if err != nil {
		return domain.DID{}, err
	}
	defer crypto.Wipe(pt)

	var d didExport
	if err := json.Unmarshal(pt, &d); err != nil {
		return domain.DID{}, fault.Wrap(fault.Malformed, "DID export", err)
	}
	defer d.wipe()

	doc, err := document.Parse(d.Document)
	if err != nil {
		return domain.DID{}, err
	}

	s.rw.RLock()
	defer s.rw.RUnlock()
	defer s.dids.lock(doc.Subject())()

	key, err := s.unlock(storePassword)
	if err != nil {
		return domain.DID{}, err
	}
	defer crypto.Wipe(key)

	rec, err := prepareDID(doc, &d, key)
	if err != nil {
		return domain.DID{}, err
	}
	if err := s.commitImport(&domain.Import{DIDs: []domain.DIDRecord{*rec}}); err != nil {
		return domain.DID{}, err
	}
	s.log.Info("did imported", "did", rec.DID, "keys", len(rec.PrivateKeys), "credentials", len(rec.Credentials))
	return rec.DID, nil
}

// ExportPrivateIdentity bundles the identity root under exportPassword.
func (s *Store) ExportPrivateIdentity(exportPassword, storePassword string) ([]byte, error) {
	s.rw.RLock()
	defer s.rw.RUnlock()

	key, err := s.unlock(storePassword)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(key)

	e, err := s.exportIdentity(key)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fault.ErrNoPrivateIdentity
	}
	defer e.wipe()

	content, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(content)
	return s.pack(ExportIdentityKind, "", content, exportPassword)
}

// ImportPrivateIdentity replaces the identity root with a bundled one,
// including its derivation index.
func (s *Store) ImportPrivateIdentity(data []byte, exportPassword, storePassword string) error {
	pt, err := unpack(data, ExportIdentityKind, exportPassword)
	if err != nil {
		return err
	}
	defer crypto.Wipe(pt)

	var e identityExport
	if err := json.Unmarshal(pt, &e); err != nil {
		return fault.Wrap(fault.Malformed, "identity export", err)
	}
	defer e.wipe()
	if err := e.check(); err != nil {
		return err
	}

	s.rw.Lock()
	defer s.rw.Unlock()

	if err := s.installIdentity(e.Seed, []byte(e.Mnemonic), e.Index, storePassword); err != nil {
		return err
	}
	s.log.Info("private identity imported", "index", e.Index)
	return nil
}

// ExportStore bundles the identity root and every DID under
// exportPassword.
func (s *Store) ExportStore(exportPassword, storePassword string) ([]byte, error) {
	s.rw.RLock()
	defer s.rw.RUnlock()

	key, err := s.unlock(storePassword)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(key)

	var all storeExport
	defer func() {
		if all.Identity != nil {
			all.Identity.wipe()
		}
		for i := range all.DIDs {
			all.DIDs[i].wipe()
		}
	}()

	if all.Identity, err = s.exportIdentity(key); err != nil {
		return nil, err
	}
	dids, err := s.storage.ListDIDs()
	if err != nil {
		return nil, fault.Wrap(fault.Store, "list DIDs", err)
	}
	for _, did := range dids {
		unlock := s.dids.lock(did)
		d, err := s.exportDID(did, key)
		unlock()
		if err != nil {
			return nil, err
		}
		all.DIDs = append(all.DIDs, *d)
	}

	content, err := cborEnc.Marshal(all)
	if err != nil {
		return nil, fault.Wrap(fault.Store, "encode store export", err)
	}
	defer crypto.Wipe(content)
	return s.pack(ExportStoreKind, "", content, exportPassword)
}

// ImportStore restores a whole-store bundle: the identity root, when
// present, and every DID. The bundle is validated in full and then
// committed as one unit; a bad item leaves the store untouched.
func (s *Store) ImportStore(data []byte, exportPassword, storePassword string) error {
	pt, err := unpack(data, ExportStoreKind, exportPassword)
	if err != nil {
		return err
	}
	defer crypto.Wipe(pt)

	var all storeExport
	if err := cbor.Unmarshal(pt, &all); err != nil {
		return fault.Wrap(fault.Malformed, "store export", err)
	}
	defer func() {
		if all.Identity != nil {
			all.Identity.wipe()
		}
		for i := range all.DIDs {
			all.DIDs[i].wipe()
		}
	}()
	if all.Identity != nil {
		if err := all.Identity.check(); err != nil {
			return err
		}
	}

	docs := make([]*document.Document, len(all.DIDs))
	seen := make(map[domain.DID]bool, len(all.DIDs))
	for i := range all.DIDs {
		if docs[i], err = document.Parse(all.DIDs[i].Document); err != nil {
			return err
		}
		if seen[docs[i].Subject()] {
			return fault.Newf(fault.Malformed, "%s exported twice", docs[i].Subject())
		}
		seen[docs[i].Subject()] = true
	}

	s.rw.Lock()
	defer s.rw.Unlock()

	key, err := s.unlock(storePassword)
	if err != nil {
		return err
	}
	defer crypto.Wipe(key)

	im := &domain.Import{DIDs: make([]domain.DIDRecord, 0, len(docs))}
	if e := all.Identity; e != nil {
		if im.Identity, err = sealIdentity(key, e.Seed, []byte(e.Mnemonic), e.Index); err != nil {
			return err
		}
	}
	for i, doc := range docs {
		rec, err := prepareDID(doc, &all.DIDs[i], key)
		if err != nil {
			return err
		}
		im.DIDs = append(im.DIDs, *rec)
	}
	if err := s.commitImport(im); err != nil {
		return err
	}
	s.log.Info("store imported", "dids", len(docs), "identity", all.Identity != nil)
	return nil
}

func (s *Store) exportIdentity(key []byte) (*identityExport, error) {
	id, err := s.storage.LoadPrivateIdentity()
	if err != nil {
		return nil, fault.Wrap(fault.Store, "load private identity", err)
	}
	if id == nil {
		return nil, nil
	}
	seed, err := crypto.Decrypt(key, id.Seed)
	if err != nil {
		return nil, err
	}
	e := &identityExport{Seed: seed, Index: id.Index}
	if len(id.Mnemonic) > 0 {
		mn, err := crypto.Decrypt(key, id.Mnemonic)
		if err != nil {
			e.wipe()
			return nil, err
		}
		e.Mnemonic = string(mn)
		crypto.Wipe(mn)
	}
	return e, nil
}

func (s *Store) exportDID(did domain.DID, key []byte) (*didExport, error) {
	raw, err := s.storage.LoadDID(did)
	if err != nil {
		return nil, fault.Wrap(fault.Store, "load document", err)
	}
	if raw == nil {
		return nil, fault.ErrNoDocument
	}
	meta, err := s.storage.LoadDIDMeta(did)
	if err != nil {
		return nil, fault.Wrap(fault.Store, "load DID meta", err)
	}
	d := &didExport{Document: raw, Meta: meta}

	keys, err := s.storage.ListPrivateKeys(did)
	if err != nil {
		return nil, fault.Wrap(fault.Store, "list private keys", err)
	}
	for _, id := range keys {
		box, err := s.storage.LoadPrivateKey(id)
		if err != nil {
			d.wipe()
			return nil, fault.Wrap(fault.Store, "load private key", err)
		}
		pk, err := crypto.Decrypt(key, box)
		if err != nil {
			d.wipe()
			return nil, err
		}
		d.PrivateKeys = append(d.PrivateKeys, keyExport{ID: id, Key: pk})
	}

	vcs, err := s.storage.ListCredentials(did)
	if err != nil {
		d.wipe()
		return nil, fault.Wrap(fault.Store, "list credentials", err)
	}
	for _, id := range vcs {
		raw, err := s.storage.LoadCredential(id)
		if err != nil {
			d.wipe()
			return nil, fault.Wrap(fault.Store, "load credential", err)
		}
		cm, err := s.storage.LoadCredentialMeta(id)
		if err != nil {
			d.wipe()
			return nil, fault.Wrap(fault.Store, "load credential meta", err)
		}
		d.Credentials = append(d.Credentials, credentialExport{Credential: raw, Meta: cm})
	}
	return d, nil
}

// prepareDID validates a bundled DID and turns it into a storage record
// with its private keys encrypted under key. Nothing is written.
func prepareDID(doc *document.Document, d *didExport, key []byte) (*domain.DIDRecord, error) {
	did := doc.Subject()
	if !did.Valid() {
		return nil, fault.Newf(fault.Malformed, "invalid DID %q", did)
	}
	if !doc.IsGenuine() {
		return nil, fault.ErrNotGenuine
	}
	raw, err := doc.MarshalJSON()
	if err != nil {
		return nil, fault.Wrap(fault.Store, "serialize document", err)
	}
	rec := &domain.DIDRecord{DID: did, Document: raw, Meta: d.Meta}
	if rec.Meta == nil {
		rec.Meta = &domain.DIDMeta{}
	}

	seen := make(map[domain.DIDURL]bool, len(d.PrivateKeys))
	for _, k := range d.PrivateKeys {
		if k.ID.DID != did || !k.ID.Valid() {
			return nil, fault.Newf(fault.Malformed, "key %s does not belong to %s", k.ID, did)
		}
		if seen[k.ID] {
			return nil, fault.Newf(fault.Malformed, "key %s exported twice", k.ID)
		}
		seen[k.ID] = true
		kp, err := crypto.KeyPairFromPrivate(k.Key)
		if err != nil {
			return nil, fault.Wrap(fault.Malformed, "private key "+k.ID.String(), err)
		}
		pub := kp.PublicKeyBase58()
		kp.Wipe()
		if pk, ok := doc.PublicKey(k.ID.Fragment); ok && pk.PublicKeyBase58 != pub {
			return nil, fault.Newf(fault.Malformed, "private key %s does not match the document", k.ID)
		}
		box, err := crypto.Encrypt(key, k.Key)
		if err != nil {
			return nil, err
		}
		rec.PrivateKeys = append(rec.PrivateKeys, domain.KeyBlob{ID: k.ID, Blob: box})
	}

	seen = make(map[domain.DIDURL]bool, len(d.Credentials))
	for _, c := range d.Credentials {
		vc, err := credential.Parse(c.Credential)
		if err != nil {
			return nil, err
		}
		id := vc.ID()
		if vc.Owner() != did || id.DID != did || !id.Valid() {
			return nil, fault.Newf(fault.Malformed, "credential %s does not belong to %s", id, did)
		}
		if seen[id] {
			return nil, fault.Newf(fault.Malformed, "credential %s exported twice", id)
		}
		seen[id] = true
		raw, err := vc.MarshalJSON()
		if err != nil {
			return nil, fault.Wrap(fault.Store, "serialize credential", err)
		}
		rec.Credentials = append(rec.Credentials, domain.CredentialRecord{ID: id, Credential: raw, Meta: c.Meta})
	}
	return rec, nil
}

// commitImport writes im in one unit and drops every cached value of
// the imported DIDs.
func (s *Store) commitImport(im *domain.Import) error {
	err := s.storage.CommitImport(im)
	for _, r := range im.DIDs {
		s.cache.removeDID(r.DID)
	}
	if err != nil {
		return fault.Wrap(fault.Store, "commit import", err)
	}
	return nil
}
