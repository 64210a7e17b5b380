package didstore

import (
	"didstore/internal/document"
	"didstore/internal/domain"
	"didstore/internal/fault"
)

// StoreDID saves doc as the current document of its subject.
func (s *Store) StoreDID(doc *document.Document) error {
	if doc == nil {
		return fault.ErrNoDocument
	}
	s.rw.RLock()
	defer s.rw.RUnlock()
	defer s.dids.lock(doc.Subject())()

	return s.storeDID(doc)
}

// LoadDID returns the current document of did, or nil when it is not in
// the store.
func (s *Store) LoadDID(did domain.DID) (*document.Document, error) {
	s.rw.RLock()
	defer s.rw.RUnlock()

	return s.loadDID(did)
}

// ContainsDID reports whether did has a document in the store.
func (s *Store) ContainsDID(did domain.DID) (bool, error) {
	s.rw.RLock()
	defer s.rw.RUnlock()

	return s.storage.ContainsDID(did)
}

// DeleteDID removes did with its metadata, private keys and credentials.
// It reports false when the DID was not present.
func (s *Store) DeleteDID(did domain.DID) (bool, error) {
	s.rw.RLock()
	defer s.rw.RUnlock()
	defer s.dids.lock(did)()

	ok, err := s.storage.DeleteDID(did)
	s.cache.removeDID(did)
	if err != nil {
		return false, fault.Wrap(fault.Store, "delete DID", err)
	}
	if ok {
		s.log.Info("did deleted", "did", did)
	}
	return ok, nil
}

// ListDIDs lists the DIDs selected by filter, with their aliases.
func (s *Store) ListDIDs(filter domain.ListFilter) ([]domain.DIDEntry, error) {
	s.rw.RLock()
	defer s.rw.RUnlock()

	dids, err := s.storage.ListDIDs()
	if err != nil {
		return nil, fault.Wrap(fault.Store, "list DIDs", err)
	}
	out := make([]domain.DIDEntry, 0, len(dids))
	for _, did := range dids {
		if filter != domain.FilterAll {
			has, err := s.storage.ContainsPrivateKeys(did)
			if err != nil {
				return nil, fault.Wrap(fault.Store, "list private keys", err)
			}
			if has != (filter == domain.FilterHasPrivateKey) {
				continue
			}
		}
		meta, err := s.storage.LoadDIDMeta(did)
		if err != nil {
			return nil, err
		}
		e := domain.DIDEntry{DID: did}
		if meta != nil {
			e.Alias = meta.Alias
		}
		out = append(out, e)
	}
	return out, nil
}

// StoreDIDMeta replaces the local metadata of did.
func (s *Store) StoreDIDMeta(did domain.DID, meta *domain.DIDMeta) error {
	s.rw.RLock()
	defer s.rw.RUnlock()
	defer s.dids.lock(did)()

	return s.storeDIDMeta(did, meta)
}

// LoadDIDMeta returns the local metadata of did. A DID without metadata
// yields an empty value; a DID not in the store yields nil.
func (s *Store) LoadDIDMeta(did domain.DID) (*domain.DIDMeta, error) {
	s.rw.RLock()
	defer s.rw.RUnlock()

	return s.loadDIDMeta(did)
}

// SetAlias updates the alias in the local metadata of did.
func (s *Store) SetAlias(did domain.DID, alias string) error {
	return s.Transact(did, func(tx *DIDTx) error {
		meta, err := tx.Meta()
		if err != nil {
			return err
		}
		if meta == nil {
			return fault.ErrNoDocument
		}
		meta.Alias = alias
		return tx.StoreMeta(meta)
	})
}

// Transact runs fn while holding the lock of did, so that a read of the
// document and metadata followed by a write cannot interleave with
// another mutation of the same DID. fn must only use tx to access the
// store.
func (s *Store) Transact(did domain.DID, fn func(tx *DIDTx) error) error {
	s.rw.RLock()
	defer s.rw.RUnlock()
	defer s.dids.lock(did)()

	return fn(&DIDTx{s: s, did: did})
}

// DIDTx is the view of the store handed to a Transact callback.
type DIDTx struct {
	s   *Store
	did domain.DID
}

// DID returns the locked DID.
func (tx *DIDTx) DID() domain.DID { return tx.did }

// Document returns the locked DID's current document, or nil.
func (tx *DIDTx) Document() (*document.Document, error) { return tx.s.loadDID(tx.did) }

// Meta returns a copy of the locked DID's metadata, or nil when the DID
// is not in the store.
func (tx *DIDTx) Meta() (*domain.DIDMeta, error) { return tx.s.loadDIDMeta(tx.did) }

// StoreDocument replaces the locked DID's document.
func (tx *DIDTx) StoreDocument(doc *document.Document) error {
	if doc == nil || doc.Subject() != tx.did {
		return fault.Newf(fault.Store, "document is not about %s", tx.did)
	}
	return tx.s.storeDID(doc)
}

// StoreMeta replaces the locked DID's metadata.
func (tx *DIDTx) StoreMeta(meta *domain.DIDMeta) error { return tx.s.storeDIDMeta(tx.did, meta) }

// LoadDID reads another DID's document without locking it.
func (tx *DIDTx) LoadDID(did domain.DID) (*document.Document, error) { return tx.s.loadDID(did) }

// Sign signs with a key in the store, like Store.Sign.
func (tx *DIDTx) Sign(id domain.DIDURL, password string, data ...[]byte) (string, error) {
	return tx.s.sign(id, password, data...)
}

func (s *Store) storeDID(doc *document.Document) error {
	data, err := doc.MarshalJSON()
	if err != nil {
		return fault.Wrap(fault.Store, "serialize document", err)
	}
	s.cache.removeDocument(doc.Subject())
	if err := s.storage.StoreDID(doc.Subject(), data); err != nil {
		return fault.Wrap(fault.Store, "store document", err)
	}
	s.cache.putDocument(doc)
	s.log.Debug("document stored", "did", doc.Subject(), "version", doc.Version())
	return nil
}

func (s *Store) loadDID(did domain.DID) (*document.Document, error) {
	if doc := s.cache.document(did); doc != nil {
		return doc, nil
	}
	epoch := s.cache.snapshot()
	data, err := s.storage.LoadDID(did)
	if err != nil {
		return nil, fault.Wrap(fault.Store, "load document", err)
	}
	if data == nil {
		return nil, nil
	}
	doc, err := document.Parse(data)
	if err != nil {
		return nil, err
	}
	s.cache.fillDocument(epoch, doc)
	return doc, nil
}

func (s *Store) storeDIDMeta(did domain.DID, meta *domain.DIDMeta) error {
	if err := s.storage.StoreDIDMeta(did, meta); err != nil {
		return fault.Wrap(fault.Store, "store DID meta", err)
	}
	return nil
}

func (s *Store) loadDIDMeta(did domain.DID) (*domain.DIDMeta, error) {
	meta, err := s.storage.LoadDIDMeta(did)
	if err != nil {
		return nil, fault.Wrap(fault.Store, "load DID meta", err)
	}
	if meta != nil {
		return meta.Clone(), nil
	}
	ok, err := s.storage.ContainsDID(did)
	if err != nil || !ok {
		return nil, err
	}
	return &domain.DIDMeta{}, nil
}
