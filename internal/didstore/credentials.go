package didstore

import (
	"didstore/internal/credential"
	"didstore/internal/domain"
	"didstore/internal/fault"
)

// StoreCredential saves vc under its owner's DID. A non-empty alias is
// recorded in the credential's local metadata.
func (s *Store) StoreCredential(vc *credential.Credential, alias string) error {
	if vc == nil {
		return fault.New(fault.Store, "No credential.")
	}
	id := vc.ID()
	if id.DID != vc.Owner() || !id.Valid() {
		return fault.Newf(fault.Store, "invalid credential id %q", id)
	}

	s.rw.RLock()
	defer s.rw.RUnlock()
	defer s.dids.lock(id.DID)()

	if err := s.storeCredential(vc); err != nil {
		return err
	}
	if alias == "" {
		return nil
	}
	meta, err := s.storage.LoadCredentialMeta(id)
	if err != nil {
		return fault.Wrap(fault.Store, "load credential meta", err)
	}
	meta = meta.Clone()
	meta.Alias = alias
	return s.storeCredentialMeta(id, meta)
}

// LoadCredential returns the credential did#fragment, or nil.
func (s *Store) LoadCredential(did domain.DID, fragment string) (*credential.Credential, error) {
	id := domain.NewDIDURL(did, fragment)
	if err := checkID(id); err != nil {
		return nil, err
	}
	s.rw.RLock()
	defer s.rw.RUnlock()

	return s.loadCredential(id)
}

// ContainsCredential reports whether did#fragment is stored.
func (s *Store) ContainsCredential(did domain.DID, fragment string) (bool, error) {
	id := domain.NewDIDURL(did, fragment)
	if err := checkID(id); err != nil {
		return false, err
	}
	s.rw.RLock()
	defer s.rw.RUnlock()

	return s.storage.ContainsCredential(id)
}

// ListCredentials lists the credentials stored for did, with aliases.
func (s *Store) ListCredentials(did domain.DID) ([]domain.CredentialEntry, error) {
	s.rw.RLock()
	defer s.rw.RUnlock()

	ids, err := s.storage.ListCredentials(did)
	if err != nil {
		return nil, fault.Wrap(fault.Store, "list credentials", err)
	}
	out := make([]domain.CredentialEntry, 0, len(ids))
	for _, id := range ids {
		meta, err := s.storage.LoadCredentialMeta(id)
		if err != nil {
			return nil, fault.Wrap(fault.Store, "load credential meta", err)
		}
		e := domain.CredentialEntry{ID: id}
		if meta != nil {
			e.Alias = meta.Alias
		}
		out = append(out, e)
	}
	return out, nil
}

// DeleteCredential removes did#fragment and its metadata. It reports
// false when the credential was not present.
func (s *Store) DeleteCredential(did domain.DID, fragment string) (bool, error) {
	id := domain.NewDIDURL(did, fragment)
	if err := checkID(id); err != nil {
		return false, err
	}
	s.rw.RLock()
	defer s.rw.RUnlock()
	defer s.dids.lock(did)()

	ok, err := s.storage.DeleteCredential(id)
	s.cache.removeCredential(id)
	if err != nil {
		return false, fault.Wrap(fault.Store, "delete credential", err)
	}
	return ok, nil
}

// StoreCredentialMeta replaces the local metadata of credential id.
func (s *Store) StoreCredentialMeta(id domain.DIDURL, meta *domain.CredentialMeta) error {
	if err := checkID(id); err != nil {
		return err
	}
	s.rw.RLock()
	defer s.rw.RUnlock()
	defer s.dids.lock(id.DID)()

	ok, err := s.storage.ContainsCredential(id)
	if err != nil {
		return fault.Wrap(fault.Store, "check credential", err)
	}
	if !ok {
		return fault.Newf(fault.Store, "credential %s not in store", id)
	}
	return s.storeCredentialMeta(id, meta)
}

// LoadCredentialMeta returns the local metadata of credential id. A
// credential without metadata yields an empty value; an absent one nil.
func (s *Store) LoadCredentialMeta(id domain.DIDURL) (*domain.CredentialMeta, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	s.rw.RLock()
	defer s.rw.RUnlock()

	meta, err := s.storage.LoadCredentialMeta(id)
	if err != nil {
		return nil, fault.Wrap(fault.Store, "load credential meta", err)
	}
	if meta != nil {
		return meta.Clone(), nil
	}
	ok, err := s.storage.ContainsCredential(id)
	if err != nil || !ok {
		return nil, err
	}
	return &domain.CredentialMeta{}, nil
}

func (s *Store) storeCredential(vc *credential.Credential) error {
	data, err := vc.MarshalJSON()
	if err != nil {
		return fault.Wrap(fault.Store, "serialize credential", err)
	}
	s.cache.removeCredential(vc.ID())
	if err := s.storage.StoreCredential(vc.ID(), data); err != nil {
		return fault.Wrap(fault.Store, "store credential", err)
	}
	s.cache.putCredential(vc)
	s.log.Debug("credential stored", "key", vc.ID())
	return nil
}

func (s *Store) loadCredential(id domain.DIDURL) (*credential.Credential, error) {
	if vc := s.cache.credential(id); vc != nil {
		return vc, nil
	}
	epoch := s.cache.snapshot()
	data, err := s.storage.LoadCredential(id)
	if err != nil {
		return nil, fault.Wrap(fault.Store, "load credential", err)
	}
	if data == nil {
		return nil, nil
	}
	vc, err := credential.Parse(data)
	if err != nil {
		return nil, err
	}
	s.cache.fillCredential(epoch, vc)
	return vc, nil
}

func (s *Store) storeCredentialMeta(id domain.DIDURL, meta *domain.CredentialMeta) error {
	if err := s.storage.StoreCredentialMeta(id, meta); err != nil {
		return fault.Wrap(fault.Store, "store credential meta", err)
	}
	return nil
}
