package didstore

import (
	"didstore/internal/crypto"
	"didstore/internal/domain"
	"didstore/internal/fault"
)

// StorePrivateKey encrypts a raw secp256k1 private key under the store
// password and saves it as id.
func (s *Store) StorePrivateKey(id domain.DIDURL, privateKey []byte, password string) error {
	if err := checkID(id); err != nil {
		return err
	}
	kp, err := crypto.KeyPairFromPrivate(privateKey)
	if err != nil {
		return fault.Wrap(fault.Store, "invalid private key", err)
	}
	kp.Wipe()

	s.rw.RLock()
	defer s.rw.RUnlock()
	defer s.dids.lock(id.DID)()

	return s.storePrivateKey(id, privateKey, password)
}

// ContainsPrivateKey reports whether the store holds the private key id.
func (s *Store) ContainsPrivateKey(id domain.DIDURL) (bool, error) {
	if err := checkID(id); err != nil {
		return false, err
	}
	s.rw.RLock()
	defer s.rw.RUnlock()

	return s.storage.ContainsPrivateKey(id)
}

// ContainsPrivateKeys reports whether the store holds any private key of
// did.
func (s *Store) ContainsPrivateKeys(did domain.DID) (bool, error) {
	s.rw.RLock()
	defer s.rw.RUnlock()

	return s.storage.ContainsPrivateKeys(did)
}

// ListPrivateKeys lists the ids of the private keys held for did.
func (s *Store) ListPrivateKeys(did domain.DID) ([]domain.DIDURL, error) {
	s.rw.RLock()
	defer s.rw.RUnlock()

	return s.storage.ListPrivateKeys(did)
}

// DeletePrivateKey removes the private key id and reports whether it
// existed.
func (s *Store) DeletePrivateKey(id domain.DIDURL) (bool, error) {
	if err := checkID(id); err != nil {
		return false, err
	}
	s.rw.RLock()
	defer s.rw.RUnlock()
	defer s.dids.lock(id.DID)()

	ok, err := s.storage.DeletePrivateKey(id)
	if err != nil {
		return false, fault.Wrap(fault.Store, "delete private key", err)
	}
	return ok, nil
}

// Sign signs data with the private key id, unlocked with password for
// the duration of the call. Store satisfies document.Signer.
func (s *Store) Sign(id domain.DIDURL, password string, data ...[]byte) (string, error) {
	s.rw.RLock()
	defer s.rw.RUnlock()

	return s.sign(id, password, data...)
}

func (s *Store) sign(id domain.DIDURL, password string, data ...[]byte) (string, error) {
	if err := checkID(id); err != nil {
		return "", err
	}
	box, err := s.storage.LoadPrivateKey(id)
	if err != nil {
		return "", fault.Wrap(fault.Store, "load private key", err)
	}
	if box == nil {
		return "", fault.ErrNoPrivateKey
	}
	key, err := s.unlock(password)
	if err != nil {
		return "", err
	}
	defer crypto.Wipe(key)

	priv, err := crypto.Decrypt(key, box)
	if err != nil {
		return "", err
	}
	defer crypto.Wipe(priv)

	return crypto.Sign(priv, data...)
}

func (s *Store) storePrivateKey(id domain.DIDURL, privateKey []byte, password string) error {
	boxes, err := s.seal(password, privateKey)
	if err != nil {
		return err
	}
	if err := s.storage.StorePrivateKey(id, boxes[0]); err != nil {
		return fault.Wrap(fault.Store, "store private key", err)
	}
	s.log.Debug("private key stored", "key", id)
	return nil
}

// checkID rejects ids whose DID or fragment cannot name a stored item.
func checkID(id domain.DIDURL) error {
	if !id.Valid() {
		return fault.Newf(fault.Store, "invalid id %q", id)
	}
	return nil
}
