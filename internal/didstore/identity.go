package didstore

import (
	"didstore/internal/crypto"
	"didstore/internal/document"
	"didstore/internal/domain"
	"didstore/internal/fault"
	"didstore/internal/mnemonic"
)

// InitPrivateIdentity installs the identity root. An empty mnemonic is
// generated in language; a supplied one is validated. The seed derived
// from mnemonic and passphrase is stored encrypted together with the
// mnemonic and a derivation index of zero. It returns the mnemonic.
func (s *Store) InitPrivateIdentity(language, words, passphrase, password string, overwrite bool) (string, error) {
	s.rw.Lock()
	defer s.rw.Unlock()

	exists, err := s.storage.ContainsPrivateIdentity()
	if err != nil {
		return "", fault.Wrap(fault.Store, "check private identity", err)
	}
	if exists && !overwrite {
		return "", fault.ErrIdentityExists
	}

	if words == "" {
		if words, err = mnemonic.Generate(language); err != nil {
			return "", err
		}
	} else if !mnemonic.IsValid(language, words) {
		return "", fault.ErrInvalidMnemonic
	}

	seed, err := mnemonic.Seed(language, words, passphrase)
	if err != nil {
		return "", err
	}
	defer crypto.Wipe(seed)

	mn := []byte(words)
	defer crypto.Wipe(mn)

	if err := s.installIdentity(seed, mn, 0, password); err != nil {
		return "", err
	}
	s.log.Info("private identity initialized", "overwrite", exists)
	return words, nil
}

// ContainsPrivateIdentity reports whether the store has an identity root.
func (s *Store) ContainsPrivateIdentity() (bool, error) {
	s.rw.RLock()
	defer s.rw.RUnlock()

	return s.storage.ContainsPrivateIdentity()
}

// ExportMnemonic decrypts the identity's mnemonic.
func (s *Store) ExportMnemonic(password string) (string, error) {
	s.rw.RLock()
	defer s.rw.RUnlock()

	id, err := s.loadIdentity()
	if err != nil {
		return "", err
	}
	if len(id.Mnemonic) == 0 {
		return "", fault.New(fault.Store, "Private identity has no mnemonic.")
	}
	key, err := s.unlock(password)
	if err != nil {
		return "", err
	}
	defer crypto.Wipe(key)

	mn, err := crypto.Decrypt(key, id.Mnemonic)
	if err != nil {
		return "", err
	}
	defer crypto.Wipe(mn)
	return string(mn), nil
}

// NewDID derives the next key of the identity root and creates a DID
// with a single-key document sealed by it. The derivation index is
// persisted before anything else, so an index is never handed out twice.
// The returned document is not published.
func (s *Store) NewDID(alias, password string) (*document.Document, error) {
	s.rw.RLock()
	defer s.rw.RUnlock()

	if ok, err := s.storage.ContainsPrivateIdentity(); err != nil {
		return nil, fault.Wrap(fault.Store, "check private identity", err)
	} else if !ok {
		return nil, fault.ErrNoPrivateIdentity
	}
	key, err := s.unlock(password)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(key)

	kp, index, err := s.nextKey(key)
	if err != nil {
		return nil, err
	}
	defer kp.Wipe()

	did := domain.NewDID(crypto.IDString(kp.PublicKey()))
	defer s.dids.lock(did)()

	if ok, err := s.storage.ContainsDID(did); err != nil {
		return nil, fault.Wrap(fault.Store, "check DID", err)
	} else if ok {
		return nil, fault.ErrDIDExists
	}

	signer := document.SignerFunc(func(_ domain.DIDURL, _ string, data ...[]byte) (string, error) {
		return kp.Sign(data...), nil
	})
	b := document.NewBuilder(did, signer)
	if err := b.AddAuthenticationKey(document.DefaultKeyFragment, kp.PublicKeyBase58()); err != nil {
		return nil, err
	}
	doc, err := b.Seal(password)
	if err != nil {
		return nil, err
	}

	keyID := domain.NewDIDURL(did, document.DefaultKeyFragment)
	priv := kp.PrivateKey()
	defer crypto.Wipe(priv)
	box, err := crypto.Encrypt(key, priv)
	if err != nil {
		return nil, err
	}
	if err := s.storage.StorePrivateKey(keyID, box); err != nil {
		return nil, fault.Wrap(fault.Store, "store private key", err)
	}
	if err := s.storeDIDMeta(did, &domain.DIDMeta{Alias: alias}); err != nil {
		_, _ = s.storage.DeleteDID(did)
		return nil, err
	}
	if err := s.storeDID(doc); err != nil {
		_, _ = s.storage.DeleteDID(did)
		return nil, err
	}
	s.log.Info("did created", "did", did, "index", index)
	return doc, nil
}

// nextKey derives the key at the current index and persists index+1.
func (s *Store) nextKey(key []byte) (*crypto.KeyPair, int, error) {
	s.idMu.Lock()
	defer s.idMu.Unlock()

	id, err := s.loadIdentity()
	if err != nil {
		return nil, 0, err
	}

	seed, err := crypto.Decrypt(key, id.Seed)
	if err != nil {
		return nil, 0, err
	}
	defer crypto.Wipe(seed)

	hd, err := crypto.NewHDKey(seed)
	if err != nil {
		return nil, 0, fault.Wrap(fault.Store, "derive root key", err)
	}
	defer hd.Wipe()

	kp, err := hd.Derive(id.Index)
	if err != nil {
		return nil, 0, fault.Wrap(fault.Store, "derive key", err)
	}
	if err := s.storage.StoreIndex(id.Index + 1); err != nil {
		kp.Wipe()
		return nil, 0, fault.Wrap(fault.Store, "store derivation index", err)
	}
	return kp, id.Index, nil
}

func (s *Store) loadIdentity() (*domain.PrivateIdentity, error) {
	id, err := s.storage.LoadPrivateIdentity()
	if err != nil {
		return nil, fault.Wrap(fault.Store, "load private identity", err)
	}
	if id == nil {
		return nil, fault.ErrNoPrivateIdentity
	}
	return id, nil
}

// installIdentity encrypts and persists an identity root in one unit.
func (s *Store) installIdentity(seed, mn []byte, index int, password string) error {
	key, err := s.unlock(password)
	if err != nil {
		return err
	}
	defer crypto.Wipe(key)

	id, err := sealIdentity(key, seed, mn, index)
	if err != nil {
		return err
	}
	if err := s.storage.StorePrivateIdentity(id); err != nil {
		return fault.Wrap(fault.Store, "store private identity", err)
	}
	return nil
}

// sealIdentity encrypts seed and, when present, mn under key.
func sealIdentity(key, seed, mn []byte, index int) (*domain.PrivateIdentity, error) {
	if len(seed) == 0 {
		return nil, fault.New(fault.Malformed, "empty identity seed")
	}
	box, err := crypto.Encrypt(key, seed)
	if err != nil {
		return nil, err
	}
	id := &domain.PrivateIdentity{Seed: box, Index: index}
	if len(mn) > 0 {
		if id.Mnemonic, err = crypto.Encrypt(key, mn); err != nil {
			return nil, err
		}
	}
	return id, nil
}
