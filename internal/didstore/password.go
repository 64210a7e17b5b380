package didstore

import (
	"didstore/internal/crypto"
	"didstore/internal/domain"
	"didstore/internal/fault"
)

// ChangePassword re-encrypts every secret of the store under newPassword
// with a fresh salt. oldPassword is checked before anything is read; any
// failure leaves the store as it was.
func (s *Store) ChangePassword(oldPassword, newPassword string) error {
	s.rw.Lock()
	defer s.rw.Unlock()

	oldKey, err := s.unlock(oldPassword)
	if err != nil {
		return err
	}
	defer crypto.Wipe(oldKey)

	meta, err := s.newMeta()
	if err != nil {
		return err
	}
	newKey, err := crypto.DeriveKey(newPassword, meta.Salt, meta.N, meta.R, meta.P)
	if err != nil {
		return fault.Wrap(fault.Store, "derive store key", err)
	}
	defer crypto.Wipe(newKey)
	meta.PasswordCheck = crypto.PasswordCheck(newKey)

	rot := &domain.Rotation{Meta: *meta}
	reseal := func(box []byte) ([]byte, error) {
		pt, err := crypto.Decrypt(oldKey, box)
		if err != nil {
			return nil, err
		}
		defer crypto.Wipe(pt)
		return crypto.Encrypt(newKey, pt)
	}

	id, err := s.storage.LoadPrivateIdentity()
	if err != nil {
		return fault.Wrap(fault.Store, "load private identity", err)
	}
	if id != nil {
		rid := &domain.PrivateIdentity{Index: id.Index}
		if rid.Seed, err = reseal(id.Seed); err != nil {
			return err
		}
		if len(id.Mnemonic) > 0 {
			if rid.Mnemonic, err = reseal(id.Mnemonic); err != nil {
				return err
			}
		}
		rot.Identity = rid
	}

	// keys stored without a document are rotated too
	owners, err := s.storage.ListKeyOwners()
	if err != nil {
		return fault.Wrap(fault.Store, "list key owners", err)
	}
	for _, did := range owners {
		keys, err := s.storage.ListPrivateKeys(did)
		if err != nil {
			return fault.Wrap(fault.Store, "list private keys", err)
		}
		for _, k := range keys {
			box, err := s.storage.LoadPrivateKey(k)
			if err != nil {
				return fault.Wrap(fault.Store, "load private key", err)
			}
			blob, err := reseal(box)
			if err != nil {
				return fault.Wrap(fault.Store, "re-encrypt "+k.String(), err)
			}
			rot.PrivateKeys = append(rot.PrivateKeys, domain.KeyBlob{ID: k, Blob: blob})
		}
	}

	if err := s.storage.CommitRotation(rot); err != nil {
		return fault.Wrap(fault.Store, "commit password change", err)
	}

	s.metaM.Lock()
	s.meta = *meta
	s.metaM.Unlock()

	s.log.Info("store password changed", "keys", len(rot.PrivateKeys))
	return nil
}
