// Package didstore is the encrypted DID store: the identity root, DID
// documents and their local metadata, private keys, credentials, password
// rotation and export bundles, on top of a domain.Storage backend.
//
// Passwords are passed per call and never retained. Per-DID mutations are
// serialised with a per-DID lock; password rotation and identity imports
// take the whole store exclusively.
package didstore

import (
	"log/slog"
	"sync"
	"time"

	"didstore/internal/crypto"
	"didstore/internal/domain"
	"didstore/internal/fault"
)

// Config configures Open.
type Config struct {
	// Storage is the persistence backend. Required.
	Storage domain.Storage

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Document/credential read cache. Both zero disables it.
	CacheCapacity int
	CacheTTL      time.Duration

	// scrypt cost for new stores and password rotations. Zero selects
	// crypto.ScryptParamsDefault.
	ScryptN, ScryptR, ScryptP int

	// argon2id cost for export bundles. Zero selects crypto.DefaultArgon2.
	ExportArgon2 crypto.Argon2Params
}

// Store is an opened DID store. It is safe for concurrent use.
type Store struct {
	storage domain.Storage
	log     *slog.Logger
	cache   *cache
	kdf     [3]int
	argon   crypto.Argon2Params

	rw    sync.RWMutex // exclusive for rotation and identity replacement
	dids  keyedMutex   // per-DID serialisation
	idMu  sync.Mutex   // derivation index read-increment-persist
	metaM sync.Mutex   // guards meta
	meta  domain.StoreMeta
}

// Open loads the store metadata from cfg.Storage, creating it on first use.
func Open(cfg Config) (*Store, error) {
	if cfg.Storage == nil {
		return nil, fault.New(fault.Store, "No storage backend.")
	}
	s := &Store{
		storage: cfg.Storage,
		log:     cfg.Logger,
		cache:   newCache(cfg.CacheCapacity, cfg.CacheTTL),
		argon:   cfg.ExportArgon2,
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	n, r, p := crypto.ScryptParamsDefault()
	if cfg.ScryptN > 0 {
		n, r, p = cfg.ScryptN, cfg.ScryptR, cfg.ScryptP
	}
	s.kdf = [3]int{n, r, p}
	if s.argon == (crypto.Argon2Params{}) {
		s.argon = crypto.DefaultArgon2
	}

	meta, err := s.storage.LoadStoreMeta()
	if err != nil {
		return nil, fault.Wrap(fault.Store, "load store meta", err)
	}
	if meta == nil {
		fresh, err := s.newMeta()
		if err != nil {
			return nil, err
		}
		if err := s.storage.StoreStoreMeta(fresh); err != nil {
			return nil, fault.Wrap(fault.Store, "create store meta", err)
		}
		s.log.Info("store created", "version", fresh.Version)
		meta = fresh
	}
	if meta.Type != domain.StoreType || meta.Version > domain.StoreVersion {
		return nil, fault.Newf(fault.Store, "unsupported store %s v%d", meta.Type, meta.Version)
	}
	s.meta = *meta
	return s, nil
}

// Close releases the storage backend.
func (s *Store) Close() error {
	s.cache.purge()
	return s.storage.Close()
}

// newMeta returns store metadata with a fresh salt and the configured
// scrypt cost. The password check is left empty.
func (s *Store) newMeta() (*domain.StoreMeta, error) {
	salt, err := crypto.NewSalt()
	if err != nil {
		return nil, err
	}
	return &domain.StoreMeta{
		Type:    domain.StoreType,
		Version: domain.StoreVersion,
		Salt:    salt,
		N:       s.kdf[0],
		R:       s.kdf[1],
		P:       s.kdf[2],
	}, nil
}

// unlock derives the store key for password and validates it against the
// stored check value. The first password used on a store establishes the
// check. The caller wipes the key.
func (s *Store) unlock(password string) ([]byte, error) {
	s.metaM.Lock()
	meta := s.meta
	s.metaM.Unlock()

	key, err := crypto.DeriveKey(password, meta.Salt, meta.N, meta.R, meta.P)
	if err != nil {
		return nil, fault.Wrap(fault.Store, "derive store key", err)
	}
	if meta.PasswordCheck != "" {
		if !crypto.CheckPassword(key, meta.PasswordCheck) {
			crypto.Wipe(key)
			return nil, fault.ErrWrongPassword
		}
		return key, nil
	}

	s.metaM.Lock()
	defer s.metaM.Unlock()
	if s.meta.PasswordCheck != "" {
		// another caller established it first
		if !crypto.CheckPassword(key, s.meta.PasswordCheck) {
			crypto.Wipe(key)
			return nil, fault.ErrWrongPassword
		}
		return key, nil
	}
	meta = s.meta
	meta.PasswordCheck = crypto.PasswordCheck(key)
	if err := s.storage.StoreStoreMeta(&meta); err != nil {
		crypto.Wipe(key)
		return nil, fault.Wrap(fault.Store, "store password check", err)
	}
	s.meta = meta
	return key, nil
}

// seal encrypts secrets under the store key for password.
func (s *Store) seal(password string, secrets ...[]byte) ([][]byte, error) {
	key, err := s.unlock(password)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(key)

	out := make([][]byte, len(secrets))
	for i, pt := range secrets {
		if out[i], err = crypto.Encrypt(key, pt); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// CheckPassword reports whether password unlocks the store. It fails with
// fault.WrongPassword otherwise.
func (s *Store) CheckPassword(password string) error {
	s.rw.RLock()
	defer s.rw.RUnlock()

	key, err := s.unlock(password)
	if err != nil {
		return err
	}
	crypto.Wipe(key)
	return nil
}

