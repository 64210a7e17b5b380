package identity

import (
	"fmt"
	"unicode"

	"didstore/internal/crypto"
	"didstore/internal/document"
	"didstore/internal/domain"
	"didstore/internal/fault"
)

const (
	// minPasswordLength defines the minimum number of characters required for a store password.
	minPasswordLength = 12
)

var (
	// ErrWeakPassword is returned when the store password fails the strength policy.
	ErrWeakPassword = fmt.Errorf(
		"password is too weak (must be at least %d characters and include upper, lower, "+
			"number, and symbol)",
		minPasswordLength,
	)
)

// Store is the part of didstore.Store the service drives.
type Store interface {
	InitPrivateIdentity(language, words, passphrase, password string, overwrite bool) (string, error)
	NewDID(alias, password string) (*document.Document, error)
	LoadDID(did domain.DID) (*document.Document, error)
}

// Service manages the identity root and the DIDs derived from it.
//
// The identity root contains:
//   - a BIP39 mnemonic, kept so it can be exported again.
//   - the seed derived from it, which roots the HD key chain.
//   - the index of the next key to derive.
type Service struct {
	store Store
}

// New returns an identity service backed by the given store.
func New(s Store) *Service { return &Service{store: s} }

// Provision installs an identity root encrypted under password and returns
// its mnemonic. An empty words generates a fresh mnemonic in language.
func (s *Service) Provision(language, words, passphrase, password string, overwrite bool) (string, error) {
	if !isSecurePassword(password) {
		return "", ErrWeakPassword
	}
	return s.store.InitPrivateIdentity(language, words, passphrase, password, overwrite)
}

// CreateDID derives the next DID of the identity root and returns its
// document plus a short fingerprint of its default key.
func (s *Service) CreateDID(alias, password string) (*document.Document, domain.Fingerprint, error) {
	doc, err := s.store.NewDID(alias, password)
	if err != nil {
		return nil, "", err
	}
	fp, err := fingerprint(doc)
	if err != nil {
		return nil, "", err
	}
	return doc, fp, nil
}

// FingerprintDID returns a short fingerprint of the default key of a
// stored DID.
func (s *Service) FingerprintDID(did domain.DID) (domain.Fingerprint, error) {
	doc, err := s.store.LoadDID(did)
	if err != nil {
		return "", err
	}
	if doc == nil {
		return "", fault.ErrNoDocument
	}
	return fingerprint(doc)
}

func fingerprint(doc *document.Document) (domain.Fingerprint, error) {
	pk, ok := doc.PublicKey(doc.DefaultKey().Fragment)
	if !ok {
		return "", fault.ErrNoDefaultKey
	}
	pub, err := crypto.ParsePublicKeyBase58(pk.PublicKeyBase58)
	if err != nil {
		return "", err
	}
	return domain.Fingerprint(crypto.Fingerprint(pub)), nil
}

// isSecurePassword enforces a basic strength policy.
func isSecurePassword(password string) bool {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	if len(password) < minPasswordLength {
		return false
	}
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	return hasUpper && hasLower && hasDigit && hasSymbol
}
