// Package document implements the DID document value type and its Builder.
//
// A Document is immutable once sealed: every edit goes through a Builder
// obtained from Edit, and Seal returns a brand-new Document with a fresh
// proof and an incremented version. Prior values stay valid.
package document

import (
	"bytes"
	"encoding/json"
	"slices"
	"time"

	"didstore/internal/credential"
	"didstore/internal/crypto"
	"didstore/internal/domain/types"
	"didstore/internal/fault"
	"didstore/internal/schema"
)

const (
	// KeyType is the type of every public key entry.
	KeyType = "ECDSAsecp256k1"
	// ProofType is the type of every document proof.
	ProofType = "ECDSAsecp256k1"

	// DefaultKeyFragment names the key a new DID is created with.
	DefaultKeyFragment = "primary"

	// DefaultValidity is how long a newly sealed document stays valid.
	DefaultValidity = 5 * 365 * 24 * time.Hour
)

// Signer produces signatures with a key held in a store. password unlocks
// the key for the duration of one call.
type Signer interface {
	Sign(id types.DIDURL, password string, data ...[]byte) (string, error)
}

// SignerFunc adapts a function to Signer.
type SignerFunc func(id types.DIDURL, password string, data ...[]byte) (string, error)

func (f SignerFunc) Sign(id types.DIDURL, password string, data ...[]byte) (string, error) {
	return f(id, password, data...)
}

// PublicKey is a key entry of a document.
type PublicKey struct {
	ID              types.DIDURL
	Type            string
	Controller      types.DID
	PublicKeyBase58 string

	Authentication bool
	Authorization  bool
}

// Service is a service endpoint entry.
type Service struct {
	ID       types.DIDURL
	Type     string
	Endpoint string
}

// Proof is the signature block of a sealed document.
type Proof struct {
	Type      string
	Created   time.Time
	Creator   types.DIDURL
	Signature string
}

// Document is a sealed DID document.
type Document struct {
	subject     types.DID
	keys        []PublicKey // sorted by id
	credentials []*credential.Credential
	services    []Service
	expires     time.Time
	version     int
	proof       *Proof
}

// Parse decodes and validates a serialized document. It does not check the
// signature; see IsGenuine.
func Parse(data []byte) (*Document, error) {
	if err := schema.ValidateDocument(data); err != nil {
		return nil, err
	}
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fault.Wrap(fault.Malformed, "decode document", err)
	}
	return &d, nil
}

// Subject returns the DID the document describes.
func (d *Document) Subject() types.DID { return d.subject }

// Version is 1 for the first sealed document and grows by one per seal.
func (d *Document) Version() int { return d.version }

func (d *Document) Expires() time.Time { return d.expires }

// Proof returns a copy of the proof.
func (d *Document) Proof() Proof {
	if d.proof == nil {
		return Proof{}
	}
	return *d.proof
}

// Signature is shorthand for Proof().Signature.
func (d *Document) Signature() string { return d.Proof().Signature }

// PublicKeys returns copies of every key entry, sorted by id.
func (d *Document) PublicKeys() []PublicKey { return slices.Clone(d.keys) }

// PublicKey looks a key up by fragment.
func (d *Document) PublicKey(fragment string) (PublicKey, bool) {
	i := d.keyIndex(fragment)
	if i < 0 {
		return PublicKey{}, false
	}
	return d.keys[i], true
}

// AuthenticationKeys returns the ids of the authentication keys.
func (d *Document) AuthenticationKeys() []types.DIDURL {
	var out []types.DIDURL
	for _, k := range d.keys {
		if k.Authentication {
			out = append(out, k.ID)
		}
	}
	return out
}

// AuthorizationKeys returns the ids of the authorization keys.
func (d *Document) AuthorizationKeys() []types.DIDURL {
	var out []types.DIDURL
	for _, k := range d.keys {
		if k.Authorization {
			out = append(out, k.ID)
		}
	}
	return out
}

// IsAuthenticationKey reports whether id names an authentication key.
func (d *Document) IsAuthenticationKey(id types.DIDURL) bool {
	k, ok := d.keyByID(id)
	return ok && k.Authentication
}

// IsAuthorizationKey reports whether id names an authorization key.
func (d *Document) IsAuthorizationKey(id types.DIDURL) bool {
	k, ok := d.keyByID(id)
	return ok && k.Authorization
}

// DefaultKey returns the id of the key whose public key derives the
// subject's id string, or the zero URL if there is none.
func (d *Document) DefaultKey() types.DIDURL {
	for _, k := range d.keys {
		if k.Controller != d.subject {
			continue
		}
		id, err := crypto.IDStringFromBase58(k.PublicKeyBase58)
		if err == nil && id == d.subject.ID {
			return k.ID
		}
	}
	return types.DIDURL{}
}

// Credentials returns the embedded credentials.
func (d *Document) Credentials() []*credential.Credential {
	return slices.Clone(d.credentials)
}

// Credential looks an embedded credential up by fragment.
func (d *Document) Credential(fragment string) (*credential.Credential, bool) {
	for _, vc := range d.credentials {
		if vc.ID().Fragment == fragment {
			return vc, true
		}
	}
	return nil, false
}

// Services returns the service entries.
func (d *Document) Services() []Service { return slices.Clone(d.services) }

// Service looks a service up by fragment.
func (d *Document) Service(fragment string) (Service, bool) {
	for _, s := range d.services {
		if s.ID.Fragment == fragment {
			return s, true
		}
	}
	return Service{}, false
}

// IsExpired reports whether the document's expiry has passed.
func (d *Document) IsExpired() bool {
	return time.Now().After(d.expires)
}

// IsGenuine reports whether the proof was made by the default key, the
// default key is an authentication key and the signature verifies.
func (d *Document) IsGenuine() bool {
	if d.proof == nil || d.proof.Type != ProofType {
		return false
	}
	def := d.DefaultKey()
	if def.IsZero() || d.proof.Creator != def || !d.IsAuthenticationKey(def) {
		return false
	}
	data, err := d.SigningData()
	if err != nil {
		return false
	}
	return d.Verify(def, d.proof.Signature, data)
}

// IsValid is IsGenuine and not expired.
func (d *Document) IsValid() bool { return d.IsGenuine() && !d.IsExpired() }

// Verify checks signature over data with the key named id.
func (d *Document) Verify(id types.DIDURL, signature string, data ...[]byte) bool {
	k, ok := d.keyByID(id)
	if !ok {
		return false
	}
	return crypto.Verify(k.PublicKeyBase58, signature, data...)
}

// VerifyCredential reports whether vc was issued by this document's
// subject with one of its authentication keys.
func (d *Document) VerifyCredential(vc *credential.Credential) bool {
	p := vc.Proof()
	if p == nil || vc.Issuer() != d.subject || !d.IsAuthenticationKey(p.VerificationMethod) {
		return false
	}
	k, _ := d.keyByID(p.VerificationMethod)
	return vc.Verify(k.PublicKeyBase58)
}

// SigningData returns the canonical bytes covered by the proof.
func (d *Document) SigningData() ([]byte, error) {
	return json.Marshal(d.wire(false))
}

// Equal compares the serialized forms.
func (d *Document) Equal(o *Document) bool {
	a, err1 := d.MarshalJSON()
	b, err2 := o.MarshalJSON()
	return err1 == nil && err2 == nil && bytes.Equal(a, b)
}

func (d *Document) String() string {
	b, err := d.MarshalJSON()
	if err != nil {
		return ""
	}
	return string(b)
}

func (d *Document) keyIndex(fragment string) int {
	for i, k := range d.keys {
		if k.ID.Fragment == fragment {
			return i
		}
	}
	return -1
}

func (d *Document) keyByID(id types.DIDURL) (PublicKey, bool) {
	if id.DID != d.subject {
		return PublicKey{}, false
	}
	return d.PublicKey(id.Fragment)
}

func (d *Document) clone() *Document {
	c := *d
	c.keys = slices.Clone(d.keys)
	c.credentials = slices.Clone(d.credentials)
	c.services = slices.Clone(d.services)
	if d.proof != nil {
		p := *d.proof
		c.proof = &p
	}
	return &c
}
