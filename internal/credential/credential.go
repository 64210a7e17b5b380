// Package credential defines the verifiable credential value type.
//
// A Credential is an immutable, signed claim set about a subject DID,
// addressed by a DID URL under its owner. Credentials are produced by the
// issuer package and parsed from their JSON form here.
package credential

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"
	"time"

	"didstore/internal/crypto"
	"didstore/internal/domain/types"
	"didstore/internal/fault"
	"didstore/internal/schema"
)

// ProofType is the only signature suite produced and accepted.
const ProofType = "ECDSAsecp256k1"

// SelfProclaimedType marks credentials a DID issues about itself.
const SelfProclaimedType = "SelfProclaimedCredential"

// Subject is the claim set of a credential.
type Subject struct {
	ID         types.DID
	Properties map[string]any
}

// Proof binds a credential to the issuer key that signed it.
type Proof struct {
	Type               string
	VerificationMethod types.DIDURL
	Signature          string
}

// Credential is a verifiable credential. The zero value is not usable;
// obtain one from Parse or the issuer package.
type Credential struct {
	id        types.DIDURL
	types     []string
	issuer    types.DID
	issuedAt  time.Time
	expiresAt time.Time
	subject   Subject
	proof     *Proof
}

// Unsigned builds a credential without a proof. The issuer package signs
// SigningData and attaches the result with WithProof.
func Unsigned(id types.DIDURL, vcTypes []string, issuer types.DID, issued, expires time.Time, subject Subject) *Credential {
	t := slices.Clone(vcTypes)
	slices.Sort(t)
	return &Credential{
		id:        id,
		types:     slices.Compact(t),
		issuer:    issuer,
		issuedAt:  issued.UTC().Truncate(time.Second),
		expiresAt: expires.UTC().Truncate(time.Second),
		subject:   Subject{ID: subject.ID, Properties: maps.Clone(subject.Properties)},
	}
}

// WithProof returns a copy of c carrying p.
func (c *Credential) WithProof(p Proof) *Credential {
	cp := *c
	cp.proof = &p
	return &cp
}

// Parse decodes and validates a serialized credential.
func Parse(data []byte) (*Credential, error) {
	if err := schema.ValidateCredential(data); err != nil {
		return nil, err
	}
	var c Credential
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fault.Wrap(fault.Malformed, "decode credential", err)
	}
	return &c, nil
}

func (c *Credential) ID() types.DIDURL { return c.id }
func (c *Credential) Types() []string { return slices.Clone(c.types) }
func (c *Credential) Issuer() types.DID { return c.issuer }
func (c *Credential) Owner() types.DID { return c.subject.ID }
func (c *Credential) IssuanceDate() time.Time { return c.issuedAt }
func (c *Credential) ExpirationDate() time.Time { return c.expiresAt }

// Subject returns a copy of the claim set.
func (c *Credential) Subject() Subject {
	return Subject{ID: c.subject.ID, Properties: maps.Clone(c.subject.Properties)}
}

// Property returns one claim.
func (c *Credential) Property(name string) (any, bool) {
	v, ok := c.subject.Properties[name]
	return v, ok
}

// Proof returns the proof, or nil for an unsigned credential.
func (c *Credential) Proof() *Proof {
	if c.proof == nil {
		return nil
	}
	p := *c.proof
	return &p
}

// HasType reports whether t is one of the credential's types.
func (c *Credential) HasType(t string) bool {
	_, found := slices.BinarySearch(c.types, t)
	return found
}

// IsExpired reports whether the expiration date has passed. A credential
// without an expiration date never expires.
func (c *Credential) IsExpired() bool {
	return !c.expiresAt.IsZero() && time.Now().After(c.expiresAt)
}

// IsSelfProclaimed reports whether the owner issued the credential.
func (c *Credential) IsSelfProclaimed() bool {
	return c.issuer == c.subject.ID
}

// SigningData returns the canonical bytes covered by the proof.
func (c *Credential) SigningData() ([]byte, error) {
	return json.Marshal(c.wire(false))
}

// Verify checks the proof against the issuer's public key.
func (c *Credential) Verify(publicKeyBase58 string) bool {
	if c.proof == nil || c.proof.Type != ProofType || c.proof.VerificationMethod.DID != c.issuer {
		return false
	}
	data, err := c.SigningData()
	if err != nil {
		return false
	}
	return crypto.Verify(publicKeyBase58, c.proof.Signature, data)
}

// Equal compares the serialized forms.
func (c *Credential) Equal(o *Credential) bool {
	a, err1 := c.MarshalJSON()
	b, err2 := o.MarshalJSON()
	return err1 == nil && err2 == nil && bytes.Equal(a, b)
}

func (c *Credential) String() string {
	b, err := c.MarshalJSON()
	if err != nil {
		return ""
	}
	return string(b)
}
