// Package presentation builds and checks verifiable presentations: a set
// of credentials owned by one DID, signed by that DID together with a
// verifier-chosen nonce and realm.
package presentation

import (
	"cmp"
	"slices"
	"time"

	"didstore/internal/credential"
	"didstore/internal/document"
	"didstore/internal/domain/types"
	"didstore/internal/fault"
)

// Type is the type of every presentation.
const Type = "VerifiablePresentation"

// ProofType is the signature suite of the holder's proof.
const ProofType = credential.ProofType

// Proof binds a presentation to its holder's key, a nonce and a realm.
type Proof struct {
	Type               string
	VerificationMethod types.DIDURL
	Nonce              string
	Realm              string
	Signature          string
}

// Presentation is a signed, immutable presentation. Obtain one from Create
// or Parse.
type Presentation struct {
	created     time.Time
	credentials []*credential.Credential // sorted by id
	proof       Proof
}

// Resolver returns the current document of a DID, or nil when it is
// unknown. *didstore.Store satisfies it.
type Resolver interface {
	LoadDID(did types.DID) (*document.Document, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(did types.DID) (*document.Document, error)

func (f ResolverFunc) LoadDID(did types.DID) (*document.Document, error) { return f(did) }

// Create presents creds on behalf of holder and signs the result with
// signKey, or the holder's default key when nil. Every credential must be
// owned by the holder.
func Create(
	holder *document.Document,
	signKey *types.DIDURL,
	creds []*credential.Credential,
	nonce, realm string,
	signer document.Signer,
	password string,
) (*Presentation, error) {
	if nonce == "" || realm == "" {
		return nil, fault.New(fault.Store, "Presentation needs a nonce and a realm.")
	}
	if len(creds) == 0 {
		return nil, fault.New(fault.Store, "Presentation needs at least one credential.")
	}
	key := holder.DefaultKey()
	if signKey != nil {
		key = *signKey
	}
	if key.IsZero() || !holder.IsAuthenticationKey(key) {
		return nil, fault.Newf(fault.Store, "%s is not an authentication key of the holder", key)
	}
	for _, vc := range creds {
		if vc.Owner() != holder.Subject() {
			return nil, fault.Newf(fault.Store, "credential %s is not owned by %s", vc.ID(), holder.Subject())
		}
	}

	p := &Presentation{
		created:     time.Now().UTC().Truncate(time.Second),
		credentials: sortByID(creds),
	}
	data, err := p.SigningData()
	if err != nil {
		return nil, err
	}
	sig, err := signer.Sign(key, password, data, []byte(nonce), []byte(realm))
	if err != nil {
		return nil, err
	}
	p.proof = Proof{
		Type:               ProofType,
		VerificationMethod: key,
		Nonce:              nonce,
		Realm:              realm,
		Signature:          sig,
	}
	return p, nil
}

func sortByID(creds []*credential.Credential) []*credential.Credential {
	out := slices.Clone(creds)
	slices.SortFunc(out, func(a, b *credential.Credential) int {
		return cmp.Compare(a.ID().String(), b.ID().String())
	})
	return out
}

func (p *Presentation) Created() time.Time { return p.created }

// Holder is the DID whose key signed the presentation.
func (p *Presentation) Holder() types.DID { return p.proof.VerificationMethod.DID }

func (p *Presentation) Proof() Proof { return p.proof }

// Credentials returns the presented credentials, sorted by id.
func (p *Presentation) Credentials() []*credential.Credential { return slices.Clone(p.credentials) }

// Credential looks a presented credential up by id.
func (p *Presentation) Credential(id types.DIDURL) (*credential.Credential, bool) {
	for _, vc := range p.credentials {
		if vc.ID() == id {
			return vc, true
		}
	}
	return nil, false
}

// Verify checks the presentation against documents obtained from r: the
// holder's proof, and each credential's ownership, expiry and issuer
// signature. It returns nil when everything holds.
func (p *Presentation) Verify(r Resolver) error {
	holder := p.Holder()
	if p.proof.Type != ProofType {
		return fault.Newf(fault.Malformed, "unsupported presentation proof %q", p.proof.Type)
	}
	doc, err := load(r, holder)
	if err != nil {
		return err
	}
	if !doc.IsAuthenticationKey(p.proof.VerificationMethod) {
		return fault.Newf(fault.Malformed, "%s is not an authentication key of the holder", p.proof.VerificationMethod)
	}

	for _, vc := range p.credentials {
		if vc.Owner() != holder {
			return fault.Newf(fault.Malformed, "credential %s is not owned by %s", vc.ID(), holder)
		}
		if vc.IsExpired() {
			return fault.Newf(fault.Malformed, "credential %s is expired", vc.ID())
		}
		issuer := doc
		if vc.Issuer() != holder {
			if issuer, err = load(r, vc.Issuer()); err != nil {
				return err
			}
		}
		if !issuer.VerifyCredential(vc) {
			return fault.Newf(fault.Malformed, "credential %s is not genuine", vc.ID())
		}
	}

	data, err := p.SigningData()
	if err != nil {
		return err
	}
	if !doc.Verify(p.proof.VerificationMethod, p.proof.Signature, data, []byte(p.proof.Nonce), []byte(p.proof.Realm)) {
		return fault.New(fault.Malformed, "Presentation signature does not verify.")
	}
	return nil
}

func load(r Resolver, did types.DID) (*document.Document, error) {
	doc, err := r.LoadDID(did)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fault.Newf(fault.Store, "no document for %s", did)
	}
	if !doc.IsValid() {
		return nil, fault.Newf(fault.Malformed, "document of %s is not valid", did)
	}
	return doc, nil
}
