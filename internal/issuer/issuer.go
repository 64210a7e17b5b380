// Package issuer signs verifiable credentials with an authentication key
// of the issuing DID.
package issuer

import (
	"time"

	"didstore/internal/credential"
	"didstore/internal/document"
	"didstore/internal/domain/types"
	"didstore/internal/fault"
)

// Issuer issues credentials on behalf of one DID.
type Issuer struct {
	doc     *document.Document
	signKey types.DIDURL
	signer  document.Signer
}

// New returns an Issuer for doc's subject. A nil signKey selects the
// document's default key; any other key must be an authentication key.
func New(doc *document.Document, signKey *types.DIDURL, signer document.Signer) (*Issuer, error) {
	key := doc.DefaultKey()
	if signKey != nil {
		key = *signKey
	}
	if key.IsZero() || !doc.IsAuthenticationKey(key) {
		return nil, fault.Newf(fault.Store, "%s is not an authentication key of the issuer", key)
	}
	return &Issuer{doc: doc, signKey: key, signer: signer}, nil
}

// DID returns the issuer's DID.
func (i *Issuer) DID() types.DID { return i.doc.Subject() }

// SignKey returns the key credentials are signed with.
func (i *Issuer) SignKey() types.DIDURL { return i.signKey }

// Issue creates and signs the credential owner#fragment. A zero expires
// defaults to the issuer document's expiry; later dates are clamped to it.
func (i *Issuer) Issue(
	owner types.DID,
	fragment string,
	vcTypes []string,
	props map[string]any,
	expires time.Time,
	password string,
) (*credential.Credential, error) {
	if owner.IsZero() || !types.ValidFragment(fragment) {
		return nil, fault.New(fault.Store, "Invalid credential id.")
	}
	if len(vcTypes) == 0 {
		return nil, fault.New(fault.Store, "Credential needs at least one type.")
	}
	if len(props) == 0 {
		return nil, fault.New(fault.Store, "Credential needs at least one property.")
	}
	if _, ok := props["id"]; ok {
		return nil, fault.New(fault.Store, "Credential property \"id\" is reserved.")
	}
	if limit := i.doc.Expires(); expires.IsZero() || expires.After(limit) {
		expires = limit
	}

	vc := credential.Unsigned(
		types.NewDIDURL(owner, fragment),
		vcTypes,
		i.doc.Subject(),
		time.Now(),
		expires,
		credential.Subject{ID: owner, Properties: props},
	)
	data, err := vc.SigningData()
	if err != nil {
		return nil, err
	}
	sig, err := i.signer.Sign(i.signKey, password, data)
	if err != nil {
		return nil, err
	}
	return vc.WithProof(credential.Proof{
		Type:               credential.ProofType,
		VerificationMethod: i.signKey,
		Signature:          sig,
	}), nil
}
