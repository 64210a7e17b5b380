package presentation

import (
	"bytes"
	"encoding/json"
	"time"

	"didstore/internal/credential"
	"didstore/internal/domain/types"
	"didstore/internal/fault"
	"didstore/internal/schema"
)

// wire form; field order is the canonical serialization order.
type presentationJSON struct {
	Type                 string            `json:"type"`
	Created              time.Time         `json:"created"`
	VerifiableCredential []json.RawMessage `json:"verifiableCredential"`
	Proof                *proofJSON        `json:"proof,omitempty"`
}

type proofJSON struct {
	Type               string       `json:"type"`
	VerificationMethod types.DIDURL `json:"verificationMethod"`
	Nonce              string       `json:"nonce"`
	Realm              string       `json:"realm"`
	Signature          string       `json:"signature"`
}

func (p *Presentation) wire(withProof bool) (presentationJSON, error) {
	w := presentationJSON{
		Type:                 Type,
		Created:              p.created,
		VerifiableCredential: make([]json.RawMessage, 0, len(p.credentials)),
	}
	for _, vc := range p.credentials {
		b, err := vc.MarshalJSON()
		if err != nil {
			return w, err
		}
		w.VerifiableCredential = append(w.VerifiableCredential, b)
	}
	if withProof {
		w.Proof = &proofJSON{
			Type:               p.proof.Type,
			VerificationMethod: p.proof.VerificationMethod,
			Nonce:              p.proof.Nonce,
			Realm:              p.proof.Realm,
			Signature:          p.proof.Signature,
		}
	}
	return w, nil
}

// SigningData returns the canonical bytes covered by the proof, before
// the nonce and realm.
func (p *Presentation) SigningData() ([]byte, error) {
	w, err := p.wire(false)
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

func (p *Presentation) MarshalJSON() ([]byte, error) {
	w, err := p.wire(true)
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

// Parse decodes and validates a serialized presentation, including every
// embedded credential. It does not check signatures; see Verify.
func Parse(data []byte) (*Presentation, error) {
	if err := schema.ValidatePresentation(data); err != nil {
		return nil, err
	}
	var w presentationJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fault.Wrap(fault.Malformed, "decode presentation", err)
	}

	creds := make([]*credential.Credential, 0, len(w.VerifiableCredential))
	for _, raw := range w.VerifiableCredential {
		vc, err := credential.Parse(raw)
		if err != nil {
			return nil, err
		}
		creds = append(creds, vc)
	}
	return &Presentation{
		created:     w.Created.UTC(),
		credentials: sortByID(creds),
		proof: Proof{
			Type:               w.Proof.Type,
			VerificationMethod: w.Proof.VerificationMethod,
			Nonce:              w.Proof.Nonce,
			Realm:              w.Proof.Realm,
			Signature:          w.Proof.Signature,
		},
	}, nil
}

// Equal compares the serialized forms.
func (p *Presentation) Equal(o *Presentation) bool {
	a, err1 := p.MarshalJSON()
	b, err2 := o.MarshalJSON()
	return err1 == nil && err2 == nil && bytes.Equal(a, b)
}

func (p *Presentation) String() string {
	b, err := p.MarshalJSON()
	if err != nil {
		return ""
	}
	return string(b)
}
