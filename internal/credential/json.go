package credential

import (
	"bytes"
	"encoding/json"
	"slices"
	"time"

	"didstore/internal/domain/types"
	"didstore/internal/fault"
)

// wire form; field order is the canonical serialization order.
type credentialJSON struct {
	ID                types.DIDURL   `json:"id"`
	Type              []string       `json:"type"`
	Issuer            types.DID      `json:"issuer"`
	IssuanceDate      time.Time      `json:"issuanceDate"`
	ExpirationDate    *time.Time     `json:"expirationDate,omitempty"`
	CredentialSubject map[string]any `json:"credentialSubject"`
	Proof             *proofJSON     `json:"proof,omitempty"`
}

type proofJSON struct {
	Type               string       `json:"type"`
	VerificationMethod types.DIDURL `json:"verificationMethod"`
	Signature          string       `json:"signature"`
}

func (c *Credential) wire(withProof bool) credentialJSON {
	subject := make(map[string]any, len(c.subject.Properties)+1)
	for k, v := range c.subject.Properties {
		subject[k] = v
	}
	subject["id"] = c.subject.ID.String()

	w := credentialJSON{
		ID:                c.id,
		Type:              c.types,
		Issuer:            c.issuer,
		IssuanceDate:      c.issuedAt,
		CredentialSubject: subject,
	}
	if !c.expiresAt.IsZero() {
		exp := c.expiresAt
		w.ExpirationDate = &exp
	}
	if withProof && c.proof != nil {
		w.Proof = &proofJSON{
			Type:               c.proof.Type,
			VerificationMethod: c.proof.VerificationMethod,
			Signature:          c.proof.Signature,
		}
	}
	return w
}

func (c *Credential) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.wire(true))
}

func (c *Credential) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var w credentialJSON
	if err := dec.Decode(&w); err != nil {
		return err
	}

	rawID, _ := w.CredentialSubject["id"].(string)
	owner, err := types.ParseDID(rawID)
	if err != nil {
		return err
	}
	props := make(map[string]any, len(w.CredentialSubject))
	for k, v := range w.CredentialSubject {
		if k != "id" {
			props[k] = v
		}
	}
	if w.ID.DID != owner {
		return fault.Newf(fault.Malformed, "credential %s is not owned by its subject %s", w.ID, owner)
	}

	t := slices.Clone(w.Type)
	slices.Sort(t)
	*c = Credential{
		id:       w.ID,
		types:    slices.Compact(t),
		issuer:   w.Issuer,
		issuedAt: w.IssuanceDate.UTC(),
		subject:  Subject{ID: owner, Properties: props},
	}
	if w.ExpirationDate != nil {
		c.expiresAt = w.ExpirationDate.UTC()
	}
	if w.Proof != nil {
		c.proof = &Proof{
			Type:               w.Proof.Type,
			VerificationMethod: w.Proof.VerificationMethod,
			Signature:          w.Proof.Signature,
		}
	}
	return nil
}
