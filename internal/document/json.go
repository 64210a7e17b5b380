package document

import (
	"encoding/json"
	"slices"
	"time"

	"didstore/internal/credential"
	"didstore/internal/domain/types"
	"didstore/internal/fault"
)

// wire form; field order is the canonical serialization order.
type documentJSON struct {
	ID                   types.DID                `json:"id"`
	PublicKey            []publicKeyJSON          `json:"publicKey"`
	Authentication       []types.DIDURL           `json:"authentication"`
	Authorization        []types.DIDURL           `json:"authorization,omitempty"`
	VerifiableCredential []*credential.Credential `json:"verifiableCredential,omitempty"`
	Service              []serviceJSON            `json:"service,omitempty"`
	Expires              time.Time                `json:"expires"`
	Version              int                      `json:"version"`
	Proof                *proofJSON               `json:"proof,omitempty"`
}

type publicKeyJSON struct {
	ID              types.DIDURL `json:"id"`
	Type            string       `json:"type"`
	Controller      types.DID    `json:"controller"`
	PublicKeyBase58 string       `json:"publicKeyBase58"`
}

type serviceJSON struct {
	ID              types.DIDURL `json:"id"`
	Type            string       `json:"type"`
	ServiceEndpoint string       `json:"serviceEndpoint"`
}

type proofJSON struct {
	Type           string       `json:"type"`
	Created        time.Time    `json:"created"`
	Creator        types.DIDURL `json:"creator"`
	SignatureValue string       `json:"signatureValue"`
}

func (d *Document) wire(withProof bool) documentJSON {
	w := documentJSON{
		ID:                   d.subject,
		PublicKey:            make([]publicKeyJSON, 0, len(d.keys)),
		Authentication:       d.AuthenticationKeys(),
		Authorization:        d.AuthorizationKeys(),
		VerifiableCredential: d.credentials,
		Expires:              d.expires,
		Version:              d.version,
	}
	for _, k := range d.keys {
		w.PublicKey = append(w.PublicKey, publicKeyJSON{
			ID:              k.ID,
			Type:            k.Type,
			Controller:      k.Controller,
			PublicKeyBase58: k.PublicKeyBase58,
		})
	}
	for _, s := range d.services {
		w.Service = append(w.Service, serviceJSON{ID: s.ID, Type: s.Type, ServiceEndpoint: s.Endpoint})
	}
	if withProof && d.proof != nil {
		w.Proof = &proofJSON{
			Type:           d.proof.Type,
			Created:        d.proof.Created,
			Creator:        d.proof.Creator,
			SignatureValue: d.proof.Signature,
		}
	}
	return w
}

func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.wire(true))
}

func (d *Document) UnmarshalJSON(data []byte) error {
	var w documentJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	doc := Document{
		subject:     w.ID,
		credentials: w.VerifiableCredential,
		expires:     w.Expires.UTC(),
		version:     w.Version,
	}
	for _, k := range w.PublicKey {
		if k.ID.DID != w.ID {
			return fault.Newf(fault.Malformed, "public key %s outside subject %s", k.ID, w.ID)
		}
		if doc.keyIndex(k.ID.Fragment) >= 0 {
			return fault.Newf(fault.Malformed, "duplicate public key %s", k.ID)
		}
		doc.keys = append(doc.keys, PublicKey{
			ID:              k.ID,
			Type:            k.Type,
			Controller:      k.Controller,
			PublicKeyBase58: k.PublicKeyBase58,
		})
	}
	for _, id := range w.Authentication {
		i := doc.keyIndex(id.Fragment)
		if id.DID != w.ID || i < 0 {
			return fault.Newf(fault.Malformed, "unknown authentication key %s", id)
		}
		if doc.keys[i].Controller != w.ID {
			return fault.Newf(fault.Malformed, "authentication key %s has a foreign controller", id)
		}
		doc.keys[i].Authentication = true
	}
	for _, id := range w.Authorization {
		i := doc.keyIndex(id.Fragment)
		if id.DID != w.ID || i < 0 {
			return fault.Newf(fault.Malformed, "unknown authorization key %s", id)
		}
		doc.keys[i].Authorization = true
	}
	for _, vc := range w.VerifiableCredential {
		if vc.Owner() != w.ID {
			return fault.Newf(fault.Malformed, "credential %s is not about %s", vc.ID(), w.ID)
		}
	}
	for _, s := range w.Service {
		doc.services = append(doc.services, Service{ID: s.ID, Type: s.Type, Endpoint: s.ServiceEndpoint})
	}
	if w.Proof != nil {
		doc.proof = &Proof{
			Type:      w.Proof.Type,
			Created:   w.Proof.Created.UTC(),
			Creator:   w.Proof.Creator,
			Signature: w.Proof.SignatureValue,
		}
	}
	slices.SortFunc(doc.keys, compareKeys)

	*d = doc
	return nil
}

func compareKeys(a, b PublicKey) int {
	switch {
	case a.ID.String() < b.ID.String():
		return -1
	case a.ID.String() > b.ID.String():
		return 1
	}
	return 0
}
