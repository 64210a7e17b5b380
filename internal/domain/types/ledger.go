package types

import (
	"encoding/json"
	"time"
)

// Operation is the kind of ledger transaction.
type Operation string

const (
	OpCreate     Operation = "create"
	OpUpdate     Operation = "update"
	OpDeactivate Operation = "deactivate"
)

// RequestProof binds a request to the key that signed it.
type RequestProof struct {
	VerificationMethod DIDURL `json:"verificationMethod"`
	Signature          string `json:"signature"`
}

// Request is a signed ledger transaction. Payload is the sealed document
// for create and update; it is empty for deactivate.
type Request struct {
	Operation    Operation       `json:"operation"`
	DID          DID             `json:"did"`
	PreviousTxID string          `json:"previousTxid,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	Proof        RequestProof    `json:"proof"`
}

// SigningData returns the byte sequence covered by Proof.Signature.
func (r *Request) SigningData() [][]byte {
	return [][]byte{
		[]byte(r.Operation),
		[]byte(r.DID.String()),
		[]byte(r.PreviousTxID),
		r.Payload,
	}
}

// ResolvedRecord is the ledger's current view of a DID.
type ResolvedRecord struct {
	DID           DID             `json:"did"`
	TransactionID string          `json:"txid"`
	Deactivated   bool            `json:"deactivated,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}
