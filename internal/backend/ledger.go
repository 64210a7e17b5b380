// Package backend provides Ledger, an in-process implementation of the
// domain.Backend contract. It validates signed requests the way a DID
// ledger would and can persist its state to a JSON file, which makes it
// usable both as a test double and as a local ledger for the CLI.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"didstore/internal/document"
	"didstore/internal/domain"
	"didstore/internal/fault"
)

// Config configures NewLedger.
type Config struct {
	// Path, when set, is the JSON file the ledger state is kept in.
	Path string

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// record is the ledger state of one DID.
type record struct {
	TxID        string          `json:"txid"`
	Deactivated bool            `json:"deactivated,omitempty"`
	Payload     json.RawMessage `json:"payload"`
	Timestamp   time.Time       `json:"timestamp"`
	History     []string        `json:"history,omitempty"`
}

// Ledger is safe for concurrent use.
type Ledger struct {
	mu      sync.Mutex
	path    string
	log     *slog.Logger
	records map[string]*record
}

// NewLedger returns a ledger, loading cfg.Path when it exists.
func NewLedger(cfg Config) (*Ledger, error) {
	l := &Ledger{path: cfg.Path, log: cfg.Logger, records: map[string]*record{}}
	if l.log == nil {
		l.log = slog.Default()
	}
	if l.path == "" {
		return l, nil
	}
	b, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(b, &l.records); err != nil {
		return nil, fault.Wrap(fault.Malformed, "ledger file", err)
	}
	return l, nil
}

// Resolve returns the current record of did, or nil when it was never
// published. The ledger keeps no cache, so force has no effect.
func (l *Ledger) Resolve(ctx context.Context, did domain.DID, force bool) (*domain.ResolvedRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, fault.Wrap(fault.Network, "resolve", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.records[did.String()]
	if !ok {
		return nil, nil
	}
	return &domain.ResolvedRecord{
		DID:           did,
		TransactionID: r.TxID,
		Deactivated:   r.Deactivated,
		Payload:       append(json.RawMessage(nil), r.Payload...),
		Timestamp:     r.Timestamp,
	}, nil
}

// Publish accepts a create or update request. The request must be signed
// by an authentication key of the document the ledger currently holds,
// or of the submitted document for a create.
func (l *Ledger) Publish(ctx context.Context, req *domain.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fault.Wrap(fault.Network, "publish", err)
	}
	doc, err := document.Parse(req.Payload)
	if err != nil {
		return "", fault.Wrap(fault.Rejected, "invalid payload", err)
	}
	if doc.Subject() != req.DID {
		return "", fault.New(fault.Rejected, "payload is not about the request DID")
	}
	if !doc.IsGenuine() {
		return "", fault.New(fault.Rejected, "payload is not genuine")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	cur, exists := l.records[req.DID.String()]
	signer := doc
	switch req.Operation {
	case domain.OpCreate:
		if exists {
			return "", fault.Newf(fault.Rejected, "%s already exists", req.DID)
		}
	case domain.OpUpdate:
		if !exists {
			return "", fault.Newf(fault.Rejected, "%s not published", req.DID)
		}
		if cur.Deactivated {
			return "", fault.ErrAlreadyDeactivated
		}
		if req.PreviousTxID != cur.TxID {
			return "", fault.Newf(fault.Rejected, "stale previous transaction %q", req.PreviousTxID)
		}
		if signer, err = document.Parse(cur.Payload); err != nil {
			return "", err
		}
	default:
		return "", fault.Newf(fault.Rejected, "unsupported operation %q", req.Operation)
	}

	vm := req.Proof.VerificationMethod
	if !signer.IsAuthenticationKey(vm) || !signer.Verify(vm, req.Proof.Signature, req.SigningData()...) {
		return "", fault.New(fault.Rejected, "request signature does not verify")
	}

	txid := uuid.NewString()
	next := &record{TxID: txid, Payload: append(json.RawMessage(nil), req.Payload...), Timestamp: time.Now().UTC()}
	if exists {
		next.History = append(cur.History, cur.TxID)
	}
	l.records[req.DID.String()] = next
	if err := l.save(); err != nil {
		if exists {
			l.records[req.DID.String()] = cur
		} else {
			delete(l.records, req.DID.String())
		}
		return "", err
	}
	l.log.Info("ledger accepted", "op", req.Operation, "did", req.DID, "txid", txid)
	return txid, nil
}

// Deactivate accepts a deactivation signed by an authentication key of
// the DID, or by an authorization key it lists for a controller.
func (l *Ledger) Deactivate(ctx context.Context, req *domain.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fault.Wrap(fault.Network, "deactivate", err)
	}
	if req.Operation != domain.OpDeactivate {
		return "", fault.Newf(fault.Rejected, "unsupported operation %q", req.Operation)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	cur, ok := l.records[req.DID.String()]
	if !ok {
		return "", fault.Newf(fault.Rejected, "%s not published", req.DID)
	}
	if cur.Deactivated {
		return "", fault.ErrAlreadyDeactivated
	}
	doc, err := document.Parse(cur.Payload)
	if err != nil {
		return "", err
	}
	vm := req.Proof.VerificationMethod
	if !doc.IsAuthenticationKey(vm) && !doc.IsAuthorizationKey(vm) {
		return "", fault.Newf(fault.Rejected, "%s may not deactivate %s", vm, req.DID)
	}
	if !doc.Verify(vm, req.Proof.Signature, req.SigningData()...) {
		return "", fault.New(fault.Rejected, "request signature does not verify")
	}

	txid := uuid.NewString()
	prev := *cur
	cur.History = append(cur.History, cur.TxID)
	cur.TxID = txid
	cur.Deactivated = true
	cur.Timestamp = time.Now().UTC()
	if err := l.save(); err != nil {
		*cur = prev
		return "", err
	}
	l.log.Info("ledger accepted", "op", req.Operation, "did", req.DID, "txid", txid, "key", vm)
	return txid, nil
}

// save writes the state file, replacing it atomically.
func (l *Ledger) save() error {
	if l.path == "" {
		return nil
	}
	b, err := json.MarshalIndent(l.records, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o700); err != nil {
		return fault.Wrap(fault.Network, "ledger state", err)
	}
	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fault.Wrap(fault.Network, "ledger state", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fault.Wrap(fault.Network, "ledger state", err)
	}
	return nil
}

var _ domain.Backend = (*Ledger)(nil)
