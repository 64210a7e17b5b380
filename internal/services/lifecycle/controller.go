package lifecycle

import (
	"context"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"didstore/internal/didstore"
	"didstore/internal/document"
	"didstore/internal/domain"
	"didstore/internal/fault"
)

const (
	// DefaultBackendTimeout bounds every backend call when Config leaves it unset.
	DefaultBackendTimeout = 30 * time.Second
)

// Config configures New.
type Config struct {
	Store   *didstore.Store
	Backend domain.Backend

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// CacheTTL is how long a resolved document is served without asking
	// the backend again. Zero disables the resolver cache.
	CacheTTL time.Duration

	// BackendTimeout defaults to DefaultBackendTimeout.
	BackendTimeout time.Duration
}

// PublishOptions tunes PublishDID.
type PublishOptions struct {
	// SignKey selects the authentication key that signs the request. Nil
	// means the document's default key.
	SignKey *domain.DIDURL

	// Force publishes over whatever the ledger holds, adopting its current
	// transaction id instead of failing with ErrTransactionConflict.
	Force bool
}

// Controller is safe for concurrent use. Operations on one DID are
// serialised through Store.Transact.
type Controller struct {
	store   *didstore.Store
	backend domain.Backend
	log     *slog.Logger
	timeout time.Duration

	cache *gocache.Cache
	group singleflight.Group
}

// New returns a controller publishing the DIDs of cfg.Store to cfg.Backend.
func New(cfg Config) *Controller {
	c := &Controller{
		store:   cfg.Store,
		backend: cfg.Backend,
		log:     cfg.Logger,
		timeout: cfg.BackendTimeout,
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	if c.timeout <= 0 {
		c.timeout = DefaultBackendTimeout
	}
	if cfg.CacheTTL > 0 {
		c.cache = gocache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}
	return c
}

// Resolve returns the ledger's current document of did, or nil when it
// was never published. A deactivated DID yields ErrDIDDeactivated and is
// marked deactivated in the local store. force skips the resolver cache.
//
// Concurrent resolutions of the same DID share one backend call.
func (c *Controller) Resolve(ctx context.Context, did domain.DID, force bool) (*document.Document, error) {
	key := did.String()
	if !force {
		if doc, ok := c.cached(key); ok {
			return doc, nil
		}
	} else {
		key = "force/" + key
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		return c.resolve(ctx, did, force)
	})
	if err != nil {
		return nil, err
	}
	return v.(*document.Document), nil
}

func (c *Controller) resolve(ctx context.Context, did domain.DID, force bool) (*document.Document, error) {
	rec, err := c.fetch(ctx, did, force)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		c.forget(did)
		return nil, nil
	}
	if rec.Deactivated {
		c.forget(did)
		if err := c.store.Transact(did, func(tx *didstore.DIDTx) error {
			return markDeactivated(tx, rec.TransactionID)
		}); err != nil {
			return nil, err
		}
		return nil, fault.ErrDIDDeactivated
	}

	doc, err := document.Parse(rec.Payload)
	if err != nil {
		return nil, err
	}
	if doc.Subject() != did || !doc.IsGenuine() {
		return nil, fault.ErrNotGenuine
	}

	err = c.store.Transact(did, func(tx *didstore.DIDTx) error {
		meta, err := tx.Meta()
		if err != nil || meta == nil {
			return err
		}
		meta.Resolved = time.Now().UTC()
		return tx.StoreMeta(meta)
	})
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		c.cache.Set(did.String(), doc, gocache.DefaultExpiration)
	}
	c.log.Debug("did resolved", "did", did, "txid", rec.TransactionID)
	return doc, nil
}

// PublishDID submits the stored document of did to the ledger and returns
// the transaction id.
//
// Steps:
//  1. Resolve the ledger record, bypassing every cache.
//  2. Create when the ledger has no record; otherwise update, which needs
//     the local transaction id to match the ledger's unless opts.Force.
//  3. Sign the request with opts.SignKey or the default key.
//  4. Record the new transaction id and timestamps in the DID's metadata.
//
// Any failure before step 4 leaves the local store untouched.
func (c *Controller) PublishDID(ctx context.Context, did domain.DID, opts PublishOptions, password string) (string, error) {
	var txid string
	err := c.store.Transact(did, func(tx *didstore.DIDTx) error {
		doc, err := tx.Document()
		if err != nil {
			return err
		}
		if doc == nil {
			return fault.ErrNoDocument
		}
		if !doc.IsGenuine() {
			return fault.ErrNotGenuine
		}
		meta, err := tx.Meta()
		if err != nil {
			return err
		}
		if meta.Deactivated {
			return fault.ErrAlreadyDeactivated
		}
		signKey, err := authenticationKey(doc, opts.SignKey)
		if err != nil {
			return err
		}

		rec, err := c.fetch(ctx, did, true)
		if err != nil {
			return err
		}
		req := &domain.Request{Operation: domain.OpCreate, DID: did}
		if rec != nil {
			if rec.Deactivated {
				if err := markDeactivated(tx, rec.TransactionID); err != nil {
					return err
				}
				return fault.ErrAlreadyDeactivated
			}
			if !opts.Force && meta.TransactionID != rec.TransactionID {
				c.log.Warn("publish conflict", "did", did, "txid", rec.TransactionID, "local", meta.TransactionID)
				return fault.ErrTransactionConflict
			}
			req.Operation = domain.OpUpdate
			req.PreviousTxID = rec.TransactionID
		}
		if req.Payload, err = doc.MarshalJSON(); err != nil {
			return fault.Wrap(fault.Store, "encode document", err)
		}
		sig, err := tx.Sign(signKey, password, req.SigningData()...)
		if err != nil {
			return err
		}
		req.Proof = domain.RequestProof{VerificationMethod: signKey, Signature: sig}

		if txid, err = c.submit(ctx, "publish", c.backend.Publish, req); err != nil {
			return err
		}
		c.forget(did)

		now := time.Now().UTC()
		meta.TransactionID = txid
		meta.Updated = now
		if req.Operation == domain.OpCreate {
			meta.Published = now
		}
		if err := tx.StoreMeta(meta); err != nil {
			c.log.Error("publish accepted but metadata not saved", "did", did, "txid", txid, "err", err)
			return err
		}
		c.log.Info("did published", "did", did, "op", req.Operation, "txid", txid, "key", signKey)
		return nil
	})
	if err != nil {
		return "", err
	}
	return txid, nil
}

// DeactivateDID deactivates did with one of its own authentication keys.
// signKey may be nil to use the default key. Deactivation is terminal.
func (c *Controller) DeactivateDID(ctx context.Context, did domain.DID, signKey *domain.DIDURL, password string) (string, error) {
	var txid string
	err := c.store.Transact(did, func(tx *didstore.DIDTx) error {
		meta, err := tx.Meta()
		if err != nil {
			return err
		}
		if meta != nil && meta.Deactivated {
			return fault.ErrAlreadyDeactivated
		}
		rec, err := c.published(ctx, tx)
		if err != nil {
			return err
		}

		// the ledger's document decides which keys may sign
		doc, err := document.Parse(rec.Payload)
		if err != nil {
			return err
		}
		key, err := authenticationKey(doc, signKey)
		if err != nil {
			return err
		}

		txid, err = c.deactivate(ctx, tx, rec, key, key, password)
		return err
	})
	if err != nil {
		return "", err
	}
	return txid, nil
}

// DeactivateDIDWithAuthorization deactivates target on behalf of
// controller, which must be in the store with its private key. target has
// to list an authorization key carrying one of controller's authentication
// keys. authKey names that key on either side; nil selects the
// controller's default key.
func (c *Controller) DeactivateDIDWithAuthorization(
	ctx context.Context,
	target, controller domain.DID,
	authKey *domain.DIDURL,
	password string,
) (string, error) {
	var txid string
	err := c.store.Transact(target, func(tx *didstore.DIDTx) error {
		meta, err := tx.Meta()
		if err != nil {
			return err
		}
		if meta != nil && meta.Deactivated {
			return fault.ErrAlreadyDeactivated
		}
		controllerDoc, err := tx.LoadDID(controller)
		if err != nil {
			return err
		}
		if controllerDoc == nil {
			return fault.ErrNoDocument
		}
		rec, err := c.published(ctx, tx)
		if err != nil {
			return err
		}
		targetDoc, err := document.Parse(rec.Payload)
		if err != nil {
			return err
		}
		vm, signKey, err := authorization(targetDoc, controllerDoc, authKey)
		if err != nil {
			return err
		}

		txid, err = c.deactivate(ctx, tx, rec, vm, signKey, password)
		return err
	})
	if err != nil {
		return "", err
	}
	return txid, nil
}

// published returns the live ledger record of the locked DID.
func (c *Controller) published(ctx context.Context, tx *didstore.DIDTx) (*domain.ResolvedRecord, error) {
	rec, err := c.fetch(ctx, tx.DID(), true)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fault.Newf(fault.Store, "%s is not published", tx.DID())
	}
	if rec.Deactivated {
		if err := markDeactivated(tx, rec.TransactionID); err != nil {
			return nil, err
		}
		return nil, fault.ErrAlreadyDeactivated
	}
	return rec, nil
}

// deactivate signs with signKey, presents the request as vm and records
// the result locally when the DID is in the store.
func (c *Controller) deactivate(
	ctx context.Context,
	tx *didstore.DIDTx,
	rec *domain.ResolvedRecord,
	vm, signKey domain.DIDURL,
	password string,
) (string, error) {
	req := &domain.Request{
		Operation:    domain.OpDeactivate,
		DID:          tx.DID(),
		PreviousTxID: rec.TransactionID,
	}
	sig, err := tx.Sign(signKey, password, req.SigningData()...)
	if err != nil {
		return "", err
	}
	req.Proof = domain.RequestProof{VerificationMethod: vm, Signature: sig}

	txid, err := c.submit(ctx, "deactivate", c.backend.Deactivate, req)
	if err != nil {
		return "", err
	}
	c.forget(tx.DID())
	if err := markDeactivated(tx, txid); err != nil {
		c.log.Error("deactivation accepted but metadata not saved", "did", tx.DID(), "txid", txid, "err", err)
		return "", err
	}
	c.log.Info("did deactivated", "did", tx.DID(), "txid", txid, "key", vm)
	return txid, nil
}

func (c *Controller) fetch(ctx context.Context, did domain.DID, force bool) (*domain.ResolvedRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	rec, err := c.backend.Resolve(ctx, did, force)
	if err != nil {
		return nil, transport("resolve "+did.String(), err)
	}
	return rec, nil
}

func (c *Controller) submit(
	ctx context.Context,
	op string,
	call func(context.Context, *domain.Request) (string, error),
	req *domain.Request,
) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	txid, err := call(ctx, req)
	if err != nil {
		return "", transport(op+" "+req.DID.String(), err)
	}
	return txid, nil
}

func (c *Controller) cached(key string) (*document.Document, bool) {
	if c.cache == nil {
		return nil, false
	}
	v, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	return v.(*document.Document), true
}

func (c *Controller) forget(did domain.DID) {
	if c.cache != nil {
		c.cache.Delete(did.String())
	}
}

// transport classifies a backend failure. Errors the backend already
// classified pass through; anything else is a Network error, including an
// expired deadline.
func transport(op string, err error) error {
	if fault.KindOf(err) != "" {
		return err
	}
	return fault.Wrap(fault.Network, op, err)
}

// markDeactivated flags the locked DID's metadata when it is in the store.
func markDeactivated(tx *didstore.DIDTx, txid string) error {
	meta, err := tx.Meta()
	if err != nil || meta == nil {
		return err
	}
	if meta.Deactivated && meta.TransactionID == txid {
		return nil
	}
	meta.Deactivated = true
	meta.TransactionID = txid
	meta.Updated = time.Now().UTC()
	return tx.StoreMeta(meta)
}

func authenticationKey(doc *document.Document, key *domain.DIDURL) (domain.DIDURL, error) {
	if key == nil {
		id := doc.DefaultKey()
		if id.IsZero() {
			return id, fault.ErrNoDefaultKey
		}
		return id, nil
	}
	if !doc.IsAuthenticationKey(*key) {
		return domain.DIDURL{}, fault.Newf(fault.Store, "%s is not an authentication key of %s", *key, doc.Subject())
	}
	return *key, nil
}

// authorization pairs an authorization key of target with the controller
// authentication key holding the same public key.
func authorization(target, controller *document.Document, authKey *domain.DIDURL) (vm, signKey domain.DIDURL, err error) {
	def := controller.DefaultKey()
	for _, k := range target.PublicKeys() {
		if !k.Authorization || k.Controller != controller.Subject() {
			continue
		}
		for _, ck := range controller.PublicKeys() {
			if !ck.Authentication || ck.PublicKeyBase58 != k.PublicKeyBase58 {
				continue
			}
			switch {
			case authKey == nil && ck.ID != def:
				continue
			case authKey != nil && *authKey != k.ID && *authKey != ck.ID:
				continue
			}
			return k.ID, ck.ID, nil
		}
	}
	return domain.DIDURL{}, domain.DIDURL{}, fault.ErrAuthorizationKey
}
