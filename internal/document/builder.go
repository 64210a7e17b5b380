package document

import (
	"slices"
	"time"

	"didstore/internal/credential"
	"didstore/internal/crypto"
	"didstore/internal/domain/types"
	"didstore/internal/fault"
)

// Builder holds a working copy of a document's content until Seal commits
// it as a new Document. A Builder is not safe for concurrent use.
type Builder struct {
	doc    *Document
	signer Signer
}

// NewBuilder starts an empty document for subject.
func NewBuilder(subject types.DID, signer Signer) *Builder {
	return &Builder{
		doc: &Document{
			subject: subject,
			expires: defaultExpires(),
		},
		signer: signer,
	}
}

// Edit returns a Builder seeded with d's content.
func (d *Document) Edit(signer Signer) *Builder {
	return &Builder{doc: d.clone(), signer: signer}
}

// Subject returns the DID being built.
func (b *Builder) Subject() types.DID { return b.doc.subject }

// AddPublicKey adds a key entry. A zero controller means the subject.
func (b *Builder) AddPublicKey(fragment string, controller types.DID, publicKeyBase58 string) error {
	if controller.IsZero() {
		controller = b.doc.subject
	}
	return b.addKey(PublicKey{
		ID:              types.NewDIDURL(b.doc.subject, fragment),
		Type:            KeyType,
		Controller:      controller,
		PublicKeyBase58: publicKeyBase58,
	})
}

// RemovePublicKey removes a key entry. The default key cannot be removed,
// and keys carrying authentication or authorization need force.
func (b *Builder) RemovePublicKey(fragment string, force bool) error {
	i := b.doc.keyIndex(fragment)
	if i < 0 {
		return fault.Newf(fault.Store, "key #%s not in document", fragment)
	}
	k := b.doc.keys[i]
	if k.ID == b.doc.DefaultKey() {
		return fault.New(fault.Store, "Can not remove the default key.")
	}
	if (k.Authentication || k.Authorization) && !force {
		return fault.Newf(fault.Store, "key #%s is referenced; use force", fragment)
	}
	b.doc.keys = slices.Delete(b.doc.keys, i, i+1)
	return nil
}

// AddAuthenticationKey flags a key as an authentication key. When
// publicKeyBase58 is set and the key is absent it is added first; when the
// key exists it must match.
func (b *Builder) AddAuthenticationKey(fragment, publicKeyBase58 string) error {
	i := b.doc.keyIndex(fragment)
	if i < 0 {
		if publicKeyBase58 == "" {
			return fault.Newf(fault.Store, "key #%s not in document", fragment)
		}
		if err := b.AddPublicKey(fragment, b.doc.subject, publicKeyBase58); err != nil {
			return err
		}
		i = b.doc.keyIndex(fragment)
	}
	k := &b.doc.keys[i]
	if publicKeyBase58 != "" && k.PublicKeyBase58 != publicKeyBase58 {
		return fault.Newf(fault.Store, "key #%s already exists with a different public key", fragment)
	}
	if k.Controller != b.doc.subject {
		return fault.Newf(fault.Store, "key #%s is controlled by %s", fragment, k.Controller)
	}
	k.Authentication = true
	return nil
}

// RemoveAuthenticationKey clears the authentication flag of a key. The
// default key keeps it.
func (b *Builder) RemoveAuthenticationKey(fragment string) error {
	i := b.doc.keyIndex(fragment)
	if i < 0 || !b.doc.keys[i].Authentication {
		return fault.Newf(fault.Store, "key #%s is not an authentication key", fragment)
	}
	if b.doc.keys[i].ID == b.doc.DefaultKey() {
		return fault.New(fault.Store, "Can not remove the default key from authentication.")
	}
	b.doc.keys[i].Authentication = false
	return nil
}

// AddAuthorizationKey adds a key owned by controller that may act on the
// subject's behalf, or flags an existing key as such.
func (b *Builder) AddAuthorizationKey(fragment string, controller types.DID, publicKeyBase58 string) error {
	if controller == b.doc.subject {
		return fault.New(fault.Store, "Authorization key can not be controlled by the subject.")
	}
	i := b.doc.keyIndex(fragment)
	if i < 0 {
		if err := b.AddPublicKey(fragment, controller, publicKeyBase58); err != nil {
			return err
		}
		i = b.doc.keyIndex(fragment)
	}
	k := &b.doc.keys[i]
	if k.Controller != controller || (publicKeyBase58 != "" && k.PublicKeyBase58 != publicKeyBase58) {
		return fault.Newf(fault.Store, "key #%s already exists with different content", fragment)
	}
	k.Authorization = true
	return nil
}

// AuthorizeDID makes controllerDoc's subject a controller of this DID by
// importing one of its authentication keys as an authorization key. A nil
// key selects the controller's default key.
func (b *Builder) AuthorizeDID(fragment string, controllerDoc *Document, key *types.DIDURL) error {
	if controllerDoc == nil {
		return fault.New(fault.Store, "Controller document is required.")
	}
	id := controllerDoc.DefaultKey()
	if key != nil {
		id = *key
	}
	if id.IsZero() || !controllerDoc.IsAuthenticationKey(id) {
		return fault.Newf(fault.Store, "%s is not an authentication key of %s", id, controllerDoc.Subject())
	}
	pk, _ := controllerDoc.keyByID(id)
	return b.AddAuthorizationKey(fragment, controllerDoc.Subject(), pk.PublicKeyBase58)
}

// RemoveAuthorizationKey clears the authorization flag and drops the key
// when it belongs to another controller.
func (b *Builder) RemoveAuthorizationKey(fragment string) error {
	i := b.doc.keyIndex(fragment)
	if i < 0 || !b.doc.keys[i].Authorization {
		return fault.Newf(fault.Store, "key #%s is not an authorization key", fragment)
	}
	if b.doc.keys[i].Controller != b.doc.subject {
		b.doc.keys = slices.Delete(b.doc.keys, i, i+1)
		return nil
	}
	b.doc.keys[i].Authorization = false
	return nil
}

// AddCredential embeds a credential about the subject.
func (b *Builder) AddCredential(vc *credential.Credential) error {
	if vc == nil || vc.Owner() != b.doc.subject || vc.ID().DID != b.doc.subject {
		return fault.New(fault.Store, "Credential does not belong to this DID.")
	}
	if b.fragmentTaken(vc.ID().Fragment) {
		return fault.ErrDuplicateFragment
	}
	b.doc.credentials = append(b.doc.credentials, vc)
	return nil
}

// RemoveCredential drops an embedded credential.
func (b *Builder) RemoveCredential(fragment string) error {
	for i, vc := range b.doc.credentials {
		if vc.ID().Fragment == fragment {
			b.doc.credentials = slices.Delete(b.doc.credentials, i, i+1)
			return nil
		}
	}
	return fault.Newf(fault.Store, "credential #%s not in document", fragment)
}

// AddService adds a service endpoint.
func (b *Builder) AddService(fragment, serviceType, endpoint string) error {
	if !types.ValidFragment(fragment) || serviceType == "" || endpoint == "" {
		return fault.New(fault.Store, "Invalid service.")
	}
	if b.fragmentTaken(fragment) {
		return fault.ErrDuplicateFragment
	}
	b.doc.services = append(b.doc.services, Service{
		ID:       types.NewDIDURL(b.doc.subject, fragment),
		Type:     serviceType,
		Endpoint: endpoint,
	})
	return nil
}

// RemoveService drops a service endpoint.
func (b *Builder) RemoveService(fragment string) error {
	for i, s := range b.doc.services {
		if s.ID.Fragment == fragment {
			b.doc.services = slices.Delete(b.doc.services, i, i+1)
			return nil
		}
	}
	return fault.Newf(fault.Store, "service #%s not in document", fragment)
}

// SetExpires sets the expiry, truncated to whole seconds.
func (b *Builder) SetExpires(t time.Time) error {
	t = t.UTC().Truncate(time.Second)
	if !t.After(time.Now()) {
		return fault.New(fault.Store, "Expiration must be in the future.")
	}
	b.doc.expires = t
	return nil
}

// Seal validates the working copy, signs it with the default key and
// returns it as a new Document. The Builder may keep being used.
func (b *Builder) Seal(password string) (*Document, error) {
	doc := b.doc.clone()

	if len(doc.AuthenticationKeys()) == 0 {
		return nil, fault.ErrNoAuthenticationKey
	}
	def := doc.DefaultKey()
	if def.IsZero() {
		return nil, fault.ErrNoDefaultKey
	}
	if !doc.IsAuthenticationKey(def) {
		return nil, fault.ErrDefaultKeyNotAuthKey
	}
	if err := doc.checkFragments(); err != nil {
		return nil, err
	}

	doc.version++
	doc.proof = nil
	data, err := doc.SigningData()
	if err != nil {
		return nil, err
	}
	sig, err := b.signer.Sign(def, password, data)
	if err != nil {
		return nil, err
	}
	doc.proof = &Proof{
		Type:      ProofType,
		Created:   time.Now().UTC().Truncate(time.Second),
		Creator:   def,
		Signature: sig,
	}
	return doc, nil
}

func (b *Builder) addKey(k PublicKey) error {
	if !types.ValidFragment(k.ID.Fragment) {
		return fault.Newf(fault.Store, "invalid key fragment %q", k.ID.Fragment)
	}
	if _, err := crypto.ParsePublicKeyBase58(k.PublicKeyBase58); err != nil {
		return fault.Wrap(fault.Store, "invalid public key", err)
	}
	if b.fragmentTaken(k.ID.Fragment) {
		return fault.ErrDuplicateFragment
	}
	b.doc.keys = append(b.doc.keys, k)
	slices.SortFunc(b.doc.keys, compareKeys)
	return nil
}

func (b *Builder) fragmentTaken(fragment string) bool {
	if b.doc.keyIndex(fragment) >= 0 {
		return true
	}
	if _, ok := b.doc.Credential(fragment); ok {
		return true
	}
	_, ok := b.doc.Service(fragment)
	return ok
}

func (d *Document) checkFragments() error {
	seen := make(map[string]bool, len(d.keys)+len(d.credentials)+len(d.services))
	add := func(f string) error {
		if seen[f] {
			return fault.ErrDuplicateFragment
		}
		seen[f] = true
		return nil
	}
	for _, k := range d.keys {
		if err := add(k.ID.Fragment); err != nil {
			return err
		}
	}
	for _, vc := range d.credentials {
		if err := add(vc.ID().Fragment); err != nil {
			return err
		}
	}
	for _, s := range d.services {
		if err := add(s.ID.Fragment); err != nil {
			return err
		}
	}
	return nil
}

func defaultExpires() time.Time {
	return time.Now().Add(DefaultValidity).UTC().Truncate(time.Second)
}
