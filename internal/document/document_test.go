package document_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"didstore/internal/crypto"
	"didstore/internal/document"
	"didstore/internal/domain/types"
	"didstore/internal/fault"
)

const password = "pw"

// keyring signs with in-memory keys and rejects any other password.
type keyring map[types.DIDURL]*crypto.KeyPair

func (k keyring) Sign(id types.DIDURL, pw string, data ...[]byte) (string, error) {
	if pw != password {
		return "", fault.ErrWrongPassword
	}
	kp, ok := k[id]
	if !ok {
		return "", fault.ErrNoPrivateKey
	}
	return kp.Sign(data...), nil
}

func newDocument(t *testing.T, ring keyring) (*document.Document, *crypto.KeyPair) {
	t.Helper()
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	did := types.NewDID(crypto.IDString(kp.PublicKey()))
	ring[types.NewDIDURL(did, document.DefaultKeyFragment)] = kp

	b := document.NewBuilder(did, ring)
	require.NoError(t, b.AddAuthenticationKey(document.DefaultKeyFragment, kp.PublicKeyBase58()))
	doc, err := b.Seal(password)
	require.NoError(t, err)
	return doc, kp
}

func TestSeal_NewDocument(t *testing.T) {
	ring := keyring{}
	doc, kp := newDocument(t, ring)

	assert.Equal(t, 1, doc.Version())
	assert.True(t, strings.HasPrefix(doc.Subject().ID, "i"))
	assert.Equal(t, types.NewDIDURL(doc.Subject(), "primary"), doc.DefaultKey())
	assert.Equal(t, []types.DIDURL{doc.DefaultKey()}, doc.AuthenticationKeys())
	assert.True(t, doc.IsGenuine())
	assert.True(t, doc.IsValid())
	assert.False(t, doc.IsExpired())

	pk, ok := doc.PublicKey("primary")
	require.True(t, ok)
	assert.Equal(t, kp.PublicKeyBase58(), pk.PublicKeyBase58)
	assert.Equal(t, document.KeyType, pk.Type)
}

func TestSeal_ProducesNewVersion(t *testing.T) {
	ring := keyring{}
	doc, _ := newDocument(t, ring)
	before := doc.String()

	extra, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	b := doc.Edit(ring)
	require.NoError(t, b.AddAuthenticationKey("key2", extra.PublicKeyBase58()))
	require.NoError(t, b.AddService("openid", "OpenIdConnectVersion1.0Service", "https://openid.example.com/"))
	updated, err := b.Seal(password)
	require.NoError(t, err)

	assert.Equal(t, 2, updated.Version())
	assert.Len(t, updated.AuthenticationKeys(), 2)
	assert.True(t, updated.IsGenuine())

	// the original value is untouched and still valid
	assert.Equal(t, before, doc.String())
	assert.True(t, doc.IsGenuine())
	assert.Len(t, doc.AuthenticationKeys(), 1)
}

func TestSeal_Invariants(t *testing.T) {
	ring := keyring{}
	doc, _ := newDocument(t, ring)

	// no authentication key at all
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	did := types.NewDID(crypto.IDString(kp.PublicKey()))
	b := document.NewBuilder(did, ring)
	require.NoError(t, b.AddPublicKey("primary", types.DID{}, kp.PublicKeyBase58()))
	_, err = b.Seal(password)
	assert.True(t, errors.Is(err, fault.ErrNoAuthenticationKey))
	assert.True(t, fault.IsErrStore(err))

	// default key keeps its authentication flag
	b = doc.Edit(ring)
	err = b.RemoveAuthenticationKey("primary")
	assert.True(t, fault.IsErrStore(err))
	assert.True(t, fault.IsErrStore(b.RemovePublicKey("primary", true)))

	// fragments are unique across keys and services
	err = b.AddService("primary", "Svc", "https://x")
	assert.True(t, errors.Is(err, fault.ErrDuplicateFragment))

	// wrong password surfaces from the signer
	_, err = doc.Edit(ring).Seal("wrong")
	assert.True(t, fault.IsErrWrongPassword(err))
}

func TestParse_RoundTrip(t *testing.T) {
	ring := keyring{}
	doc, _ := newDocument(t, ring)

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	parsed, err := document.Parse(data)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(doc))
	assert.True(t, parsed.IsGenuine())
	assert.Equal(t, doc.Signature(), parsed.Signature())
	assert.Equal(t, doc.Expires(), parsed.Expires())
}

func TestParse_Tampered(t *testing.T) {
	ring := keyring{}
	doc, _ := newDocument(t, ring)
	other, _ := newDocument(t, ring)

	b := doc.Edit(ring)
	otherKey, _ := other.PublicKey("primary")
	require.NoError(t, b.AddAuthenticationKey("key2", otherKey.PublicKeyBase58))
	updated, err := b.Seal(password)
	require.NoError(t, err)

	// splice the original proof onto the updated content
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(updated.String()), &m))
	var orig map[string]any
	require.NoError(t, json.Unmarshal([]byte(doc.String()), &orig))
	m["proof"] = orig["proof"]
	data, err := json.Marshal(m)
	require.NoError(t, err)

	parsed, err := document.Parse(data)
	require.NoError(t, err)
	assert.False(t, parsed.IsGenuine())

	_, err = document.Parse([]byte(`{"id":"did:elastos:iabc"}`))
	assert.True(t, fault.IsErrMalformed(err))
}

func TestAuthorizeDID(t *testing.T) {
	ring := keyring{}
	target, _ := newDocument(t, ring)
	controller, _ := newDocument(t, ring)

	b := target.Edit(ring)
	require.NoError(t, b.AuthorizeDID("recovery", controller, nil))
	sealed, err := b.Seal(password)
	require.NoError(t, err)

	id := types.NewDIDURL(target.Subject(), "recovery")
	require.True(t, sealed.IsAuthorizationKey(id))
	pk, _ := sealed.PublicKey("recovery")
	ctrlKey, _ := controller.PublicKey("primary")
	assert.Equal(t, controller.Subject(), pk.Controller)
	assert.Equal(t, ctrlKey.PublicKeyBase58, pk.PublicKeyBase58)

	// a controller's non-authentication key is refused
	bogus := types.NewDIDURL(controller.Subject(), "nope")
	assert.True(t, fault.IsErrStore(target.Edit(ring).AuthorizeDID("r2", controller, &bogus)))

	// the subject can not authorize itself
	self, _ := target.PublicKey("primary")
	assert.Error(t, target.Edit(ring).AddAuthorizationKey("r3", target.Subject(), self.PublicKeyBase58))

	b = sealed.Edit(ring)
	require.NoError(t, b.RemoveAuthorizationKey("recovery"))
	again, err := b.Seal(password)
	require.NoError(t, err)
	_, ok := again.PublicKey("recovery")
	assert.False(t, ok)
}

func TestSetExpires(t *testing.T) {
	ring := keyring{}
	doc, _ := newDocument(t, ring)

	b := doc.Edit(ring)
	assert.Error(t, b.SetExpires(time.Now().Add(-time.Hour)))
	at := time.Now().Add(24 * time.Hour)
	require.NoError(t, b.SetExpires(at))
	sealed, err := b.Seal(password)
	require.NoError(t, err)
	assert.Equal(t, at.UTC().Truncate(time.Second), sealed.Expires())
}
