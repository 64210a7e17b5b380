package issuer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"didstore/internal/credential"
	"didstore/internal/crypto"
	"didstore/internal/document"
	"didstore/internal/domain/types"
	"didstore/internal/fault"
	"didstore/internal/issuer"
)

const password = "pw"

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

func newDocument(t *testing.T, ring keyring) *document.Document {
	t.Helper()
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	did := types.NewDID(crypto.IDString(kp.PublicKey()))
	ring[types.NewDIDURL(did, "primary")] = kp

	b := document.NewBuilder(did, ring)
	require.NoError(t, b.AddAuthenticationKey("primary", kp.PublicKeyBase58()))
	doc, err := b.Seal(password)
	require.NoError(t, err)
	return doc
}

func TestIssue_SelfProclaimed(t *testing.T) {
	ring := keyring{}
	doc := newDocument(t, ring)

	iss, err := issuer.New(doc, nil, ring)
	require.NoError(t, err)
	assert.Equal(t, doc.Subject(), iss.DID())

	vc, err := iss.Issue(doc.Subject(), "email",
		[]string{"BasicProfileCredential", credential.SelfProclaimedType},
		map[string]any{"email": "john@example.com"},
		time.Time{}, password)
	require.NoError(t, err)

	assert.True(t, vc.IsSelfProclaimed())
	assert.False(t, vc.IsExpired())
	assert.True(t, vc.HasType("BasicProfileCredential"))
	assert.Equal(t, doc.Expires(), vc.ExpirationDate())
	assert.True(t, doc.VerifyCredential(vc))

	parsed, err := credential.Parse([]byte(vc.String()))
	require.NoError(t, err)
	assert.True(t, parsed.Equal(vc))
	assert.True(t, doc.VerifyCredential(parsed))
	email, _ := parsed.Property("email")
	assert.Equal(t, "john@example.com", email)

	// embedding keeps the credential verifiable
	b := doc.Edit(ring)
	require.NoError(t, b.AddCredential(vc))
	sealed, err := b.Seal(password)
	require.NoError(t, err)
	embedded, ok := sealed.Credential("email")
	require.True(t, ok)
	assert.True(t, sealed.VerifyCredential(embedded))

	reparsed, err := document.Parse([]byte(sealed.String()))
	require.NoError(t, err)
	assert.True(t, reparsed.IsGenuine())
}

func TestIssue_ThirdParty(t *testing.T) {
	ring := keyring{}
	issuerDoc := newDocument(t, ring)
	owner := newDocument(t, ring)

	iss, err := issuer.New(issuerDoc, nil, ring)
	require.NoError(t, err)

	vc, err := iss.Issue(owner.Subject(), "passport",
		[]string{"BasicProfileCredential"},
		map[string]any{"nation": "Singapore", "passport": "S653258Z07"},
		time.Now().Add(time.Hour), password)
	require.NoError(t, err)

	assert.False(t, vc.IsSelfProclaimed())
	assert.Equal(t, owner.Subject(), vc.Owner())
	assert.True(t, issuerDoc.VerifyCredential(vc))
	assert.False(t, owner.VerifyCredential(vc))

	// the owner may embed it, the issuer may not
	assert.NoError(t, owner.Edit(ring).AddCredential(vc))
	assert.Error(t, issuerDoc.Edit(ring).AddCredential(vc))
}

func TestIssue_Invalid(t *testing.T) {
	ring := keyring{}
	doc := newDocument(t, ring)

	bogus := types.NewDIDURL(doc.Subject(), "nope")
	_, err := issuer.New(doc, &bogus, ring)
	assert.True(t, fault.IsErrStore(err))

	iss, err := issuer.New(doc, nil, ring)
	require.NoError(t, err)

	_, err = iss.Issue(doc.Subject(), "x", nil, map[string]any{"a": 1}, time.Time{}, password)
	assert.Error(t, err)
	_, err = iss.Issue(doc.Subject(), "x", []string{"T"}, nil, time.Time{}, password)
	assert.Error(t, err)
	_, err = iss.Issue(doc.Subject(), "x", []string{"T"}, map[string]any{"a": 1}, time.Time{}, "wrong")
	assert.True(t, fault.IsErrWrongPassword(err))
}
