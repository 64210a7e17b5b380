package presentation_test

import (
	"strings"
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
	"didstore/internal/presentation"
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

// directory resolves the documents it holds.
type directory map[types.DID]*document.Document

func (d directory) resolver() presentation.Resolver {
	return presentation.ResolverFunc(func(did types.DID) (*document.Document, error) {
		return d[did], nil
	})
}

func newDocument(t *testing.T, ring keyring, dir directory) *document.Document {
	t.Helper()
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	did := types.NewDID(crypto.IDString(kp.PublicKey()))
	ring[types.NewDIDURL(did, "primary")] = kp

	b := document.NewBuilder(did, ring)
	require.NoError(t, b.AddAuthenticationKey("primary", kp.PublicKeyBase58()))
	doc, err := b.Seal(password)
	require.NoError(t, err)
	dir[did] = doc
	return doc
}

func issue(t *testing.T, ring keyring, by, owner *document.Document, fragment string, expires time.Time) *credential.Credential {
	t.Helper()
	iss, err := issuer.New(by, nil, ring)
	require.NoError(t, err)
	vc, err := iss.Issue(owner.Subject(), fragment, []string{"ProfileCredential"},
		map[string]any{"name": fragment}, expires, password)
	require.NoError(t, err)
	return vc
}

func TestCreateVerifyRoundTrip(t *testing.T) {
	ring, dir := keyring{}, directory{}
	holder := newDocument(t, ring, dir)
	university := newDocument(t, ring, dir)

	self := issue(t, ring, holder, holder, "profile", time.Time{})
	degree := issue(t, ring, university, holder, "degree", time.Time{})

	vp, err := presentation.Create(holder, nil, []*credential.Credential{self, degree}, "n-123", "example.com", ring, password)
	require.NoError(t, err)
	assert.Equal(t, holder.Subject(), vp.Holder())
	assert.Equal(t, holder.DefaultKey(), vp.Proof().VerificationMethod)
	assert.Equal(t, "n-123", vp.Proof().Nonce)
	assert.Equal(t, "example.com", vp.Proof().Realm)
	require.NoError(t, vp.Verify(dir.resolver()))

	ids := []types.DIDURL{}
	for _, vc := range vp.Credentials() {
		ids = append(ids, vc.ID())
	}
	assert.Equal(t, []types.DIDURL{degree.ID(), self.ID()}, ids)
	got, ok := vp.Credential(degree.ID())
	require.True(t, ok)
	assert.True(t, got.Equal(degree))

	data, err := vp.MarshalJSON()
	require.NoError(t, err)
	parsed, err := presentation.Parse(data)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(vp))
	assert.Equal(t, vp.Created(), parsed.Created())
	require.NoError(t, parsed.Verify(dir.resolver()))
}

func TestCreate_Rejects(t *testing.T) {
	ring, dir := keyring{}, directory{}
	holder := newDocument(t, ring, dir)
	other := newDocument(t, ring, dir)
	vc := issue(t, ring, holder, holder, "profile", time.Time{})
	foreign := issue(t, ring, other, other, "profile", time.Time{})
	creds := []*credential.Credential{vc}

	_, err := presentation.Create(holder, nil, creds, "", "realm", ring, password)
	assert.Error(t, err, "nonce required")
	_, err = presentation.Create(holder, nil, creds, "nonce", "", ring, password)
	assert.Error(t, err, "realm required")
	_, err = presentation.Create(holder, nil, nil, "nonce", "realm", ring, password)
	assert.Error(t, err, "credentials required")
	_, err = presentation.Create(holder, nil, []*credential.Credential{vc, foreign}, "nonce", "realm", ring, password)
	assert.Error(t, err, "foreign credential")

	bad := types.NewDIDURL(holder.Subject(), "missing")
	_, err = presentation.Create(holder, &bad, creds, "nonce", "realm", ring, password)
	assert.Error(t, err, "sign key must authenticate")

	_, err = presentation.Create(holder, nil, creds, "nonce", "realm", ring, "wrong")
	assert.True(t, fault.IsErrWrongPassword(err))
}

func TestVerify_DetectsTampering(t *testing.T) {
	ring, dir := keyring{}, directory{}
	holder := newDocument(t, ring, dir)
	vc := issue(t, ring, holder, holder, "profile", time.Time{})
	vp, err := presentation.Create(holder, nil, []*credential.Credential{vc}, "nonce", "realm", ring, password)
	require.NoError(t, err)
	data, err := vp.MarshalJSON()
	require.NoError(t, err)

	for name, edit := range map[string]func(string) string{
		"nonce":   func(s string) string { return strings.Replace(s, `"nonce":"nonce"`, `"nonce":"other"`, 1) },
		"realm":   func(s string) string { return strings.Replace(s, `"realm":"realm"`, `"realm":"elsewhere"`, 1) },
		"created": func(s string) string { return strings.Replace(s, `"created":"`, `"created":"1`, 1) },
	} {
		t.Run(name, func(t *testing.T) {
			changed := edit(string(data))
			require.NotEqual(t, string(data), changed)
			parsed, err := presentation.Parse([]byte(changed))
			if err != nil {
				assert.True(t, fault.IsErrMalformed(err))
				return
			}
			assert.True(t, fault.IsErrMalformed(parsed.Verify(dir.resolver())))
		})
	}
}

func TestVerify_UnknownIssuer(t *testing.T) {
	ring, dir := keyring{}, directory{}
	holder := newDocument(t, ring, dir)
	stranger := newDocument(t, ring, dir)
	vc := issue(t, ring, stranger, holder, "kyc", time.Time{})
	vp, err := presentation.Create(holder, nil, []*credential.Credential{vc}, "nonce", "realm", ring, password)
	require.NoError(t, err)
	require.NoError(t, vp.Verify(dir.resolver()))

	delete(dir, stranger.Subject())
	assert.Error(t, vp.Verify(dir.resolver()))
}

func TestVerify_ExpiredCredential(t *testing.T) {
	ring, dir := keyring{}, directory{}
	holder := newDocument(t, ring, dir)
	vc := issue(t, ring, holder, holder, "profile", time.Now().Add(-time.Hour))
	vp, err := presentation.Create(holder, nil, []*credential.Credential{vc}, "nonce", "realm", ring, password)
	require.NoError(t, err)

	assert.True(t, fault.IsErrMalformed(vp.Verify(dir.resolver())))
}

func TestParse_Rejects(t *testing.T) {
	_, err := presentation.Parse([]byte(`{"type":"VerifiablePresentation"}`))
	assert.True(t, fault.IsErrMalformed(err))
	_, err = presentation.Parse([]byte(`not json`))
	assert.True(t, fault.IsErrMalformed(err))
}
