package credential_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"didstore/internal/credential"
	"didstore/internal/crypto"
	"didstore/internal/domain/types"
)

func signed(t *testing.T, kp *crypto.KeyPair, issuer, owner types.DID, expires time.Time) *credential.Credential {
	t.Helper()
	vc := credential.Unsigned(
		types.NewDIDURL(owner, "email"),
		[]string{"EmailCredential", "BasicProfileCredential", "EmailCredential"},
		issuer,
		time.Now(),
		expires,
		credential.Subject{ID: owner, Properties: map[string]any{"email": "alice@example.org"}},
	)
	data, err := vc.SigningData()
	require.NoError(t, err)
	return vc.WithProof(credential.Proof{
		Type:               credential.ProofType,
		VerificationMethod: types.NewDIDURL(issuer, "primary"),
		Signature:          kp.Sign(data),
	})
}

func newKey(t *testing.T) (*crypto.KeyPair, types.DID) {
	t.Helper()
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	t.Cleanup(kp.Wipe)
	return kp, types.NewDID(crypto.IDString(kp.PublicKey()))
}

func TestParseRoundTrip(t *testing.T) {
	kp, did := newKey(t)
	vc := signed(t, kp, did, did, time.Now().Add(time.Hour))

	data, err := vc.MarshalJSON()
	require.NoError(t, err)
	got, err := credential.Parse(data)
	require.NoError(t, err)

	assert.True(t, got.Equal(vc))
	assert.Equal(t, []string{"BasicProfileCredential", "EmailCredential"}, got.Types())
	assert.True(t, got.HasType("EmailCredential"))
	v, ok := got.Property("email")
	require.True(t, ok)
	assert.Equal(t, "alice@example.org", v)
	assert.True(t, got.Verify(kp.PublicKeyBase58()))
}

func TestVerify(t *testing.T) {
	issuerKey, issuer := newKey(t)
	otherKey, owner := newKey(t)

	vc := signed(t, issuerKey, issuer, owner, time.Time{})
	assert.False(t, vc.IsSelfProclaimed())
	assert.True(t, vc.Verify(issuerKey.PublicKeyBase58()))
	assert.False(t, vc.Verify(otherKey.PublicKeyBase58()))

	unsigned := credential.Unsigned(vc.ID(), vc.Types(), issuer, time.Now(), time.Time{}, vc.Subject())
	assert.False(t, unsigned.Verify(issuerKey.PublicKeyBase58()))
}

func TestExpiry(t *testing.T) {
	kp, did := newKey(t)
	assert.True(t, signed(t, kp, did, did, time.Now().Add(-time.Hour)).IsExpired())
	assert.False(t, signed(t, kp, did, did, time.Time{}).IsExpired())
	assert.True(t, signed(t, kp, did, did, time.Time{}).IsSelfProclaimed())
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := credential.Parse([]byte(`{"id":"not a credential"}`))
	assert.Error(t, err)
}
