package crypto_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"didstore/internal/crypto"
	"didstore/internal/fault"
)

var lightArgon2 = crypto.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1}

func TestSecretBox_RoundTrip(t *testing.T) {
	salt, err := crypto.NewSalt()
	require.NoError(t, err)
	key, err := crypto.DeriveKey("correct horse", salt, 1<<10, 8, 1)
	require.NoError(t, err)

	box, err := crypto.Encrypt(key, []byte("seed material"))
	require.NoError(t, err)

	pt, err := crypto.Decrypt(key, box)
	require.NoError(t, err)
	assert.Equal(t, []byte("seed material"), pt)

	other, err := crypto.DeriveKey("battery staple", salt, 1<<10, 8, 1)
	require.NoError(t, err)
	_, err = crypto.Decrypt(other, box)
	assert.True(t, fault.IsErrWrongPassword(err))
}

func TestSecretBox_FreshNonce(t *testing.T) {
	key := bytes.Repeat([]byte{7}, crypto.KeyBytes)
	a, err := crypto.Encrypt(key, []byte("x"))
	require.NoError(t, err)
	b, err := crypto.Encrypt(key, []byte("x"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDeriveKey_BadSalt(t *testing.T) {
	_, err := crypto.DeriveKey("pw", []byte{1, 2, 3}, 1<<10, 8, 1)
	assert.Error(t, err)
}

func TestPasswordCheck(t *testing.T) {
	key := bytes.Repeat([]byte{1}, crypto.KeyBytes)
	check := crypto.PasswordCheck(key)
	assert.True(t, crypto.CheckPassword(key, check))
	assert.False(t, crypto.CheckPassword(bytes.Repeat([]byte{2}, crypto.KeyBytes), check))
	assert.False(t, crypto.CheckPassword(key, "not-hex"))
}

func TestEnvelope_RoundTrip(t *testing.T) {
	blob, err := crypto.SealWithPasswordParams("export-pw", []byte("bundle"), lightArgon2)
	require.NoError(t, err)

	pt, err := crypto.OpenWithPassword("export-pw", blob)
	require.NoError(t, err)
	assert.Equal(t, "bundle", string(pt))

	_, err = crypto.OpenWithPassword("nope", blob)
	assert.True(t, fault.IsErrWrongPassword(err))

	_, err = crypto.OpenWithPassword("export-pw", []byte("{"))
	assert.True(t, fault.IsErrMalformed(err))
}

func TestEnvelope_RejectsBadCosts(t *testing.T) {
	blob, err := crypto.SealWithPasswordParams("export-pw", []byte("bundle"), lightArgon2)
	require.NoError(t, err)

	for name, edit := range map[string]func(map[string]any){
		"no rounds":       func(m map[string]any) { m["argon2_t"] = 0 },
		"no lanes":        func(m map[string]any) { m["argon2_p"] = 0 },
		"memory per lane": func(m map[string]any) { m["argon2_m"], m["argon2_p"] = 8*4-1, 4 },
		"memory too big":  func(m map[string]any) { m["argon2_m"] = 1<<20 + 1 },
	} {
		t.Run(name, func(t *testing.T) {
			var m map[string]any
			require.NoError(t, json.Unmarshal(blob, &m))
			edit(m)
			bad, err := json.Marshal(m)
			require.NoError(t, err)

			assert.NotPanics(t, func() {
				_, err = crypto.OpenWithPassword("export-pw", bad)
			})
			assert.True(t, fault.IsErrMalformed(err))
		})
	}

	_, err = crypto.SealWithPasswordParams("export-pw", []byte("bundle"), crypto.Argon2Params{Memory: 8 * 1024, Threads: 1})
	assert.Error(t, err)
}

func TestSignVerify(t *testing.T) {
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	defer kp.Wipe()

	sig := kp.Sign([]byte("hello"), []byte("world"))
	assert.True(t, crypto.Verify(kp.PublicKeyBase58(), sig, []byte("helloworld")))
	assert.False(t, crypto.Verify(kp.PublicKeyBase58(), sig, []byte("hello")))

	priv := kp.PrivateKey()
	defer crypto.Wipe(priv)
	sig2, err := crypto.Sign(priv, []byte("payload"))
	require.NoError(t, err)
	assert.True(t, crypto.Verify(kp.PublicKeyBase58(), sig2, []byte("payload")))

	other, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	assert.False(t, crypto.Verify(other.PublicKeyBase58(), sig2, []byte("payload")))
	assert.False(t, crypto.Verify("not base58 0OIl", sig2, []byte("payload")))
}

func TestHDKey_Deterministic(t *testing.T) {
	seed := bytes.Repeat([]byte{0x42}, 64)

	a, err := crypto.NewHDKey(seed)
	require.NoError(t, err)
	b, err := crypto.NewHDKey(seed)
	require.NoError(t, err)

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		ka, err := a.Derive(i)
		require.NoError(t, err)
		kb, err := b.Derive(i)
		require.NoError(t, err)
		assert.Equal(t, ka.PublicKeyBase58(), kb.PublicKeyBase58())
		assert.False(t, seen[ka.PublicKeyBase58()], "index %d reused a key", i)
		seen[ka.PublicKeyBase58()] = true
	}
}

func TestIDString(t *testing.T) {
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	id := crypto.IDString(kp.PublicKey())
	assert.True(t, strings.HasPrefix(id, "i"), id)
	assert.Len(t, id, 34)

	fromB58, err := crypto.IDStringFromBase58(kp.PublicKeyBase58())
	require.NoError(t, err)
	assert.Equal(t, id, fromB58)
}

func TestWipe(t *testing.T) {
	a := []byte{1, 2, 3}
	b := []byte{4, 5}
	crypto.Wipe(a, b)
	assert.Equal(t, []byte{0, 0, 0}, a)
	assert.Equal(t, []byte{0, 0}, b)
}
