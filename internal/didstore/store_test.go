package didstore_test

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"didstore/internal/crypto"
	"didstore/internal/didstore"
	"didstore/internal/document"
	"didstore/internal/domain"
	"didstore/internal/fault"
	"didstore/internal/issuer"
	"didstore/internal/mnemonic"
	"didstore/internal/store"
)

const (
	storePass  = "store-pass"
	exportPass = "export-pass"
	fixedWords = "cloth always junk crash fun exist stumble shift over benefit fun toe"
)

func openStore(t *testing.T, opts ...func(*didstore.Config)) *didstore.Store {
	t.Helper()
	fs, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	cfg := didstore.Config{
		Storage:      fs,
		ScryptN:      1 << 10,
		ScryptR:      8,
		ScryptP:      1,
		ExportArgon2: crypto.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1},
	}
	for _, o := range opts {
		o(&cfg)
	}
	s, err := didstore.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// openFileStore also returns the backend so tests can reach under the
// store's encryption.
func openFileStore(t *testing.T) (*didstore.Store, *store.FileStore) {
	t.Helper()
	fs, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	s := openStore(t, func(cfg *didstore.Config) { cfg.Storage = fs })
	return s, fs
}

func withCache(cfg *didstore.Config) {
	cfg.CacheCapacity = 16
	cfg.CacheTTL = time.Minute
}

func initIdentity(t *testing.T, s *didstore.Store) {
	t.Helper()
	_, err := s.InitPrivateIdentity(mnemonic.English, fixedWords, "", storePass, false)
	require.NoError(t, err)
}

func TestInitPrivateIdentity(t *testing.T) {
	s := openStore(t)

	ok, err := s.ContainsPrivateIdentity()
	require.NoError(t, err)
	assert.False(t, ok)

	words, err := s.InitPrivateIdentity(mnemonic.English, "", "", storePass, false)
	require.NoError(t, err)
	assert.True(t, mnemonic.IsValid(mnemonic.English, words))

	ok, err = s.ContainsPrivateIdentity()
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.ExportMnemonic(storePass)
	require.NoError(t, err)
	assert.Equal(t, words, got)

	_, err = s.ExportMnemonic("wrong")
	assert.True(t, fault.IsErrWrongPassword(err))

	_, err = s.InitPrivateIdentity(mnemonic.English, fixedWords, "", storePass, false)
	assert.ErrorIs(t, err, fault.ErrIdentityExists)

	_, err = s.InitPrivateIdentity(mnemonic.English, fixedWords, "", storePass, true)
	require.NoError(t, err)
	got, err = s.ExportMnemonic(storePass)
	require.NoError(t, err)
	assert.Equal(t, fixedWords, got)

	_, err = s.InitPrivateIdentity(mnemonic.English, "not a real mnemonic", "", storePass, true)
	assert.ErrorIs(t, err, fault.ErrInvalidMnemonic)
}

func TestNewDID_WithoutIdentity(t *testing.T) {
	s := openStore(t)
	_, err := s.NewDID("", storePass)
	assert.ErrorIs(t, err, fault.ErrNoPrivateIdentity)
	assert.True(t, fault.IsErrStore(err))
}

func TestNewDID_DeterministicFromMnemonic(t *testing.T) {
	a := openStore(t)
	b := openStore(t)
	initIdentity(t, a)
	_, err := b.InitPrivateIdentity(mnemonic.English, fixedWords, "", "another password", false)
	require.NoError(t, err)

	da, err := a.NewDID("", storePass)
	require.NoError(t, err)
	db, err := b.NewDID("", "another password")
	require.NoError(t, err)

	assert.Equal(t, da.Subject(), db.Subject())
	assert.Equal(t, "i", da.Subject().ID[:1])
	assert.True(t, da.IsGenuine())
	assert.Equal(t, 1, da.Version())
	assert.Equal(t, []domain.DIDURL{da.DefaultKey()}, da.AuthenticationKeys())
}

func TestNewDID_DistinctIndices(t *testing.T) {
	s := openStore(t)
	initIdentity(t, s)

	const n = 5
	seen := map[domain.DID]bool{}
	for i := 0; i < n; i++ {
		doc, err := s.NewDID("", storePass)
		require.NoError(t, err)
		seen[doc.Subject()] = true
	}
	assert.Len(t, seen, n)

	listed, err := s.ListDIDs(domain.FilterHasPrivateKey)
	require.NoError(t, err)
	require.Len(t, listed, n)
	for _, e := range listed {
		assert.True(t, seen[e.DID])
	}

	none, err := s.ListDIDs(domain.FilterNoPrivateKey)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestNewDID_Concurrent(t *testing.T) {
	s := openStore(t)
	initIdentity(t, s)

	const n = 8
	var wg sync.WaitGroup
	subjects := make([]domain.DID, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			doc, err := s.NewDID("", storePass)
			errs[i] = err
			if err == nil {
				subjects[i] = doc.Subject()
			}
		}(i)
	}
	wg.Wait()

	seen := map[domain.DID]bool{}
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		seen[subjects[i]] = true
	}
	assert.Len(t, seen, n)
}

func TestNewDID_AliasAndMeta(t *testing.T) {
	s := openStore(t)
	initIdentity(t, s)

	doc, err := s.NewDID("Alice", storePass)
	require.NoError(t, err)

	meta, err := s.LoadDIDMeta(doc.Subject())
	require.NoError(t, err)
	assert.Equal(t, "Alice", meta.Alias)

	require.NoError(t, s.SetAlias(doc.Subject(), "Al"))
	list, err := s.ListDIDs(domain.FilterAll)
	require.NoError(t, err)
	assert.Equal(t, []domain.DIDEntry{{DID: doc.Subject(), Alias: "Al"}}, list)

	absent, err := s.LoadDIDMeta(domain.NewDID("iNotHere"))
	require.NoError(t, err)
	assert.Nil(t, absent)
}

func TestStoreAndLoadDID_Edited(t *testing.T) {
	for name, opt := range map[string]func(*didstore.Config){
		"nocache": func(*didstore.Config) {},
		"cache":   withCache,
	} {
		t.Run(name, func(t *testing.T) {
			s := openStore(t, opt)
			initIdentity(t, s)
			doc, err := s.NewDID("", storePass)
			require.NoError(t, err)

			extra, err := crypto.GenerateKeyPair()
			require.NoError(t, err)
			b := doc.Edit(s)
			require.NoError(t, b.AddAuthenticationKey("key2", extra.PublicKeyBase58()))
			updated, err := b.Seal(storePass)
			require.NoError(t, err)
			require.NoError(t, s.StoreDID(updated))

			loaded, err := s.LoadDID(doc.Subject())
			require.NoError(t, err)
			assert.True(t, loaded.Equal(updated))
			assert.Equal(t, 2, loaded.Version())

			_, err = doc.Edit(s).Seal("wrong")
			assert.True(t, fault.IsErrWrongPassword(err))

			missing, err := s.LoadDID(domain.NewDID("iNotHere"))
			require.NoError(t, err)
			assert.Nil(t, missing)
		})
	}
}

func TestDeleteDID(t *testing.T) {
	s := openStore(t, withCache)
	initIdentity(t, s)
	doc, err := s.NewDID("", storePass)
	require.NoError(t, err)
	did := doc.Subject()

	iss, err := issuer.New(doc, nil, s)
	require.NoError(t, err)
	vc, err := iss.Issue(did, "profile", []string{"ProfileCredential"}, map[string]any{"name": "Alice"}, time.Time{}, storePass)
	require.NoError(t, err)
	require.NoError(t, s.StoreCredential(vc, ""))

	ok, err := s.DeleteDID(did)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.DeleteDID(did)
	require.NoError(t, err)
	assert.False(t, ok)

	list, err := s.ListDIDs(domain.FilterAll)
	require.NoError(t, err)
	assert.Empty(t, list)

	loaded, err := s.LoadDID(did)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	got, err := s.LoadCredential(did, "profile")
	require.NoError(t, err)
	assert.Nil(t, got)

	has, err := s.ContainsPrivateKey(doc.DefaultKey())
	require.NoError(t, err)
	assert.False(t, has)
}

func TestCredentials(t *testing.T) {
	s := openStore(t, withCache)
	initIdentity(t, s)
	doc, err := s.NewDID("", storePass)
	require.NoError(t, err)
	did := doc.Subject()

	iss, err := issuer.New(doc, nil, s)
	require.NoError(t, err)
	vc, err := iss.Issue(did, "email", []string{"EmailCredential"}, map[string]any{"email": "a@example.com"}, time.Time{}, storePass)
	require.NoError(t, err)
	require.NoError(t, s.StoreCredential(vc, "mail"))

	ok, err := s.ContainsCredential(did, "email")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.LoadCredential(did, "email")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Equal(vc))
	assert.True(t, doc.VerifyCredential(got))
	assert.True(t, got.IsSelfProclaimed())

	list, err := s.ListCredentials(did)
	require.NoError(t, err)
	assert.Equal(t, []domain.CredentialEntry{{ID: vc.ID(), Alias: "mail"}}, list)

	meta, err := s.LoadCredentialMeta(vc.ID())
	require.NoError(t, err)
	meta.Extra = map[string]string{"k": "v"}
	require.NoError(t, s.StoreCredentialMeta(vc.ID(), meta))
	meta, err = s.LoadCredentialMeta(vc.ID())
	require.NoError(t, err)
	assert.Equal(t, "v", meta.Extra["k"])

	ok, err = s.DeleteCredential(did, "email")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.DeleteCredential(did, "email")
	require.NoError(t, err)
	assert.False(t, ok)

	got, err = s.LoadCredential(did, "email")
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.Error(t, s.StoreCredentialMeta(vc.ID(), meta))
}

func TestSign_PrivateKeys(t *testing.T) {
	s := openStore(t)
	initIdentity(t, s)
	doc, err := s.NewDID("", storePass)
	require.NoError(t, err)
	did := doc.Subject()

	sig, err := s.Sign(doc.DefaultKey(), storePass, []byte("hello"))
	require.NoError(t, err)
	assert.True(t, doc.Verify(doc.DefaultKey(), sig, []byte("hello")))

	_, err = s.Sign(doc.DefaultKey(), "wrong", []byte("hello"))
	assert.True(t, fault.IsErrWrongPassword(err))

	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	k2 := domain.NewDIDURL(did, "key2")
	require.NoError(t, s.StorePrivateKey(k2, kp.PrivateKey(), storePass))
	assert.Error(t, s.StorePrivateKey(domain.NewDIDURL(did, "bad"), []byte{1, 2}, storePass))
	assert.True(t, fault.IsErrWrongPassword(s.StorePrivateKey(k2, kp.PrivateKey(), "wrong")))

	sig, err = s.Sign(k2, storePass, []byte("a"), []byte("b"))
	require.NoError(t, err)
	assert.True(t, crypto.Verify(kp.PublicKeyBase58(), sig, []byte("a"), []byte("b")))

	keys, err := s.ListPrivateKeys(did)
	require.NoError(t, err)
	assert.Equal(t, []domain.DIDURL{k2, doc.DefaultKey()}, keys)

	ok, err := s.DeletePrivateKey(k2)
	require.NoError(t, err)
	assert.True(t, ok)
	_, err = s.Sign(k2, storePass, []byte("a"))
	assert.ErrorIs(t, err, fault.ErrNoPrivateKey)
}

func TestChangePassword(t *testing.T) {
	s := openStore(t)
	initIdentity(t, s)
	d1, err := s.NewDID("one", storePass)
	require.NoError(t, err)
	d2, err := s.NewDID("two", storePass)
	require.NoError(t, err)

	require.True(t, fault.IsErrWrongPassword(s.ChangePassword("wrong", "new")))
	_, err = s.Sign(d1.DefaultKey(), storePass, []byte("x"))
	require.NoError(t, err, "keys stay usable under the original password")

	require.NoError(t, s.ChangePassword(storePass, "new"))

	_, err = s.Sign(d1.DefaultKey(), storePass, []byte("x"))
	assert.True(t, fault.IsErrWrongPassword(err))
	_, err = s.Sign(d2.DefaultKey(), "new", []byte("x"))
	assert.NoError(t, err)

	words, err := s.ExportMnemonic("new")
	require.NoError(t, err)
	assert.Equal(t, fixedWords, words)

	d3, err := s.NewDID("three", "new")
	require.NoError(t, err)
	assert.NotEqual(t, d1.Subject(), d3.Subject())

	list, err := s.ListDIDs(domain.FilterAll)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	loaded, err := s.LoadDID(d1.Subject())
	require.NoError(t, err)
	assert.True(t, loaded.Equal(d1))
}

func TestChangePassword_Reopen(t *testing.T) {
	dir := t.TempDir()
	open := func() *didstore.Store {
		fs, err := store.NewFileStore(dir)
		require.NoError(t, err)
		s, err := didstore.Open(didstore.Config{Storage: fs, ScryptN: 1 << 10, ScryptR: 8, ScryptP: 1})
		require.NoError(t, err)
		return s
	}
	s := open()
	initIdentity(t, s)
	doc, err := s.NewDID("", storePass)
	require.NoError(t, err)
	require.NoError(t, s.ChangePassword(storePass, "new"))
	require.NoError(t, s.Close())

	s = open()
	defer s.Close()
	assert.True(t, fault.IsErrWrongPassword(s.CheckPassword(storePass)))
	_, err = s.Sign(doc.DefaultKey(), "new", []byte("x"))
	assert.NoError(t, err)
}

func TestExportImportDID(t *testing.T) {
	src := openStore(t)
	initIdentity(t, src)
	doc, err := src.NewDID("Alice", storePass)
	require.NoError(t, err)
	did := doc.Subject()

	iss, err := issuer.New(doc, nil, src)
	require.NoError(t, err)
	vc, err := iss.Issue(did, "profile", []string{"ProfileCredential"}, map[string]any{"name": "Alice"}, time.Time{}, storePass)
	require.NoError(t, err)
	require.NoError(t, src.StoreCredential(vc, "me"))

	data, err := src.ExportDID(did, exportPass, storePass)
	require.NoError(t, err)

	var head map[string]any
	require.NoError(t, json.Unmarshal(data, &head))
	assert.Equal(t, "DID", head["type"])
	assert.Equal(t, did.String(), head["id"])

	dst := openStore(t)
	_, err = dst.ImportDID(data, "wrong", "dest-pass")
	assert.True(t, fault.IsErrWrongPassword(err))

	got, err := dst.ImportDID(data, exportPass, "dest-pass")
	require.NoError(t, err)
	assert.Equal(t, did, got)

	loaded, err := dst.LoadDID(did)
	require.NoError(t, err)
	assert.True(t, loaded.Equal(doc))
	list, err := dst.ListDIDs(domain.FilterHasPrivateKey)
	require.NoError(t, err)
	assert.Equal(t, []domain.DIDEntry{{DID: did, Alias: "Alice"}}, list)
	creds, err := dst.ListCredentials(did)
	require.NoError(t, err)
	assert.Equal(t, []domain.CredentialEntry{{ID: vc.ID(), Alias: "me"}}, creds)

	_, err = dst.Sign(doc.DefaultKey(), "dest-pass", []byte("x"))
	require.NoError(t, err)

	again, err := dst.ExportDID(did, exportPass, "dest-pass")
	require.NoError(t, err)
	assertSameExport(t, data, again)
}

func TestExportImportStore(t *testing.T) {
	src := openStore(t, withCache)
	initIdentity(t, src)
	var docs []*document.Document
	for i := 0; i < 3; i++ {
		doc, err := src.NewDID("", storePass)
		require.NoError(t, err)
		docs = append(docs, doc)
	}
	iss, err := issuer.New(docs[0], nil, src)
	require.NoError(t, err)
	vc, err := iss.Issue(docs[1].Subject(), "kyc", []string{"KycCredential"}, map[string]any{"level": 2}, time.Time{}, storePass)
	require.NoError(t, err)
	require.NoError(t, src.StoreCredential(vc, ""))

	data, err := src.ExportStore(exportPass, storePass)
	require.NoError(t, err)

	lvl, err := store.NewLevelStore(filepath.Join(t.TempDir(), "db"))
	require.NoError(t, err)
	dst, err := didstore.Open(didstore.Config{
		Storage: lvl, ScryptN: 1 << 10, ScryptR: 8, ScryptP: 1,
		ExportArgon2: crypto.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1},
	})
	require.NoError(t, err)
	defer dst.Close()

	require.NoError(t, dst.ImportStore(data, exportPass, "dest-pass"))

	srcList, err := src.ListDIDs(domain.FilterAll)
	require.NoError(t, err)
	dstList, err := dst.ListDIDs(domain.FilterAll)
	require.NoError(t, err)
	assert.ElementsMatch(t, srcList, dstList)

	for _, d := range docs {
		loaded, err := dst.LoadDID(d.Subject())
		require.NoError(t, err)
		assert.True(t, loaded.Equal(d))
	}
	got, err := dst.LoadCredential(docs[1].Subject(), "kyc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Equal(vc))

	words, err := dst.ExportMnemonic("dest-pass")
	require.NoError(t, err)
	assert.Equal(t, fixedWords, words)

	again, err := dst.ExportStore(exportPass, "dest-pass")
	require.NoError(t, err)
	assertSameExport(t, data, again)

	// the derivation index travels with the identity
	next, err := dst.NewDID("", "dest-pass")
	require.NoError(t, err)
	for _, d := range docs {
		assert.NotEqual(t, d.Subject(), next.Subject())
	}
}

func TestExportImportPrivateIdentity(t *testing.T) {
	src := openStore(t)
	initIdentity(t, src)
	first, err := src.NewDID("", storePass)
	require.NoError(t, err)

	data, err := src.ExportPrivateIdentity(exportPass, storePass)
	require.NoError(t, err)

	dst := openStore(t)
	assert.Error(t, dst.ImportStore(data, exportPass, "dest-pass"))
	require.NoError(t, dst.ImportPrivateIdentity(data, exportPass, "dest-pass"))

	words, err := dst.ExportMnemonic("dest-pass")
	require.NoError(t, err)
	assert.Equal(t, fixedWords, words)

	next, err := dst.NewDID("", "dest-pass")
	require.NoError(t, err)
	assert.NotEqual(t, first.Subject(), next.Subject())

	_, _, err = didstore.OpenExport([]byte(`{"type":"Other","version":1}`), exportPass)
	assert.ErrorIs(t, err, fault.ErrUnsupportedExport)
}

func TestTransact_Serialises(t *testing.T) {
	s := openStore(t)
	initIdentity(t, s)
	doc, err := s.NewDID("", storePass)
	require.NoError(t, err)
	did := doc.Subject()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Transact(did, func(tx *didstore.DIDTx) error {
				meta, err := tx.Meta()
				if err != nil {
					return err
				}
				if meta.Extra == nil {
					meta.Extra = map[string]string{}
				}
				meta.Extra["n"] += "x"
				return tx.StoreMeta(meta)
			}))
		}()
	}
	wg.Wait()

	meta, err := s.LoadDIDMeta(did)
	require.NoError(t, err)
	assert.Len(t, meta.Extra["n"], n)
}

func assertSameExport(t *testing.T, a, b []byte) {
	t.Helper()
	ka, pa, err := didstore.OpenExport(a, exportPass)
	require.NoError(t, err)
	kb, pb, err := didstore.OpenExport(b, exportPass)
	require.NoError(t, err)
	assert.Equal(t, ka, kb)
	assert.Equal(t, pa, pb)
}

func TestChangePassword_KeysWithoutDocument(t *testing.T) {
	s := openStore(t)
	initIdentity(t, s)

	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	id := domain.NewDIDURL(domain.NewDID("iKeyOnly000000000000000000000000000"), "primary")
	require.NoError(t, s.StorePrivateKey(id, kp.PrivateKey(), storePass))

	list, err := s.ListDIDs(domain.FilterAll)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, s.ChangePassword(storePass, "new"))

	sig, err := s.Sign(id, "new", []byte("x"))
	require.NoError(t, err)
	assert.True(t, crypto.Verify(kp.PublicKeyBase58(), sig, []byte("x")))
}

func TestChangePassword_AbortsOnUnreadableKey(t *testing.T) {
	s, fs := openFileStore(t)
	initIdentity(t, s)
	d1, err := s.NewDID("", storePass)
	require.NoError(t, err)
	d2, err := s.NewDID("", storePass)
	require.NoError(t, err)

	broken := domain.NewDIDURL(d2.Subject(), "broken")
	require.NoError(t, fs.StorePrivateKey(broken, bytes.Repeat([]byte{9}, 64)))

	err = s.ChangePassword(storePass, "new")
	require.Error(t, err)
	assert.True(t, fault.IsErrStore(err))

	assert.True(t, fault.IsErrWrongPassword(s.CheckPassword("new")))
	require.NoError(t, s.CheckPassword(storePass))
	words, err := s.ExportMnemonic(storePass)
	require.NoError(t, err)
	assert.Equal(t, fixedWords, words)
	for _, d := range []*document.Document{d1, d2} {
		_, err = s.Sign(d.DefaultKey(), storePass, []byte("x"))
		assert.NoError(t, err)
	}
}

func TestInvalidFragments_Rejected(t *testing.T) {
	s := openStore(t, withCache)
	initIdentity(t, s)
	doc, err := s.NewDID("", storePass)
	require.NoError(t, err)
	did := doc.Subject()

	_, err = s.DeletePrivateKey(domain.NewDIDURL(did, "../document"))
	assert.Error(t, err)
	_, err = s.DeleteCredential(did, "../../iOther/credentials/x")
	assert.Error(t, err)
	_, err = s.LoadCredential(did, "..")
	assert.Error(t, err)
	_, err = s.ContainsCredential(did, "a/b")
	assert.Error(t, err)
	_, err = s.Sign(domain.NewDIDURL(did, "../primary"), storePass, []byte("x"))
	assert.Error(t, err)

	ok, err := s.ContainsDID(did)
	require.NoError(t, err)
	assert.True(t, ok)
	keys, err := s.ListPrivateKeys(did)
	require.NoError(t, err)
	assert.Equal(t, []domain.DIDURL{doc.DefaultKey()}, keys)
}

// rebundle opens an export, lets edit change its decoded content and
// seals it again under exportPass.
func rebundle(t *testing.T, data []byte, edit func(content map[string]any)) []byte {
	t.Helper()
	var head map[string]any
	require.NoError(t, json.Unmarshal(data, &head))
	_, pt, err := didstore.OpenExport(data, exportPass)
	require.NoError(t, err)

	var content map[string]any
	require.NoError(t, json.Unmarshal(pt, &content))
	edit(content)
	pt, err = json.Marshal(content)
	require.NoError(t, err)

	env, err := crypto.SealWithPasswordParams(exportPass, pt, crypto.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1})
	require.NoError(t, err)
	head["payload"] = json.RawMessage(env)
	out, err := json.Marshal(head)
	require.NoError(t, err)
	return out
}

func TestImportDID_BadItemLeavesNothing(t *testing.T) {
	src := openStore(t)
	initIdentity(t, src)
	doc, err := src.NewDID("", storePass)
	require.NoError(t, err)
	did := doc.Subject()
	data, err := src.ExportDID(did, exportPass, storePass)
	require.NoError(t, err)

	for name, edit := range map[string]func(map[string]any){
		"malformed credential": func(c map[string]any) {
			c["credentials"] = []any{map[string]any{"credential": map[string]any{"bogus": true}}}
		},
		"foreign key": func(c map[string]any) {
			keys := c["privateKeys"].([]any)
			keys[0].(map[string]any)["id"] = "did:elastos:iSomeoneElse0000000000000000000000#primary"
		},
		"key not matching document": func(c map[string]any) {
			other, err := crypto.GenerateKeyPair()
			require.NoError(t, err)
			keys := c["privateKeys"].([]any)
			keys[0].(map[string]any)["key"] = other.PrivateKey()
		},
	} {
		t.Run(name, func(t *testing.T) {
			bad := rebundle(t, data, edit)
			dst := openStore(t)

			_, err := dst.ImportDID(bad, exportPass, "dest-pass")
			require.Error(t, err)

			list, err := dst.ListDIDs(domain.FilterAll)
			require.NoError(t, err)
			assert.Empty(t, list)
			has, err := dst.ContainsPrivateKeys(did)
			require.NoError(t, err)
			assert.False(t, has)
		})
	}
}

func TestImportStore_BadItemLeavesNothing(t *testing.T) {
	src := openStore(t)
	initIdentity(t, src)
	first, err := src.NewDID("", storePass)
	require.NoError(t, err)
	_, err = src.NewDID("", storePass)
	require.NoError(t, err)
	data, err := src.ExportStore(exportPass, storePass)
	require.NoError(t, err)

	// corrupt the last DID's document inside the CBOR content
	_, pt, err := didstore.OpenExport(data, exportPass)
	require.NoError(t, err)
	i := bytes.LastIndex(pt, []byte(`"ECDSAsecp256k1"`))
	require.Positive(t, i)
	pt = bytes.Clone(pt)
	copy(pt[i+1:], "XXXXX")

	var head map[string]any
	require.NoError(t, json.Unmarshal(data, &head))
	env, err := crypto.SealWithPasswordParams(exportPass, pt, crypto.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1})
	require.NoError(t, err)
	head["payload"] = json.RawMessage(env)
	bad, err := json.Marshal(head)
	require.NoError(t, err)

	dst := openStore(t)
	require.Error(t, dst.ImportStore(bad, exportPass, "dest-pass"))

	ok, err := dst.ContainsPrivateIdentity()
	require.NoError(t, err)
	assert.False(t, ok)
	list, err := dst.ListDIDs(domain.FilterAll)
	require.NoError(t, err)
	assert.Empty(t, list)
	has, err := dst.ContainsPrivateKeys(first.Subject())
	require.NoError(t, err)
	assert.False(t, has)
}

func TestImportDID_ReplacesExistingState(t *testing.T) {
	s := openStore(t, withCache)
	initIdentity(t, s)
	doc, err := s.NewDID("Alice", storePass)
	require.NoError(t, err)
	did := doc.Subject()
	data, err := s.ExportDID(did, exportPass, storePass)
	require.NoError(t, err)

	extra, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	require.NoError(t, s.StorePrivateKey(domain.NewDIDURL(did, "key2"), extra.PrivateKey(), storePass))
	iss, err := issuer.New(doc, nil, s)
	require.NoError(t, err)
	vc, err := iss.Issue(did, "later", []string{"ProfileCredential"}, map[string]any{"x": 1}, time.Time{}, storePass)
	require.NoError(t, err)
	require.NoError(t, s.StoreCredential(vc, ""))
	_, err = s.LoadCredential(did, "later")
	require.NoError(t, err)

	_, err = s.ImportDID(data, exportPass, storePass)
	require.NoError(t, err)

	keys, err := s.ListPrivateKeys(did)
	require.NoError(t, err)
	assert.Equal(t, []domain.DIDURL{doc.DefaultKey()}, keys)
	got, err := s.LoadCredential(did, "later")
	require.NoError(t, err)
	assert.Nil(t, got)

	again, err := s.ExportDID(did, exportPass, storePass)
	require.NoError(t, err)
	assertSameExport(t, data, again)
}
