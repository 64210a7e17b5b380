package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"didstore/internal/domain/types"
)

func TestJournal_CommittedIsReplayed(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.write(mnemonicKey, []byte("stale")))

	w := identityWrites(&types.PrivateIdentity{Seed: []byte("seed"), Index: 4}, blobText)
	m, err := s.stage(w)
	require.NoError(t, err)

	// crash after the manifest is durable but before the files move
	b := []byte(`{"write":["` + indexKey + `","` + seedKey + `"],"remove":["` + mnemonicKey + `"]}`)
	require.NoError(t, writeFile(filepath.Join(dir, journalDir, journalManifest), b, 0o600))
	assert.Equal(t, []string{mnemonicKey}, m.Remove)

	s2, err := NewFileStore(dir)
	require.NoError(t, err)
	id, err := s2.LoadPrivateIdentity()
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, []byte("seed"), id.Seed)
	assert.Empty(t, id.Mnemonic)
	assert.Equal(t, 4, id.Index)
	assert.NoDirExists(t, filepath.Join(dir, journalDir))
}

func TestJournal_UncommittedIsDiscarded(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	_, err = s.stage(identityWrites(&types.PrivateIdentity{Seed: []byte("seed")}, blobText))
	require.NoError(t, err)

	s2, err := NewFileStore(dir)
	require.NoError(t, err)
	ok, err := s2.ContainsPrivateIdentity()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoDirExists(t, filepath.Join(dir, journalDir))
}

func TestRemoveTree_LeavesNoTrash(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	did := types.NewDID("iTest")
	require.NoError(t, s.StoreDID(did, []byte("x")))

	ok, err := s.DeleteDID(did)
	require.NoError(t, err)
	assert.True(t, ok)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), trashPrefix)
	}
}
