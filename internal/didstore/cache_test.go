package didstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"didstore/internal/document"
	"didstore/internal/mnemonic"
	"didstore/internal/store"
)

func twoVersions(t *testing.T) (*document.Document, *document.Document) {
	t.Helper()
	fs, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	s, err := Open(Config{Storage: fs, ScryptN: 1 << 10, ScryptR: 8, ScryptP: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	_, err = s.InitPrivateIdentity(mnemonic.English, "", "", "pw", false)
	require.NoError(t, err)

	v1, err := s.NewDID("", "pw")
	require.NoError(t, err)
	b := v1.Edit(s)
	require.NoError(t, b.AddService("hub", "HubService", "https://hub.example.com"))
	v2, err := b.Seal("pw")
	require.NoError(t, err)
	return v1, v2
}

func TestCache_FillAfterWriteIsDropped(t *testing.T) {
	old, fresh := twoVersions(t)
	c := newCache(8, time.Minute)

	// a reader misses and reads the old bytes
	epoch := c.snapshot()

	// a writer replaces the document meanwhile
	c.removeDocument(fresh.Subject())
	c.putDocument(fresh)

	c.fillDocument(epoch, old)
	assert.Same(t, fresh, c.document(fresh.Subject()))
}

func TestCache_FillAfterRemoveIsDropped(t *testing.T) {
	old, _ := twoVersions(t)
	c := newCache(8, time.Minute)

	epoch := c.snapshot()
	c.removeDID(old.Subject())
	c.fillDocument(epoch, old)
	assert.Nil(t, c.document(old.Subject()))

	c.fillDocument(c.snapshot(), old)
	assert.Same(t, old, c.document(old.Subject()))
}

func TestCache_Disabled(t *testing.T) {
	old, _ := twoVersions(t)
	var c *cache
	assert.Nil(t, newCache(0, 0))

	c.fillDocument(c.snapshot(), old)
	c.putDocument(old)
	assert.Nil(t, c.document(old.Subject()))
}
