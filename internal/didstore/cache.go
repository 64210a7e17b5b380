package didstore

import (
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"didstore/internal/credential"
	"didstore/internal/document"
	"didstore/internal/domain"
)

// cache holds parsed documents and credentials keyed by their storage
// identity. A nil *cache is a disabled cache.
//
// Writers bump epoch on every put or removal. A reader that missed takes
// a snapshot before reading storage and fills the entry only if no write
// happened since, so bytes read before a concurrent write never replace
// the written value.
type cache struct {
	lru *expirable.LRU[string, any]

	mu    sync.Mutex
	epoch uint64
}

func newCache(capacity int, ttl time.Duration) *cache {
	if capacity <= 0 && ttl <= 0 {
		return nil
	}
	return &cache{lru: expirable.NewLRU[string, any](capacity, nil, ttl)}
}

func docKey(did domain.DID) string { return "doc/" + did.String() }

func vcKey(id domain.DIDURL) string { return "vc/" + id.String() }

func (c *cache) document(did domain.DID) *document.Document {
	if c == nil {
		return nil
	}
	v, ok := c.lru.Get(docKey(did))
	if !ok {
		return nil
	}
	return v.(*document.Document)
}

func (c *cache) putDocument(doc *document.Document) {
	if c != nil {
		c.add(docKey(doc.Subject()), doc)
	}
}

// fillDocument caches doc read from storage at snapshot epoch.
func (c *cache) fillDocument(epoch uint64, doc *document.Document) {
	if c != nil {
		c.fill(epoch, docKey(doc.Subject()), doc)
	}
}

func (c *cache) credential(id domain.DIDURL) *credential.Credential {
	if c == nil {
		return nil
	}
	v, ok := c.lru.Get(vcKey(id))
	if !ok {
		return nil
	}
	return v.(*credential.Credential)
}

func (c *cache) putCredential(vc *credential.Credential) {
	if c != nil {
		c.add(vcKey(vc.ID()), vc)
	}
}

func (c *cache) fillCredential(epoch uint64, vc *credential.Credential) {
	if c != nil {
		c.fill(epoch, vcKey(vc.ID()), vc)
	}
}

func (c *cache) removeCredential(id domain.DIDURL) {
	if c != nil {
		c.remove(vcKey(id))
	}
}

func (c *cache) removeDocument(did domain.DID) {
	if c != nil {
		c.remove(docKey(did))
	}
}

// removeDID drops the document and every credential of did.
func (c *cache) removeDID(did domain.DID) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.lru.Remove(docKey(did))
	prefix := "vc/" + did.String() + "#"
	for _, k := range c.lru.Keys() {
		if strings.HasPrefix(k, prefix) {
			c.lru.Remove(k)
		}
	}
}

// snapshot returns the current write epoch.
func (c *cache) snapshot() uint64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

func (c *cache) fill(epoch uint64, key string, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch == epoch {
		c.lru.Add(key, v)
	}
}

func (c *cache) add(key string, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.lru.Add(key, v)
}

func (c *cache) remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.lru.Remove(key)
}

func (c *cache) purge() {
	if c != nil {
		c.lru.Purge()
	}
}
