package didstore

import (
	"sync"

	"didstore/internal/domain"
)

// keyedMutex hands out one mutex per DID, dropping it once no caller
// holds or waits for it. The zero value is ready to use.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[domain.DID]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

// lock acquires the mutex for did and returns its release function.
func (k *keyedMutex) lock(did domain.DID) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[domain.DID]*refMutex)
	}
	m, ok := k.locks[did]
	if !ok {
		m = &refMutex{}
		k.locks[did] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		if m.refs--; m.refs == 0 {
			delete(k.locks, did)
		}
		k.mu.Unlock()
	}
}
