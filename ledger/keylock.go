/*
keylock.go - Per-key mutual exclusion

The access manager serializes flows per (user, item) pair rather than
globally: two purchases of the same item by the same user must linearize,
while operations on different pairs proceed fully in parallel. KeyMutex
provides that scoping. Entries are reference-counted and removed when the
last holder unlocks, so the map does not grow with the key space.
*/
package ledger

import "sync"

// KeyMutex is a set of mutexes addressed by string key.
type KeyMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLockEntry
}

type keyLockEntry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyMutex returns an empty KeyMutex.
func NewKeyMutex() *KeyMutex {
	return &KeyMutex{locks: make(map[string]*keyLockEntry)}
}

// Lock acquires the mutex for key and returns its unlock function.
func (k *KeyMutex) Lock(key string) func() {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &keyLockEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func pairKey(user UserID, item ContentID) string {
	return string(user) + "\x00" + string(item)
}
