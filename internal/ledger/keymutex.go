package ledger

import (
	"fmt"
	"sync"
)

// keyMutex serializes redistribution per item key so the read-then-write
// sequence cannot interleave with a second redistribution on the same key.
// Locks are never evicted; the key space is bounded by the guild's item
// catalog.
type keyMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyMutex() *keyMutex {
	return &keyMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for the item key and returns its unlock func.
func (k *keyMutex) Lock(guildID int64, category, itemName string) func() {
	key := fmt.Sprintf("%d|%s|%s", guildID, category, itemName)

	k.mu.Lock()
	lock, ok := k.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		k.locks[key] = lock
	}
	k.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
