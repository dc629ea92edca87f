package dispatch

import (
	"context"
	"strings"
	"sync"
)

// keyedLocker hands out one mutual-exclusion slot per key. Entries are
// reference counted and dropped once nobody holds or waits for them.
type keyedLocker struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	slot chan struct{}
	refs int
}

func newKeyedLocker() *keyedLocker {
	return &keyedLocker{entries: make(map[string]*lockEntry)}
}

// Acquire blocks until key is free or ctx is done. The returned func releases the key.
func (k *keyedLocker) Acquire(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	entry, ok := k.entries[key]
	if !ok {
		entry = &lockEntry{slot: make(chan struct{}, 1)}
		k.entries[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	select {
	case entry.slot <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-entry.slot
				k.unref(key, entry)
			})
		}, nil
	case <-ctx.Done():
		k.unref(key, entry)
		return nil, ctx.Err()
	}
}

func (k *keyedLocker) unref(key string, entry *lockEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(k.entries, key)
	}
}

func (k *keyedLocker) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}

// solutionKey normalizes a solution path for locking. Windows paths are case
// insensitive and accept either separator.
func solutionKey(path string) string {
	key := strings.TrimSpace(path)
	key = strings.ReplaceAll(key, "/", `\`)
	return strings.ToLower(key)
}
