// internal/app/system/keymu/keymu.go
package keymu

import "sync"

// Mutex provides per-key mutual exclusion. The workflow resolver uses one
// instance keyed by room ID and request ID so that no two transitions
// touching the same room or the same request can interleave their
// read-modify-write, while transitions on unrelated entities proceed
// concurrently.
//
// Entries are reference-counted and removed when the last holder unlocks,
// so the map does not grow with the number of distinct keys ever seen.
type Mutex struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// New creates an empty keyed mutex.
func New() *Mutex {
	return &Mutex{locks: make(map[string]*entry)}
}

// Lock acquires the lock for key, blocking until it is available.
func (m *Mutex) Lock(key string) {
	m.mu.Lock()
	e, ok := m.locks[key]
	if !ok {
		e = &entry{}
		m.locks[key] = e
	}
	e.refs++
	m.mu.Unlock()

	e.mu.Lock()
}

// Unlock releases the lock for key. Unlocking a key that is not held
// panics, same as sync.Mutex.
func (m *Mutex) Unlock(key string) {
	m.mu.Lock()
	e, ok := m.locks[key]
	if !ok {
		m.mu.Unlock()
		panic("keymu: unlock of unheld key " + key)
	}
	e.refs--
	if e.refs == 0 {
		delete(m.locks, key)
	}
	m.mu.Unlock()

	e.mu.Unlock()
}

// LockAll acquires every key in sorted order to avoid lock-order inversion
// when an operation spans multiple keys (e.g., a request and a room).
// Keys must be distinct.
func (m *Mutex) LockAll(keys ...string) {
	for _, k := range sortedUnique(keys) {
		m.Lock(k)
	}
}

// UnlockAll releases every key acquired by LockAll.
func (m *Mutex) UnlockAll(keys ...string) {
	sorted := sortedUnique(keys)
	for i := len(sorted) - 1; i >= 0; i-- {
		m.Unlock(sorted[i])
	}
}

func sortedUnique(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	// insertion sort; key counts here are tiny (2-3)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
