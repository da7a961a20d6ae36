package keymu

import (
	"sync"
	"testing"
	"time"
)

func TestLockUnlock_SingleKey(t *testing.T) {
	m := New()
	m.Lock("room-1")
	m.Unlock("room-1")

	// Map must be empty once the last holder releases.
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.locks) != 0 {
		t.Errorf("expected empty lock map, got %d entries", len(m.locks))
	}
}

func TestLock_SerializesSameKey(t *testing.T) {
	m := New()
	var counter int

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Lock("room-1")
			defer m.Unlock("room-1")
			counter++
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Errorf("counter = %d, want 50", counter)
	}
}

func TestLock_DifferentKeysIndependent(t *testing.T) {
	m := New()
	m.Lock("room-1")

	done := make(chan struct{})
	go func() {
		m.Lock("room-2")
		m.Unlock("room-2")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("lock on a different key blocked")
	}
	m.Unlock("room-1")
}

func TestLockAll_DeduplicatesAndOrders(t *testing.T) {
	m := New()

	// Duplicate keys must not deadlock.
	m.LockAll("b", "a", "b")
	m.UnlockAll("b", "a", "b")

	// Two goroutines locking the same pair in opposite argument order must
	// not deadlock either, since LockAll sorts.
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			m.LockAll("req-7", "room-12")
			m.UnlockAll("req-7", "room-12")
		}()
		go func() {
			defer wg.Done()
			m.LockAll("room-12", "req-7")
			m.UnlockAll("room-12", "req-7")
		}()
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("LockAll deadlocked")
	}
}
