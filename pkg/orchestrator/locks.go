package orchestrator

import "sync"

// lockEntry holds the per-task mutex and its reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// lockTable hands out per-task-id execution locks. Reference counting
// garbage-collects entries once nobody holds or waits on them, so the table
// does not grow with the number of tasks ever seen.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*lockEntry)}
}

func (t *lockTable) acquire(id string) *lockEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, exists := t.locks[id]
	if !exists {
		entry = &lockEntry{}
		t.locks[id] = entry
	}
	entry.refs++
	return entry
}

func (t *lockTable) release(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, exists := t.locks[id]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(t.locks, id)
	}
}

// tryLock attempts to take the task lock without waiting. The returned
// unlock must be called exactly once when ok is true.
func (t *lockTable) tryLock(id string) (unlock func(), ok bool) {
	entry := t.acquire(id)
	if !entry.mu.TryLock() {
		t.release(id)
		return nil, false
	}
	return func() {
		entry.mu.Unlock()
		t.release(id)
	}, true
}

// lock waits for the task lock. Used by cancellation, which must not
// interleave mid-step with an active dispatch.
func (t *lockTable) lock(id string) (unlock func()) {
	entry := t.acquire(id)
	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		t.release(id)
	}
}
