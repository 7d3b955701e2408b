package panes

import "sync"

// LockTable marks panes that are intentionally being closed. It is
// process-local and never persisted, so a restart begins with an empty
// table. Entries are keyed by both the logical id and the mirrored physical
// handle because callers hold either one.
//
// A reconciliation pass consults the table before repairing anything: a
// locked pane is dropped from the pass's view, which closes the race where
// a background pass would recreate a pane mid-teardown.
type LockTable struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

// NewLockTable creates an empty lock table.
func NewLockTable() *LockTable {
	return &LockTable{keys: make(map[string]struct{})}
}

// Acquire marks the pane as closing. It never blocks: if either key is
// already held the call is rejected and the caller treats the operation as
// a no-op.
func (l *LockTable) Acquire(id, handle string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, held := l.keys[id]; held {
		return false
	}
	if handle != "" {
		if _, held := l.keys[handle]; held {
			return false
		}
	}
	l.keys[id] = struct{}{}
	if handle != "" {
		l.keys[handle] = struct{}{}
	}
	return true
}

// Release removes both keys. Safe to call for keys never acquired.
func (l *LockTable) Release(id, handle string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.keys, id)
	if handle != "" {
		delete(l.keys, handle)
	}
}

// IsLocked reports whether the key (logical id or physical handle) is held.
func (l *LockTable) IsLocked(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, held := l.keys[key]
	return held
}
