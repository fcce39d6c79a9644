package pipeline

import (
	"sync"
	"time"
)

// Ledger is the persisted set of UIDs already committed. The driver only
// reads it; commits add to it.
type Ledger interface {
	Contains(uid string) (bool, error)
	Add(uid string) error
}

// MemoryLedger is a Ledger held in memory.
type MemoryLedger struct {
	mu   sync.Mutex
	uids map[string]time.Time
}

// NewMemoryLedger returns a ledger pre-filled with uids.
func NewMemoryLedger(uids ...string) *MemoryLedger {
	l := &MemoryLedger{uids: make(map[string]time.Time, len(uids))}
	for _, u := range uids {
		l.uids[u] = time.Now()
	}
	return l
}

// Contains reports whether uid was added.
func (l *MemoryLedger) Contains(uid string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.uids[uid]
	return ok, nil
}

// Add records uid. Re-adding keeps the first time.
func (l *MemoryLedger) Add(uid string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.uids[uid]; !ok {
		l.uids[uid] = time.Now()
	}
	return nil
}

// Len returns the number of filled UIDs.
func (l *MemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.uids)
}
