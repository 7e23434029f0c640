package store

import (
	"context"
	"sync"

	"github.com/ppiankov/agentbus/internal/bus"
)

// MemStore keeps every bus log in memory. Appends for one bus are
// serialized by that bus's lock; reads run concurrently under a read lock
// and copy out, so returned slices never alias the live log.
type MemStore struct {
	mu   sync.RWMutex
	logs map[string]*memLog
}

type memLog struct {
	mu      sync.RWMutex
	entries []bus.LogEntry
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{logs: make(map[string]*memLog)}
}

// Append implements Store.
func (m *MemStore) Append(ctx context.Context, busID string, p bus.Payload) (bus.Position, error) {
	l := m.log(busID)

	l.mu.Lock()
	defer l.mu.Unlock()
	pos := bus.Position(len(l.entries))
	l.entries = append(l.entries, bus.LogEntry{Position: pos, Payload: p})
	return pos, nil
}

// Read implements Store.
func (m *MemStore) Read(ctx context.Context, busID string, start bus.Position, max int, kinds []bus.Kind) ([]bus.LogEntry, bool, error) {
	l := m.log(busID)

	l.mu.RLock()
	var tail []bus.LogEntry
	// Compare in the unsigned domain: a start beyond the tail (including
	// values past MaxInt64) is an empty, complete read, never a panic.
	if uint64(start) < uint64(len(l.entries)) {
		tail = make([]bus.LogEntry, len(l.entries)-int(start))
		copy(tail, l.entries[start:])
	}
	l.mu.RUnlock()

	entries, complete := window(tail, max, kinds)
	return entries, complete, nil
}

// Close implements Store. A MemStore holds no external resources.
func (m *MemStore) Close() error { return nil }

// log materializes the bus on first touch.
func (m *MemStore) log(busID string) *memLog {
	m.mu.RLock()
	l, ok := m.logs[busID]
	m.mu.RUnlock()
	if ok {
		return l
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.logs[busID]; ok {
		return l
	}
	l = &memLog{}
	m.logs[busID] = l
	return l
}
