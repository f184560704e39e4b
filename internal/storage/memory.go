// =============================================================================
// IN-MEMORY STORAGE
// =============================================================================
//
// Map- and struct-backed stores guarded by RWMutex: RLock for loads, Lock
// for saves. Nothing survives a restart.
//
// =============================================================================

package storage

import (
	"sync"

	"github.com/senutpal/singlepaxos/internal/ballot"
)

type MemoryHistory struct {
	mu      sync.RWMutex
	entries map[ballot.ID]uint64
	closed  bool
}

func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{entries: make(map[ballot.ID]uint64)}
}

func (h *MemoryHistory) Record(id ballot.ID, value uint64) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false, ErrClosed
	}
	if _, ok := h.entries[id]; ok {
		return false, nil
	}
	h.entries[id] = value
	return true, nil
}

func (h *MemoryHistory) Lookup(id ballot.ID) (uint64, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	v, ok := h.entries[id]
	return v, ok
}

func (h *MemoryHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

func (h *MemoryHistory) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.entries = nil
	return nil
}

type MemoryAcceptorStore struct {
	mu     sync.RWMutex
	state  AcceptorState
	closed bool
}

func NewMemoryAcceptorStore() *MemoryAcceptorStore {
	return &MemoryAcceptorStore{}
}

func (m *MemoryAcceptorStore) Save(state AcceptorState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.state = state
	return nil
}

func (m *MemoryAcceptorStore) Load() (AcceptorState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return AcceptorState{}, ErrClosed
	}
	return m.state, nil
}

func (m *MemoryAcceptorStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.state = AcceptorState{}
	return nil
}
