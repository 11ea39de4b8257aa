package emit

import (
	"sync"

	"github.com/jward/eztscan/internal/store"
	"github.com/jward/eztscan/internal/symbols"
)

// Handles records the sink handle of every materialized symbol. It is
// shared by the emitters of all modules of a run: module handles are read
// across modules when CALL edges are emitted.
type Handles struct {
	mu sync.RWMutex
	m  map[*symbols.Symbol]store.Handle
}

// NewHandles returns an empty table.
func NewHandles() *Handles {
	return &Handles{m: make(map[*symbols.Symbol]store.Handle)}
}

// Get returns the handle of s and whether s has been materialized.
func (h *Handles) Get(s *symbols.Symbol) (store.Handle, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	handle, ok := h.m[s]
	return handle, ok
}

func (h *Handles) set(s *symbols.Symbol, handle store.Handle) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.m[s] = handle
}

// Len returns the number of materialized symbols.
func (h *Handles) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.m)
}
