// Package resolve binds the references of a parsed module to symbols.
//
// Results are kept in a Bindings map beside the AST; the AST itself is
// never modified.
package resolve

import (
	"errors"
	"fmt"
	"sync"

	"github.com/jward/eztscan/internal/parser"
	"github.com/jward/eztscan/internal/symbols"
)

// ErrAlreadyBound is returned when an identifier is bound a second time.
var ErrAlreadyBound = errors.New("identifier already bound")

// Bindings maps identifiers to the symbols they resolve to. A binding is
// set once; an identifier bound to an empty list stays unresolved.
type Bindings struct {
	mu sync.RWMutex
	m  map[*parser.Identifier][]*symbols.Symbol
}

// NewBindings returns an empty map.
func NewBindings() *Bindings {
	return &Bindings{m: make(map[*parser.Identifier][]*symbols.Symbol)}
}

// Bind records the symbols id resolves to.
func (b *Bindings) Bind(id *parser.Identifier, syms []*symbols.Symbol) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.m[id]; ok {
		return fmt.Errorf("bind %s at %s: %w", id.Name(), id.Token.Begin, ErrAlreadyBound)
	}
	b.m[id] = append([]*symbols.Symbol(nil), syms...)
	return nil
}

// Get returns the symbols bound to id and whether id has been bound.
func (b *Bindings) Get(id *parser.Identifier) ([]*symbols.Symbol, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	syms, ok := b.m[id]
	return syms, ok
}

// Len returns the number of bound identifiers.
func (b *Bindings) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.m)
}
