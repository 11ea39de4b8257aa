package store

import (
	"fmt"
	"strings"
	"sync"
)

// Sink receives the objects and edges of the graph. Both the in-memory
// Batch and the SQLite Store implement it, so the emitter does not know
// which one it writes to.
type Sink interface {
	// CreateObject stores obj and returns its final handle. Requests for
	// a GUID already used under the same parent get a _N suffix.
	CreateObject(obj *Object) (Handle, error)
	CreateEdge(e *Edge) error
}

// Compile-time checks.
var (
	_ Sink = (*Store)(nil)
	_ Sink = (*Batch)(nil)
)

// guidCounter hands out final GUIDs. The first request for a GUID under a
// parent gets it unchanged; later ones get _1, _2 and so on.
type guidCounter struct {
	mu   sync.Mutex
	seen map[string]map[string]int
}

func newGUIDCounter() *guidCounter {
	return &guidCounter{seen: make(map[string]map[string]int)}
}

// Final returns the GUID to use for guid under parent.
func (c *guidCounter) Final(parent, guid string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	byGUID := c.seen[parent]
	if byGUID == nil {
		byGUID = make(map[string]int)
		c.seen[parent] = byGUID
	}
	key := strings.ToUpper(guid)
	n := byGUID[key]
	byGUID[key] = n + 1
	if n == 0 {
		return guid
	}
	return fmt.Sprintf("%s_%d", guid, n)
}

func (c *guidCounter) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.seen)
}
