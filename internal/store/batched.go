package store

import "sync"

// Batch buffers the objects and edges of one module in memory until
// CommitBatch writes them in a single transaction. Objects are kept in
// creation order, so a parent always precedes its children.
//
// Thread safety: the mutex protects the slices; the GUID counter has its
// own lock.
type Batch struct {
	fileID  *int64
	mu      sync.Mutex
	guids   *guidCounter
	Objects []Object
	Edges   []Edge
}

// NewBatch returns an empty batch whose objects and edges belong to the
// file with the given ID. A zero fileID leaves them unowned.
func NewBatch(fileID int64) *Batch {
	b := &Batch{guids: newGUIDCounter()}
	if fileID != 0 {
		b.fileID = &fileID
	}
	return b
}

func (b *Batch) CreateObject(obj *Object) (Handle, error) {
	guid := b.guids.Final(obj.ParentGUID, obj.GUID)
	b.mu.Lock()
	defer b.mu.Unlock()
	obj.GUID = guid
	if obj.FileID == nil {
		obj.FileID = b.fileID
	}
	b.Objects = append(b.Objects, *obj)
	return Handle(guid), nil
}

func (b *Batch) CreateEdge(e *Edge) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e.FileID == nil {
		e.FileID = b.fileID
	}
	b.Edges = append(b.Edges, *e)
	return nil
}

// Len returns the number of buffered objects and edges.
func (b *Batch) Len() (objects, edges int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Objects), len(b.Edges)
}
