package eztscan

import (
	"fmt"
	"slices"

	"github.com/jward/eztscan/internal/store"
)

// QueryBuilder provides read access to the indexed graph.
type QueryBuilder struct {
	store *store.Store
}

// Link is an edge together with the object at its far end.
type Link struct {
	Edge   *Edge
	Object *Object
}

// Summary counts what the database holds.
type Summary struct {
	Files   int              `json:"files" yaml:"files"`
	Objects map[string]int   `json:"objects" yaml:"objects"`
	Edges   map[EdgeKind]int `json:"edges" yaml:"edges"`
	LastRun *Run             `json:"last_run,omitempty" yaml:"last_run,omitempty"`
}

// Objects returns every object of a metamodel type, or all objects when
// typ is empty, ordered by GUID.
func (q *QueryBuilder) Objects(typ string) ([]*Object, error) {
	return q.store.ObjectsByType(typ)
}

// ObjectByGUID returns one object, or nil when the GUID is unknown.
func (q *QueryBuilder) ObjectByGUID(guid string) (*Object, error) {
	return q.store.ObjectByGUID(guid)
}

// ObjectsByName returns the objects with a name, ignoring case.
func (q *QueryBuilder) ObjectsByName(name string) ([]*Object, error) {
	return q.store.ObjectsByName(name)
}

// Files returns the indexed files ordered by path.
func (q *QueryBuilder) Files() ([]*File, error) {
	return q.store.Files()
}

// Children returns the objects declared directly under guid.
func (q *QueryBuilder) Children(guid string) ([]*Object, error) {
	return q.store.Children(guid)
}

// Callers returns the call edges arriving at guid with their sources.
func (q *QueryBuilder) Callers(guid string) ([]Link, error) {
	edges, err := q.store.EdgesTo(guid, EdgeCall)
	if err != nil {
		return nil, fmt.Errorf("callers: %w", err)
	}
	return q.links(edges, func(e *Edge) Handle { return e.Source })
}

// Callees returns the call edges leaving guid with their targets.
func (q *QueryBuilder) Callees(guid string) ([]Link, error) {
	edges, err := q.store.EdgesFrom(guid, EdgeCall)
	if err != nil {
		return nil, fmt.Errorf("callees: %w", err)
	}
	return q.links(edges, func(e *Edge) Handle { return e.Target })
}

// Accesses returns the read and write edges leaving guid with the files
// and reports they touch.
func (q *QueryBuilder) Accesses(guid string) ([]Link, error) {
	edges, err := q.store.EdgesFrom(guid, EdgeRead, EdgeWrite)
	if err != nil {
		return nil, fmt.Errorf("accesses: %w", err)
	}
	return q.links(edges, func(e *Edge) Handle { return e.Target })
}

// Placeholder is an unresolved called program with the calls that
// produced it.
type Placeholder struct {
	Object *Object
	Calls  []Link
}

// Placeholders returns the objects standing for called programs that no
// indexed module provides.
func (q *QueryBuilder) Placeholders() ([]Placeholder, error) {
	objs, err := q.store.ObjectsByType(TypeUnknownProgram)
	if err != nil {
		return nil, fmt.Errorf("placeholders: %w", err)
	}
	out := make([]Placeholder, 0, len(objs))
	for _, o := range objs {
		calls, err := q.Callers(o.GUID)
		if err != nil {
			return nil, fmt.Errorf("placeholders: %w", err)
		}
		out = append(out, Placeholder{Object: o, Calls: calls})
	}
	return out, nil
}

// Summary counts files, objects per type and edges per kind.
func (q *QueryBuilder) Summary() (*Summary, error) {
	files, err := q.store.Files()
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	objects, edges, err := q.store.Counts()
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	run, err := q.store.LastRun()
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	return &Summary{Files: len(files), Objects: objects, Edges: edges, LastRun: run}, nil
}

func (q *QueryBuilder) links(edges []*Edge, far func(*Edge) Handle) ([]Link, error) {
	cache := make(map[Handle]*Object)
	out := make([]Link, 0, len(edges))
	for _, e := range edges {
		h := far(e)
		obj, ok := cache[h]
		if !ok {
			var err error
			obj, err = q.store.ObjectByGUID(string(h))
			if err != nil {
				return nil, err
			}
			cache[h] = obj
		}
		out = append(out, Link{Edge: e, Object: obj})
	}
	return out, nil
}

// Types returns the metamodel types in declaration order.
func Types() []string {
	return slices.Clone(objectTypes)
}

var objectTypes = []string{
	TypeProgram, TypeProcedure, TypeFile, TypeReport, TypeSQLQuery, TypeUnknownProgram,
}
