// Package symbols holds the scoped symbol forest of Easytrieve modules and
// the Library used for cross-module lookup.
//
// Names are case-preserved but compared case-insensitively. Children keep
// their insertion order and duplicates are legal; disambiguation happens
// when objects are materialized.
package symbols

import (
	"fmt"
	"strings"

	"github.com/jward/eztscan/internal/parser"
)

// Kind is the kind of a symbol.
type Kind int

const (
	KindModule Kind = iota
	KindProcedure
	KindFile
	KindReport
	KindSQL
	KindUnknownProgram
)

var kindNames = [...]string{
	KindModule:         "module",
	KindProcedure:      "procedure",
	KindFile:           "file",
	KindReport:         "report",
	KindSQL:            "sql",
	KindUnknownProgram: "unknown-program",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MetamodelType returns the object type tag used at the sink.
func (k Kind) MetamodelType() string {
	switch k {
	case KindModule:
		return "Eztprogram"
	case KindProcedure:
		return "Easyproc"
	case KindFile:
		return "Easyfile"
	case KindReport:
		return "Easyreport"
	case KindSQL:
		return "EasySQLQuery"
	case KindUnknownProgram:
		return "EasyCalltoProgram"
	default:
		return ""
	}
}

// Symbol is a named entity of a module. Module and Procedure symbols act as
// scopes.
type Symbol struct {
	Name   string
	Kind   Kind
	Parent *Symbol

	// Node is the declaring statement. It is nil for modules, whose AST is
	// Module.Root, and for placeholders.
	Node *parser.Node

	// Span is the source range of the declaration.
	Span parser.Span

	module   *Module
	children []*Symbol
	index    map[string][]*Symbol
	included []*Symbol
}

func newSymbol(name string, kind Kind, parent *Symbol, m *Module) *Symbol {
	return &Symbol{
		Name:   name,
		Kind:   kind,
		Parent: parent,
		module: m,
		index:  make(map[string][]*Symbol),
	}
}

// NewPlaceholder returns an UnknownProgram symbol standing for the
// unresolved program referenced by id from scope. The placeholder points to
// scope but is not added to its children, so the tree built from source is
// left untouched.
func NewPlaceholder(scope *Symbol, id *parser.Identifier) *Symbol {
	s := newSymbol(id.Name(), KindUnknownProgram, scope, scope.module)
	s.Span = id.Span()
	return s
}

// Module returns the module owning the symbol.
func (s *Symbol) Module() *Module {
	return s.module
}

// QualifiedName joins the names from the module down to s with dots.
func (s *Symbol) QualifiedName() string {
	if s.Parent == nil {
		return s.Name
	}
	return s.Parent.QualifiedName() + "." + s.Name
}

// IsScope reports whether s can own procedures and queries.
func (s *Symbol) IsScope() bool {
	return s.Kind == KindModule || s.Kind == KindProcedure
}

// Scope returns the nearest Module or Procedure, starting at s.
func (s *Symbol) Scope() *Symbol {
	for c := s; c != nil; c = c.Parent {
		if c.IsScope() {
			return c
		}
	}
	return nil
}

// Add appends child under s.
func (s *Symbol) Add(child *Symbol) {
	key := strings.ToUpper(child.Name)
	s.children = append(s.children, child)
	s.index[key] = append(s.index[key], child)
}

// Children returns the direct children in insertion order.
func (s *Symbol) Children() []*Symbol {
	return s.children
}

// Walk calls fn for s and every descendant in pre-order.
func (s *Symbol) Walk(fn func(*Symbol)) {
	fn(s)
	for _, c := range s.children {
		c.Walk(fn)
	}
}

// Local returns the direct children named name whose kind is one of kinds,
// or of any kind when kinds is empty.
func (s *Symbol) Local(name string, kinds ...Kind) []*Symbol {
	if name == "" {
		return nil
	}
	all := s.index[strings.ToUpper(name)]
	if len(kinds) == 0 {
		return append([]*Symbol(nil), all...)
	}
	var out []*Symbol
	for _, c := range all {
		for _, k := range kinds {
			if c.Kind == k {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// Declared returns the child of the given kind declared by a statement
// named name that begins on line. When only one child matches the name the
// line is not checked.
func (s *Symbol) Declared(name string, kind Kind, line int) *Symbol {
	found := s.Local(name, kind)
	if len(found) == 1 {
		return found[0]
	}
	for _, c := range found {
		if c.Span.Begin.Line == line {
			return c
		}
	}
	return nil
}

// Include makes the symbols of scope visible from s when a lookup in s
// finds nothing locally. It models copy-book inclusion.
func (s *Symbol) Include(scope *Symbol) {
	s.included = append(s.included, scope)
}

// Included returns the included scopes in inclusion order.
func (s *Symbol) Included() []*Symbol {
	return s.included
}

func (s *Symbol) String() string {
	return fmt.Sprintf("%s %s", s.Kind, s.QualifiedName())
}
