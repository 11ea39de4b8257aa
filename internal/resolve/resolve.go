package resolve

import (
	"errors"
	"fmt"

	"github.com/jward/eztscan/internal/parser"
	"github.com/jward/eztscan/internal/symbols"
)

// ErrNotParsed is returned for a module without an AST.
var ErrNotParsed = errors.New("module has no parsed body")

// Ambiguity reports a CALL whose target had several equally close
// candidates. The first candidate in registration order was chosen.
type Ambiguity struct {
	Module     string
	Ref        string
	Span       parser.Span
	Candidates []string
}

func (a Ambiguity) String() string {
	return fmt.Sprintf("%s:%s: CALL %s matches %v, chose %s",
		a.Module, a.Span.Begin, a.Ref, a.Candidates, a.Candidates[0])
}

// Module binds every reference of m. Local references are looked up from
// the innermost enclosing scope; CALL targets are looked up in lib.
func Module(m *symbols.Module, lib *symbols.Library) (*Bindings, []Ambiguity, error) {
	if m.Root == nil {
		return nil, nil, fmt.Errorf("resolve %s: %w", m.Path, ErrNotParsed)
	}
	r := &resolver{
		module:   m,
		lib:      lib,
		bindings: NewBindings(),
		scopes:   []*symbols.Symbol{m.Symbol},
	}
	parser.Walk(m.Root, r)
	if r.err != nil {
		return nil, nil, fmt.Errorf("resolve %s: %w", m.Path, r.err)
	}
	return r.bindings, r.ambiguities, nil
}

type resolver struct {
	module      *symbols.Module
	lib         *symbols.Library
	bindings    *Bindings
	scopes      []*symbols.Symbol
	ambiguities []Ambiguity
	err         error
}

var _ parser.Visitor = (*resolver)(nil)

func (r *resolver) scope() *symbols.Symbol {
	return r.scopes[len(r.scopes)-1]
}

func (r *resolver) bind(id *parser.Identifier, syms []*symbols.Symbol) {
	if id == nil || r.err != nil {
		return
	}
	r.err = r.bindings.Bind(id, syms)
}

func (r *resolver) local(id *parser.Identifier, kind symbols.Kind) {
	if id == nil {
		return
	}
	r.bind(id, symbols.Lookup(r.scope(), id.Name(), kind))
}

func (r *resolver) VisitProgram(*parser.Node) {}
func (r *resolver) VisitMacro(*parser.Node)   {}
func (r *resolver) VisitFile(*parser.Node)    {}
func (r *resolver) VisitData(*parser.Node)    {}

func (r *resolver) VisitProcedure(n *parser.Node) {
	s := r.scope().Declared(n.Name, symbols.KindProcedure, n.Span.Begin.Line)
	if s == nil {
		s = r.scope()
	}
	r.scopes = append(r.scopes, s)
}

func (r *resolver) VisitJob(n *parser.Node) {
	r.local(n.Target, symbols.KindFile)
}

func (r *resolver) VisitSort(n *parser.Node) {
	r.local(n.From, symbols.KindFile)
	r.local(n.To, symbols.KindFile)
}

func (r *resolver) VisitReport(*parser.Node) {}

func (r *resolver) VisitPerform(n *parser.Node) { r.local(n.Target, symbols.KindProcedure) }
func (r *resolver) VisitStart(n *parser.Node)   { r.local(n.Target, symbols.KindProcedure) }
func (r *resolver) VisitFinish(n *parser.Node)  { r.local(n.Target, symbols.KindProcedure) }
func (r *resolver) VisitGet(n *parser.Node)     { r.local(n.Target, symbols.KindFile) }
func (r *resolver) VisitPoint(n *parser.Node)   { r.local(n.Target, symbols.KindFile) }

func (r *resolver) VisitWrite(n *parser.Node) {
	r.local(n.Target, symbols.KindFile)
	r.local(n.From, symbols.KindFile)
}

func (r *resolver) VisitPut(n *parser.Node) {
	r.local(n.Target, symbols.KindFile)
	r.local(n.From, symbols.KindFile)
}

func (r *resolver) VisitPrint(n *parser.Node) { r.local(n.Target, symbols.KindReport) }

func (r *resolver) VisitCall(n *parser.Node) {
	id := n.Target
	if id == nil {
		return
	}
	candidates := r.lib.Candidates(id.Name(), r.module.Path)
	if len(candidates) == 0 {
		r.bind(id, nil)
		return
	}
	if len(candidates) > 1 {
		paths := make([]string, len(candidates))
		for i, c := range candidates {
			paths[i] = c.Path
		}
		r.ambiguities = append(r.ambiguities, Ambiguity{
			Module:     r.module.Path,
			Ref:        id.Name(),
			Span:       id.Span(),
			Candidates: paths,
		})
	}
	r.bind(id, []*symbols.Symbol{candidates[0].Symbol})
}

func (r *resolver) VisitSQL(*parser.Node) {}

func (r *resolver) Leave(n *parser.Node) {
	if n.Kind == parser.Procedure {
		r.scopes = r.scopes[:len(r.scopes)-1]
	}
}
