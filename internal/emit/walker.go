package emit

import (
	"context"
	"strings"

	"github.com/jward/eztscan/internal/parser"
	"github.com/jward/eztscan/internal/resolve"
	"github.com/jward/eztscan/internal/store"
	"github.com/jward/eztscan/internal/symbols"
)

// walker emits the edges of one module. The top of the scope stack is the
// source of every edge.
type walker struct {
	ctx      context.Context
	e        *Emitter
	sink     store.Sink
	module   *symbols.Module
	bindings *resolve.Bindings
	scopes   []*symbols.Symbol

	// placeholders memoizes UnknownProgram symbols per scope and
	// uppercase program name.
	placeholders map[*symbols.Symbol]map[string]*symbols.Symbol
}

var _ parser.Visitor = (*walker)(nil)

func (w *walker) scope() *symbols.Symbol {
	return w.scopes[len(w.scopes)-1]
}

// link emits one edge of kind from the current scope to every symbol id is
// bound to.
func (w *walker) link(kind store.EdgeKind, id *parser.Identifier, n *parser.Node) {
	if id == nil || w.ctx.Err() != nil {
		return
	}
	syms, _ := w.bindings.Get(id)
	w.edges(kind, syms, n)
}

func (w *walker) edges(kind store.EdgeKind, targets []*symbols.Symbol, n *parser.Node) {
	if len(targets) == 0 {
		return
	}
	src, ok := w.e.handles.Get(w.scope())
	if !ok {
		w.e.skipped.Add(int64(len(targets)))
		return
	}
	for _, t := range targets {
		dst, ok := w.e.handles.Get(t)
		if !ok {
			w.e.skipped.Add(1)
			continue
		}
		w.e.edge(w.sink, w.module, kind, src, dst, n.Span)
	}
}

// placeholder returns the UnknownProgram symbol standing for id in the
// current scope, materializing it on first use.
func (w *walker) placeholder(id *parser.Identifier) *symbols.Symbol {
	scope := w.scope()
	byName := w.placeholders[scope]
	if byName == nil {
		byName = make(map[string]*symbols.Symbol)
		w.placeholders[scope] = byName
	}
	key := strings.ToUpper(id.Name())
	if ph, ok := byName[key]; ok {
		return ph
	}
	ph := symbols.NewPlaceholder(scope, id)
	byName[key] = ph

	parent, ok := w.e.handles.Get(scope)
	if !ok {
		return ph
	}
	obj := w.e.object(parent, ph)
	obj.Properties = map[string]string{store.PropProgramName: ph.Name}
	if h, ok := w.e.create(w.sink, w.module, obj); ok {
		w.e.handles.set(ph, h)
		w.e.placeholders.Add(1)
	}
	return ph
}

func (w *walker) VisitProgram(*parser.Node) {}
func (w *walker) VisitMacro(*parser.Node)   {}
func (w *walker) VisitFile(*parser.Node)    {}
func (w *walker) VisitData(*parser.Node)    {}
func (w *walker) VisitReport(*parser.Node)  {}
func (w *walker) VisitSQL(*parser.Node)     {}

func (w *walker) VisitProcedure(n *parser.Node) {
	s := w.scope().Declared(n.Name, symbols.KindProcedure, n.Span.Begin.Line)
	if s == nil {
		s = w.scope()
	}
	w.scopes = append(w.scopes, s)
}

func (w *walker) VisitJob(n *parser.Node) {
	w.link(store.EdgeRead, n.Target, n)
}

func (w *walker) VisitSort(n *parser.Node) {
	w.link(store.EdgeRead, n.From, n)
	w.link(store.EdgeWrite, n.To, n)
}

func (w *walker) VisitPerform(n *parser.Node) { w.link(store.EdgeCall, n.Target, n) }
func (w *walker) VisitStart(n *parser.Node)   { w.link(store.EdgeCall, n.Target, n) }
func (w *walker) VisitFinish(n *parser.Node)  { w.link(store.EdgeCall, n.Target, n) }
func (w *walker) VisitGet(n *parser.Node)     { w.link(store.EdgeRead, n.Target, n) }
func (w *walker) VisitPoint(n *parser.Node)   { w.link(store.EdgeRead, n.Target, n) }
func (w *walker) VisitPrint(n *parser.Node)   { w.link(store.EdgeRead, n.Target, n) }

func (w *walker) VisitWrite(n *parser.Node) {
	w.link(store.EdgeWrite, n.Target, n)
	w.link(store.EdgeRead, n.From, n)
}

func (w *walker) VisitPut(n *parser.Node) {
	w.link(store.EdgeWrite, n.Target, n)
	w.link(store.EdgeRead, n.From, n)
}

func (w *walker) VisitCall(n *parser.Node) {
	id := n.Target
	if id == nil || w.ctx.Err() != nil {
		return
	}
	syms, ok := w.bindings.Get(id)
	if ok && len(syms) == 0 {
		syms = []*symbols.Symbol{w.placeholder(id)}
	}
	w.edges(store.EdgeCall, syms, n)
}

func (w *walker) Leave(n *parser.Node) {
	if n.Kind == parser.Procedure {
		w.scopes = w.scopes[:len(w.scopes)-1]
	}
}
