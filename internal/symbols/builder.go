package symbols

import "github.com/jward/eztscan/internal/parser"

// builder creates the symbols of a module from its AST. Only Module and
// Procedure symbols are pushed as scopes, so the top of the stack is always
// the nearest Module-or-Procedure, which is where SQL queries attach.
type builder struct {
	stack []*Symbol
}

var _ parser.Visitor = (*builder)(nil)

func (b *builder) top() *Symbol {
	return b.stack[len(b.stack)-1]
}

func (b *builder) declare(kind Kind, n *parser.Node) *Symbol {
	scope := b.top()
	s := newSymbol(n.Name, kind, scope, scope.module)
	s.Node = n
	s.Span = n.Span
	scope.Add(s)
	return s
}

func (b *builder) VisitProgram(*parser.Node) {}
func (b *builder) VisitMacro(*parser.Node)   {}

func (b *builder) VisitFile(n *parser.Node) { b.declare(KindFile, n) }

func (b *builder) VisitData(*parser.Node) {}

func (b *builder) VisitProcedure(n *parser.Node) {
	b.stack = append(b.stack, b.declare(KindProcedure, n))
}

func (b *builder) VisitJob(*parser.Node)  {}
func (b *builder) VisitSort(*parser.Node) {}

func (b *builder) VisitReport(n *parser.Node) { b.declare(KindReport, n) }

func (b *builder) VisitPerform(*parser.Node) {}
func (b *builder) VisitStart(*parser.Node)   {}
func (b *builder) VisitFinish(*parser.Node)  {}
func (b *builder) VisitGet(*parser.Node)     {}
func (b *builder) VisitPoint(*parser.Node)   {}
func (b *builder) VisitWrite(*parser.Node)   {}
func (b *builder) VisitPut(*parser.Node)     {}
func (b *builder) VisitPrint(*parser.Node)   {}
func (b *builder) VisitCall(*parser.Node)    {}

func (b *builder) VisitSQL(n *parser.Node) { b.declare(KindSQL, n) }

func (b *builder) Leave(n *parser.Node) {
	if n.Kind == parser.Procedure {
		b.stack = b.stack[:len(b.stack)-1]
	}
}
