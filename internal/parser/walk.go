package parser

import "fmt"

// Visitor receives one call per node kind during Walk. Implementations
// assert completeness with a compile-time check:
//
//	var _ parser.Visitor = (*myVisitor)(nil)
type Visitor interface {
	VisitProgram(n *Node)
	VisitMacro(n *Node)
	VisitFile(n *Node)
	VisitData(n *Node)
	VisitProcedure(n *Node)
	VisitJob(n *Node)
	VisitSort(n *Node)
	VisitReport(n *Node)
	VisitPerform(n *Node)
	VisitStart(n *Node)
	VisitFinish(n *Node)
	VisitGet(n *Node)
	VisitPoint(n *Node)
	VisitWrite(n *Node)
	VisitPut(n *Node)
	VisitPrint(n *Node)
	VisitCall(n *Node)
	VisitSQL(n *Node)

	// Leave is called after all of n's children have been walked.
	Leave(n *Node)
}

// Walk visits n and its descendants in pre-order.
func Walk(n *Node, v Visitor) {
	switch n.Kind {
	case Program:
		v.VisitProgram(n)
	case Macro:
		v.VisitMacro(n)
	case File:
		v.VisitFile(n)
	case Data:
		v.VisitData(n)
	case Procedure:
		v.VisitProcedure(n)
	case Job:
		v.VisitJob(n)
	case Sort:
		v.VisitSort(n)
	case Report:
		v.VisitReport(n)
	case Perform:
		v.VisitPerform(n)
	case Start:
		v.VisitStart(n)
	case Finish:
		v.VisitFinish(n)
	case Get:
		v.VisitGet(n)
	case Point:
		v.VisitPoint(n)
	case Write:
		v.VisitWrite(n)
	case Put:
		v.VisitPut(n)
	case Print:
		v.VisitPrint(n)
	case Call:
		v.VisitCall(n)
	case SQL:
		v.VisitSQL(n)
	default:
		panic(fmt.Sprintf("parser: walk of unknown node kind %s", n.Kind))
	}
	for _, c := range n.Children() {
		Walk(c, v)
	}
	v.Leave(n)
}
