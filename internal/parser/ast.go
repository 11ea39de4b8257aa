package parser

import (
	"fmt"
	"iter"
	"strings"

	"github.com/jward/eztscan/internal/lexer"
)

// Kind is the closed set of statement kinds the grammar recognizes.
type Kind int

const (
	// Roots.
	Program Kind = iota
	Macro

	// Blocks. They close implicitly when another block begins.
	File
	Data
	Procedure
	Job
	Sort
	Report

	// Terms.
	Perform
	Start // START and RESTART
	Finish
	Get
	Point
	Write
	Put
	Print
	Call
	SQL
)

var kindNames = [...]string{
	Program:   "Program",
	Macro:     "Macro",
	File:      "File",
	Data:      "Data",
	Procedure: "Procedure",
	Job:       "Job",
	Sort:      "Sort",
	Report:    "Report",
	Perform:   "Perform",
	Start:     "Start",
	Finish:    "Finish",
	Get:       "Get",
	Point:     "Point",
	Write:     "Write",
	Put:       "Put",
	Print:     "Print",
	Call:      "Call",
	SQL:       "SQL",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsRoot reports whether k is Program or Macro.
func (k Kind) IsRoot() bool { return k == Program || k == Macro }

// IsBlock reports whether k opens a block.
func (k Kind) IsBlock() bool { return k >= File && k <= Report }

// IsTerm reports whether k is a single-statement term.
func (k Kind) IsTerm() bool { return k >= Perform && k <= SQL }

// Span is a begin/end source range.
type Span struct {
	Begin lexer.Position
	End   lexer.Position
}

func (s Span) String() string {
	return fmt.Sprintf("%s-%s", s.Begin, s.End)
}

// Identifier is a reference to a named entity. Bindings are keyed by the
// pointer, so each operand occurrence is a distinct Identifier.
type Identifier struct {
	Token lexer.Token
}

// Name returns the referenced name with surrounding parentheses and commas
// removed.
func (id *Identifier) Name() string {
	return trimOperand(id.Token.Text)
}

// Span returns the token's source range.
func (id *Identifier) Span() Span {
	return Span{Begin: id.Token.Begin, End: id.Token.End}
}

func (id *Identifier) String() string {
	return id.Name()
}

// Element is one ordered item of a node: either a token or a child node.
type Element struct {
	Token lexer.Token
	Node  *Node
}

// IsNode reports whether the element holds a child node.
func (e Element) IsNode() bool { return e.Node != nil }

// Node is a parsed statement. Nodes are not modified after Parse returns.
type Node struct {
	Kind     Kind
	Elements []Element
	Span     Span

	// Header holds the comments immediately preceding the node; Body holds
	// the comments between its first and last code token.
	Header []lexer.Token
	Body   []lexer.Token

	// Name is the declared name of a File, Data, Procedure or Report block,
	// or the display name of an SQL term.
	Name string

	// Target is the primary operand: the procedure of Perform/Start/Finish,
	// the file of Get/Point/Put/Write, the input of Job, the report of
	// Print and the program of Call.
	Target *Identifier

	// From is the FROM operand of Put/Write and the sorted file of Sort.
	From *Identifier

	// To is the TO operand of Sort.
	To *Identifier

	// SQLText is the raw SQL block of an SQL term.
	SQLText lexer.Token
}

// Keyword returns the text of the node's first token, or "" for a node
// without tokens.
func (n *Node) Keyword() string {
	for _, e := range n.Elements {
		if !e.IsNode() && e.Token.IsCode() {
			return e.Token.Text
		}
	}
	return ""
}

// Children returns the direct child nodes in source order.
func (n *Node) Children() []*Node {
	var out []*Node
	for _, e := range n.Elements {
		if e.IsNode() {
			out = append(out, e.Node)
		}
	}
	return out
}

// Find returns every descendant of kind k in pre-order.
func (n *Node) Find(k Kind) []*Node {
	var out []*Node
	for _, c := range n.Children() {
		if c.Kind == k {
			out = append(out, c)
		}
		out = append(out, c.Find(k)...)
	}
	return out
}

// Tokens yields every token of the node and its descendants in source
// order, comments included. Header comments are not part of the node's
// elements and are not yielded.
func (n *Node) Tokens() iter.Seq[lexer.Token] {
	return func(yield func(lexer.Token) bool) {
		n.tokens(yield)
	}
}

func (n *Node) tokens(yield func(lexer.Token) bool) bool {
	for _, e := range n.Elements {
		if e.IsNode() {
			if !e.Node.tokens(yield) {
				return false
			}
			continue
		}
		if !yield(e.Token) {
			return false
		}
	}
	return true
}

// Identifiers returns the node's non-nil operand references.
func (n *Node) Identifiers() []*Identifier {
	var out []*Identifier
	for _, id := range []*Identifier{n.Target, n.From, n.To} {
		if id != nil {
			out = append(out, id)
		}
	}
	return out
}

func (n *Node) String() string {
	if n.Name != "" {
		return fmt.Sprintf("%s %s [%s]", n.Kind, n.Name, n.Span)
	}
	return fmt.Sprintf("%s [%s]", n.Kind, n.Span)
}

func trimOperand(s string) string {
	return strings.Trim(s, "(),")
}
