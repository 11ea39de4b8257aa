package parser

import (
	"strings"

	"github.com/jward/eztscan/internal/lexer"
)

// termKeywords maps the leading keyword of a term to its kind.
var termKeywords = map[string]Kind{
	"PERFORM": Perform,
	"START":   Start,
	"RESTART": Start,
	"FINISH":  Finish,
	"GET":     Get,
	"POINT":   Point,
	"WRITE":   Write,
	"PUT":     Put,
	"PRINT":   Print,
	"CALL":    Call,
}

// reserved words cannot name a data definition.
var reserved = map[string]bool{
	"FILE": true, "JOB": true, "SORT": true, "REPORT": true, "PROC": true,
	"END-PROC": true, "SQL": true, "MACRO": true, "MSTART": true, "MEND": true,
	"PERFORM": true, "START": true, "RESTART": true, "FINISH": true,
	"GET": true, "POINT": true, "WRITE": true, "PUT": true, "PRINT": true,
	"CALL": true, "IF": true, "ELSE": true, "ELSE-IF": true, "END-IF": true,
	"DO": true, "END-DO": true, "CASE": true, "WHEN": true, "OTHERWISE": true,
	"END-CASE": true, "MOVE": true, "DISPLAY": true, "GOTO": true, "GO": true,
	"STOP": true, "PARM": true, "LINE": true, "TITLE": true, "HEADING": true,
}

var dataTypes = []string{"W", "F", "C", "S"}

// matchBlock tries every block begin pattern at statement start i. On
// success it returns the new block holding its opening tokens and the index
// following them.
func (p *parser) matchBlock(i int) (*Node, int, bool) {
	tok := p.toks[i]
	switch {
	case tok.Is("FILE"):
		return p.namedBlock(File, i)
	case tok.Is("REPORT"):
		return p.namedBlock(Report, i)
	case tok.Is("JOB"):
		n := &Node{Kind: Job, Target: p.identifier(p.clause(i, "INPUT"))}
		n.addToken(tok)
		return n, i + 1, true
	case tok.Is("SORT"):
		from := p.operand(i)
		if from < 0 {
			return nil, 0, false
		}
		n := &Node{
			Kind: Sort,
			From: p.identifier(from),
			To:   p.identifier(p.clause(from, "TO")),
		}
		p.span(n, i, from)
		return n, from + 1, true
	}

	if !isName(tok) {
		return nil, 0, false
	}
	if n, next, ok := p.procedure(i); ok {
		return n, next, true
	}
	return p.data(i)
}

func (p *parser) namedBlock(kind Kind, i int) (*Node, int, bool) {
	name := p.operand(i)
	if name < 0 {
		return nil, 0, false
	}
	n := &Node{Kind: kind, Name: trimOperand(p.toks[name].Text)}
	p.span(n, i, name)
	return n, name + 1, true
}

// procedure matches "<name>[.] PROC".
func (p *parser) procedure(i int) (*Node, int, bool) {
	j := p.nextCode(i)
	if j >= 0 && isTerminator(p.toks[j]) {
		j = p.nextCode(j)
	}
	if j < 0 || !p.toks[j].Is("PROC") {
		return nil, 0, false
	}
	n := &Node{Kind: Procedure, Name: trimOperand(p.toks[i].Text)}
	p.span(n, i, j)
	return n, j + 1, true
}

// data matches "<name> (W|F|C|S)".
func (p *parser) data(i int) (*Node, int, bool) {
	name := p.toks[i]
	if reserved[strings.ToUpper(name.Text)] {
		return nil, 0, false
	}
	j := p.nextCode(i)
	if !p.inStatement(i, j) || !isDataType(p.toks[j]) {
		return nil, 0, false
	}
	n := &Node{Kind: Data, Name: trimOperand(name.Text)}
	p.span(n, i, j)
	return n, j + 1, true
}

func isDataType(tok lexer.Token) bool {
	for _, t := range dataTypes {
		if tok.Is(t) {
			return true
		}
	}
	return false
}

// matchTerm tries every term pattern at code token i.
func (p *parser) matchTerm(i int) (*Node, int, bool) {
	tok := p.toks[i]
	if tok.Kind == lexer.Keyword && tok.Is("SQL") {
		j := i + 1
		if j >= len(p.toks) || p.toks[j].Kind != lexer.SQL {
			return nil, 0, false
		}
		n := &Node{
			Kind:    SQL,
			Name:    SQLName(p.toks[j].Text),
			SQLText: p.toks[j],
		}
		p.span(n, i, j)
		finish(n)
		return n, j + 1, true
	}

	if tok.Kind != lexer.Word {
		return nil, 0, false
	}
	kind, ok := termKeywords[strings.ToUpper(tok.Text)]
	if !ok {
		return nil, 0, false
	}
	target := p.operand(i)
	if target < 0 {
		return nil, 0, false
	}

	n := &Node{Kind: kind, Target: p.identifier(target)}
	last := target
	if kind == Put || kind == Write {
		if from := p.clause(target, "FROM"); from >= 0 {
			n.From = p.identifier(from)
			last = from
		}
	}
	p.span(n, i, last)
	finish(n)
	return n, last + 1, true
}
