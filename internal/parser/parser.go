// Package parser builds an immutable statement tree from Easytrieve tokens.
//
// The grammar is flat: a Program root holds blocks (FILE, PROC, JOB, SORT,
// REPORT and data definitions) and terms (PERFORM, GET, PUT, CALL, SQL ...).
// Blocks have no explicit terminator, except that a procedure ends at
// END-PROC when one is present; otherwise a block runs until the next block
// begins or the input ends.
package parser

import (
	"context"
	"fmt"
	"strings"

	"github.com/jward/eztscan/internal/lexer"
)

const (
	beginProgramMarker = "BEGIN_PROGRAM("
	endProgramMarker   = "END_PROGRAM"
)

// ctxCheckInterval is how many tokens are consumed between context checks.
const ctxCheckInterval = 512

// Parse tokenizes and parses text, returning its Program or Macro root.
// A leading BEGIN_PROGRAM(name) marker line is skipped without shifting
// the line numbers of the remaining text.
func Parse(ctx context.Context, text string) (*Node, error) {
	text, first := stripMarker(text)

	toks, err := scan(ctx, text, first)
	if err != nil {
		return nil, err
	}

	p := newParser(toks)
	if p.startsMacro() {
		return p.parseMacro(), nil
	}
	return p.parseProgram(ctx)
}

func scan(ctx context.Context, text string, first int) ([]lexer.Token, error) {
	s := lexer.NewScanner()
	var toks []lexer.Token
	for tok := range s.Tokens(text, first) {
		if tok.Kind == lexer.Word && tok.Text == endProgramMarker {
			continue
		}
		toks = append(toks, tok)
		if len(toks)%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("tokenize: %w", err)
			}
		}
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("tokenize: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("tokenize: %w", err)
	}
	return toks, nil
}

type parser struct {
	toks []lexer.Token
	// start marks code tokens that begin a statement.
	start []bool
}

func newParser(toks []lexer.Token) *parser {
	p := &parser{toks: toks, start: make([]bool, len(toks))}
	prev := -1
	for i, tok := range toks {
		if !tok.IsCode() {
			continue
		}
		switch {
		case prev < 0:
			p.start[i] = true
		case isTerminator(toks[prev]):
			p.start[i] = true
		case toks[prev].End.Line < tok.Begin.Line && !toks[prev].Continued:
			p.start[i] = true
		}
		prev = i
	}
	return p
}

func (p *parser) startsMacro() bool {
	i := p.nextCode(-1)
	return i >= 0 && (p.toks[i].Is("MACRO") || p.toks[i].Is("MSTART"))
}

// parseMacro puts every token under a single Macro root. Macro bodies are
// not given inner structure.
func (p *parser) parseMacro() *Node {
	root := &Node{Kind: Macro}
	i := p.nextCode(-1)
	root.Header = append(root.Header, p.toks[:i]...)
	for _, tok := range p.toks[i:] {
		root.addToken(tok)
	}
	finish(root)
	return root
}

func (p *parser) parseProgram(ctx context.Context) (*Node, error) {
	root := &Node{Kind: Program}
	var (
		block    *Node
		pending  []lexer.Token
		seenCode bool
	)
	container := func() *Node {
		if block != nil {
			return block
		}
		return root
	}
	closeBlock := func() {
		if block != nil {
			finish(block)
			block = nil
		}
	}

	for i, steps := 0, 0; i < len(p.toks); steps++ {
		if steps%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("parse: %w", err)
			}
		}

		tok := p.toks[i]
		if !tok.IsCode() {
			pending = append(pending, tok)
			i++
			continue
		}

		if p.start[i] {
			if n, next, ok := p.matchBlock(i); ok {
				closeBlock()
				if seenCode {
					n.Header = pending
					for _, c := range pending {
						root.addToken(c)
					}
				} else {
					root.Header = pending
				}
				pending = nil
				seenCode = true
				root.addNode(n)
				block = n
				i = next
				continue
			}
		}

		c := container()
		if seenCode {
			for _, t := range pending {
				c.addToken(t)
			}
		} else {
			root.Header = pending
		}
		pending = nil
		seenCode = true

		if block != nil && block.Kind == Procedure && tok.Is("END-PROC") {
			block.addToken(tok)
			i++
			if i < len(p.toks) && isTerminator(p.toks[i]) {
				block.addToken(p.toks[i])
				i++
			}
			closeBlock()
			continue
		}

		if n, next, ok := p.matchTerm(i); ok {
			c.addNode(n)
			i = next
			continue
		}

		c.addToken(tok)
		i++
	}

	closeBlock()
	if seenCode {
		for _, t := range pending {
			root.addToken(t)
		}
	} else {
		root.Header = pending
	}
	finish(root)
	return root, nil
}

// nextCode returns the index of the first code token after i, or -1.
func (p *parser) nextCode(i int) int {
	for j := i + 1; j < len(p.toks); j++ {
		if p.toks[j].IsCode() {
			return j
		}
	}
	return -1
}

// inStatement reports whether code token j continues the statement that
// contains token i (j > i).
func (p *parser) inStatement(i, j int) bool {
	if j < 0 {
		return false
	}
	for k := i + 1; k <= j; k++ {
		if p.toks[k].IsCode() && p.start[k] {
			return false
		}
	}
	return true
}

// operand returns the index of the operand word following token i within
// the same statement, or -1.
func (p *parser) operand(i int) int {
	j := p.nextCode(i)
	if !p.inStatement(i, j) || !isName(p.toks[j]) {
		return -1
	}
	return j
}

// clause searches the statement containing token i, after it, for keyword
// followed by an operand. It returns the operand index or -1.
func (p *parser) clause(i int, keyword string) int {
	for j := p.nextCode(i); p.inStatement(i, j); j = p.nextCode(j) {
		if p.toks[j].Is(keyword) {
			return p.operand(j)
		}
	}
	return -1
}

func (p *parser) identifier(i int) *Identifier {
	if i < 0 {
		return nil
	}
	return &Identifier{Token: p.toks[i]}
}

// span appends tokens [from, to] to n.
func (p *parser) span(n *Node, from, to int) {
	for k := from; k <= to; k++ {
		n.addToken(p.toks[k])
	}
}

func (n *Node) addToken(tok lexer.Token) {
	n.Elements = append(n.Elements, Element{Token: tok})
}

func (n *Node) addNode(c *Node) {
	n.Elements = append(n.Elements, Element{Node: c})
}

// finish computes the node's span from its code tokens and collects the
// comments lying inside it.
func finish(n *Node) {
	first := true
	n.Body = nil
	for tok := range n.Tokens() {
		if !tok.IsCode() {
			n.Body = append(n.Body, tok)
			continue
		}
		if first {
			n.Span.Begin = tok.Begin
			first = false
		}
		n.Span.End = tok.End
	}
}

func isTerminator(tok lexer.Token) bool {
	return tok.Kind == lexer.Word && tok.Text == "."
}

// isName reports whether tok can name something.
func isName(tok lexer.Token) bool {
	return tok.Kind == lexer.Word && tok.Text != "." && trimOperand(tok.Text) != ""
}

// SQLName derives the display name of an SQL statement: its first four
// words, or its first two when it is an EXEC/EXECUTE call, joined by single
// spaces.
func SQLName(text string) string {
	limit := 4
	if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(text)), "EXEC") {
		limit = 2
	}
	words := strings.Fields(text)
	if len(words) > limit {
		words = words[:limit]
	}
	return strings.Join(words, " ")
}

// RootKind classifies text as Program or Macro by scanning only up to its
// first code token.
func RootKind(text string) Kind {
	text, first := stripMarker(text)
	for tok := range lexer.NewScanner().Tokens(text, first) {
		if !tok.IsCode() {
			continue
		}
		if tok.Is("MACRO") || tok.Is("MSTART") {
			return Macro
		}
		break
	}
	return Program
}

// stripMarker removes a leading BEGIN_PROGRAM(name) line and returns the
// number of the first remaining line.
func stripMarker(text string) (string, int) {
	if !strings.HasPrefix(text, beginProgramMarker) {
		return text, 1
	}
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return text[i+1:], 2
	}
	return "", 2
}
