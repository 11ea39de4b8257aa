package emit

import (
	"iter"
	"slices"
	"strings"

	"github.com/jward/eztscan/internal/lexer"
	"github.com/jward/eztscan/internal/parser"
	"github.com/jward/eztscan/internal/store"
)

// Measure computes the metrics of a parsed statement: a checksum over its
// code tokens, the number of lines holding code, and its header and body
// comments.
func Measure(n *parser.Node) store.Metrics {
	if n == nil {
		return store.Metrics{}
	}
	return metrics(n.Tokens(), n.Header, n.Body)
}

// MeasureFile computes module metrics from raw source text without
// parsing it. Comments before the first code token form the header; all
// other comments form the body. A lexical error ends the measure at the
// point it was detected.
func MeasureFile(text string) (m store.Metrics, lines int) {
	toks, _ := lexer.Tokenize(text)
	var header, body []lexer.Token
	seenCode := false
	for _, tok := range toks {
		switch {
		case tok.IsCode():
			seenCode = true
		case seenCode:
			body = append(body, tok)
		default:
			header = append(header, tok)
		}
	}
	lines = strings.Count(text, "\n")
	if text != "" && !strings.HasSuffix(text, "\n") {
		lines++
	}
	return metrics(slices.Values(toks), header, body), lines
}

func metrics(toks iter.Seq[lexer.Token], header, body []lexer.Token) store.Metrics {
	codeLines := make(map[int]struct{})
	code := func(yield func(string) bool) {
		for tok := range toks {
			if !tok.IsCode() {
				continue
			}
			for l := tok.Begin.Line; l <= tok.End.Line; l++ {
				codeLines[l] = struct{}{}
			}
			if !yield(tok.Text) {
				return
			}
		}
	}
	sum := store.ComputeChecksum(code)
	return store.Metrics{
		Checksum:           sum,
		CodeLines:          len(codeLines),
		HeaderCommentLines: len(header),
		BodyCommentLines:   len(body),
		HeaderComments:     joinComments(header),
		BodyComments:       joinComments(body),
	}
}

func joinComments(toks []lexer.Token) string {
	var b strings.Builder
	for _, tok := range toks {
		b.WriteString(strings.TrimSpace(tok.Text))
		b.WriteByte('\n')
	}
	return b.String()
}
