// Package lexer splits Easytrieve source into positioned tokens.
//
// The lexer is line oriented and stateful across lines: a quoted string may
// span several physical lines, and an SQL statement accumulates raw text until
// a line that does not end with the '+' continuation marker.
package lexer

import (
	"errors"
	"fmt"
	"iter"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrUnterminatedString is reported when the input ends inside a quoted string.
var ErrUnterminatedString = errors.New("unterminated string literal")

// Scanner tokenizes one line at a time. The zero value is ready to use.
type Scanner struct {
	inString bool
	str      strings.Builder
	strBegin Position

	inSQL    bool
	sql      strings.Builder
	sqlBegin Position

	err error
}

// NewScanner returns a Scanner in its initial state.
func NewScanner() *Scanner {
	return &Scanner{}
}

// Tokens lazily tokenizes text, numbering its first line firstLine.
// Check Err once the sequence is exhausted.
func (s *Scanner) Tokens(text string, firstLine int) iter.Seq[Token] {
	return func(yield func(Token) bool) {
		n := firstLine
		for line := range strings.Lines(text) {
			line = strings.TrimRight(line, "\r\n")
			for _, tok := range s.Line(n, line) {
				if !yield(tok) {
					return
				}
			}
			n++
		}
		if tok, ok := s.Finish(); ok {
			yield(tok)
		}
	}
}

// Tokenize returns every token of text, numbering lines from 1.
func Tokenize(text string) ([]Token, error) {
	s := NewScanner()
	var toks []Token
	for tok := range s.Tokens(text, 1) {
		toks = append(toks, tok)
	}
	return toks, s.Err()
}

// Err returns the lexical error detected by Finish, if any.
func (s *Scanner) Err() error {
	return s.err
}

// Line tokenizes the physical line numbered n.
func (s *Scanner) Line(n int, line string) []Token {
	if strings.HasPrefix(strings.TrimSpace(line), "*") {
		return []Token{{
			Text:  line,
			Kind:  Comment,
			Begin: Position{Line: n, Column: 1},
			End:   Position{Line: n, Column: utf8.RuneCountInString(line) + 1},
		}}
	}
	if s.inSQL {
		return s.continueSQL(n, line)
	}
	return s.words(n, []rune(line))
}

// Finish flushes an SQL block left open by a trailing continuation marker
// and records an error for a string that was never closed.
func (s *Scanner) Finish() (Token, bool) {
	if s.inString && s.err == nil {
		s.err = fmt.Errorf("%w opened at %s", ErrUnterminatedString, s.strBegin)
	}
	if !s.inSQL {
		return Token{}, false
	}
	text := s.sql.String()
	end := s.sqlBegin
	if lines := strings.Count(text, "\n"); lines > 0 {
		end = Position{Line: s.sqlBegin.Line + lines, Column: 1}
	}
	return s.flushSQL(end), true
}

func (s *Scanner) words(n int, r []rune) []Token {
	var toks []Token
	stmtStart := true
	i := 0
	for i < len(r) {
		if s.inString {
			j := indexRune(r, i, '\'')
			if j < 0 {
				s.str.WriteString(string(r[i:]))
				i = len(r)
				break
			}
			s.str.WriteString(string(r[i : j+1]))
			toks = append(toks, Token{
				Text:  s.str.String(),
				Kind:  String,
				Begin: s.strBegin,
				End:   Position{Line: n, Column: j + 1},
			})
			s.inString = false
			s.str.Reset()
			stmtStart = false
			i = j + 1
			continue
		}

		c := r[i]
		switch {
		case unicode.IsSpace(c):
			i++
		case c == '\'':
			s.inString = true
			s.strBegin = Position{Line: n, Column: i + 1}
			s.str.Reset()
			s.str.WriteRune(c)
			i++
		case c == '.':
			toks = append(toks, Token{
				Text:  ".",
				Kind:  Word,
				Begin: Position{Line: n, Column: i + 1},
				End:   Position{Line: n, Column: i + 1},
			})
			stmtStart = true
			i++
		default:
			j := i
			for j < len(r) && !isSeparator(r[j]) {
				j++
			}
			word := string(r[i:j])
			begin := Position{Line: n, Column: i + 1}
			end := Position{Line: n, Column: j}
			if stmtStart && strings.EqualFold(word, "SQL") {
				toks = append(toks, Token{Text: word, Kind: Keyword, Begin: begin, End: end})
				if tok, ok := s.startSQL(n, r[j:], j+1); ok {
					toks = append(toks, tok)
				}
				return toks
			}
			toks = append(toks, Token{Text: word, Kind: Word, Begin: begin, End: end})
			stmtStart = false
			i = j
		}
	}
	if s.inString {
		s.str.WriteByte('\n')
	}
	return elideContinuation(toks)
}

// startSQL begins SQL accumulation with the remainder of the keyword line.
// col is the column of the first rune of rest.
func (s *Scanner) startSQL(n int, rest []rune, col int) (Token, bool) {
	s.inSQL = true
	s.sql.Reset()
	s.sqlBegin = Position{Line: n, Column: col}

	frag := strings.TrimRightFunc(string(rest), unicode.IsSpace)
	if cut, ok := strings.CutSuffix(frag, "+"); ok {
		s.sql.WriteString(strings.TrimRightFunc(cut, unicode.IsSpace))
		s.sql.WriteByte('\n')
		return Token{}, false
	}
	s.sql.WriteString(frag)
	return s.flushSQL(Position{Line: n, Column: max(col, col+utf8.RuneCountInString(frag)-1)}), true
}

func (s *Scanner) continueSQL(n int, line string) []Token {
	frag := strings.TrimRightFunc(line, unicode.IsSpace)
	if cut, ok := strings.CutSuffix(frag, "+"); ok {
		s.sql.WriteString(strings.TrimRightFunc(cut, unicode.IsSpace))
		s.sql.WriteByte('\n')
		return nil
	}
	s.sql.WriteString(frag)
	return []Token{s.flushSQL(Position{Line: n, Column: max(1, utf8.RuneCountInString(frag))})}
}

func (s *Scanner) flushSQL(end Position) Token {
	tok := Token{
		Text:  s.sql.String(),
		Kind:  SQL,
		Begin: s.sqlBegin,
		End:   end,
	}
	s.inSQL = false
	s.sql.Reset()
	return tok
}

// elideContinuation drops a trailing '+' or '-' word and flags the token
// before it.
func elideContinuation(toks []Token) []Token {
	if len(toks) == 0 {
		return toks
	}
	last := toks[len(toks)-1]
	if last.Kind != Word || (last.Text != "+" && last.Text != "-") {
		return toks
	}
	toks = toks[:len(toks)-1]
	if len(toks) > 0 {
		toks[len(toks)-1].Continued = true
	}
	return toks
}

func isSeparator(r rune) bool {
	return r == '\'' || r == '.' || unicode.IsSpace(r)
}

func indexRune(r []rune, from int, target rune) int {
	for i := from; i < len(r); i++ {
		if r[i] == target {
			return i
		}
	}
	return -1
}
