package lexer

import (
	"fmt"
	"strings"
)

// Kind classifies a token.
type Kind int

const (
	Comment Kind = iota // whole-line comment starting with '*'
	Keyword             // keyword recognized by the lexer itself (only SQL)
	Word                // generic word, including '.' terminators
	String              // quoted literal, possibly spanning lines
	SQL                 // raw SQL text following the SQL keyword
)

func (k Kind) String() string {
	switch k {
	case Comment:
		return "comment"
	case Keyword:
		return "keyword"
	case Word:
		return "word"
	case String:
		return "string"
	case SQL:
		return "sql"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Position is a 1-based line/column location.
type Position struct {
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token is a positioned lexical unit.
type Token struct {
	Text  string
	Kind  Kind
	Begin Position
	End   Position

	// Continued is set on the last token of a line that ended with an
	// elided continuation marker.
	Continued bool
}

// IsCode reports whether the token contributes to code (not a comment).
func (t Token) IsCode() bool {
	return t.Kind != Comment
}

// Is reports whether the token is a word or keyword equal to text, ignoring case.
func (t Token) Is(text string) bool {
	if t.Kind != Word && t.Kind != Keyword {
		return false
	}
	return strings.EqualFold(t.Text, text)
}

func (t Token) String() string {
	return fmt.Sprintf("%s %q [%s-%s]", t.Kind, t.Text, t.Begin, t.End)
}
