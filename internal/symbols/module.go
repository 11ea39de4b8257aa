package symbols

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jward/eztscan/internal/parser"
)

// Module is the root scope of one source file.
type Module struct {
	*Symbol

	Path string

	// RootKind is set by the light pass.
	RootKind parser.Kind

	// Root is the AST produced by the full pass. It is nil before the full
	// pass and after a parse failure.
	Root *parser.Node

	library *Library
}

// NewModule returns an unregistered module for the file at path. Its name
// is the base name without extension.
func NewModule(path string) *Module {
	base := filepath.Base(path)
	m := &Module{Path: path}
	m.Symbol = newSymbol(strings.TrimSuffix(base, filepath.Ext(base)), KindModule, nil, m)
	return m
}

// Library returns the library the module is registered in, or nil.
func (m *Module) Library() *Library {
	return m.library
}

// LightParse classifies the module as Program or Macro.
func (m *Module) LightParse(_ context.Context, text string) {
	m.RootKind = parser.RootKind(text)
}

// FullParse parses text and rebuilds the module's symbol tree from it. On
// failure the module is left without a body.
func (m *Module) FullParse(ctx context.Context, text string) error {
	m.Reset()
	root, err := parser.Parse(ctx, text)
	if err != nil {
		return fmt.Errorf("parse %s: %w", m.Path, err)
	}
	m.Root = root
	m.RootKind = root.Kind
	m.Span = root.Span

	b := &builder{stack: []*Symbol{m.Symbol}}
	parser.Walk(root, b)
	return nil
}

// Reset discards the AST and every child symbol.
func (m *Module) Reset() {
	m.Root = nil
	m.children = nil
	m.index = make(map[string][]*Symbol)
}
