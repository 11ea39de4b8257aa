package resolve

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/eztscan/internal/parser"
	"github.com/jward/eztscan/internal/symbols"
)

func newModule(t *testing.T, lib *symbols.Library, path, text string) *symbols.Module {
	t.Helper()
	m := symbols.NewModule(path)
	require.NoError(t, lib.Register(m))
	require.NoError(t, m.FullParse(context.Background(), text))
	return m
}

func bound(t *testing.T, b *Bindings, id *parser.Identifier) []*symbols.Symbol {
	t.Helper()
	require.NotNil(t, id)
	syms, ok := b.Get(id)
	require.True(t, ok, "identifier %s not bound", id.Name())
	return syms
}

func TestModule_ResolvesProcedure(t *testing.T) {
	t.Parallel()
	lib := symbols.NewLibrary()
	m := newModule(t, lib, "PGM.ezt", `
*
PERFORM close-cuxad-curs

CLOSE-CUXAD-CURS. PROC.
END-PROC.
`)
	b, amb, err := Module(m, lib)
	require.NoError(t, err)
	assert.Empty(t, amb)

	proc := m.Local("CLOSE-CUXAD-CURS", symbols.KindProcedure)
	require.Len(t, proc, 1)
	perform := m.Root.Find(parser.Perform)[0]
	assert.Equal(t, proc, bound(t, b, perform.Target))
}

func TestModule_ResolvesFileFromProcedure(t *testing.T) {
	t.Parallel()
	lib := symbols.NewLibrary()
	m := newModule(t, lib, "PGM.ezt", `
*
FILE ME7232
  EXT-CRITERIA2                     1     5 N
  EXT-BANK2                         6     2 N
  EXT-AMOUNT2                      44    10 P 2


EXTRACT-ROUTINE. PROC
  PUT ME7232
END-PROC
`)
	b, _, err := Module(m, lib)
	require.NoError(t, err)

	file := m.Local("ME7232", symbols.KindFile)
	require.Len(t, file, 1)
	proc := m.Local("EXTRACT-ROUTINE", symbols.KindProcedure)[0]
	put := proc.Node.Find(parser.Put)[0]
	assert.Equal(t, file, bound(t, b, put.Target))
}

func TestModule_TermKinds(t *testing.T) {
	t.Parallel()
	lib := symbols.NewLibrary()
	m := newModule(t, lib, "PGM.ezt", `FILE IN1
FILE OUT1
FILE WORK1
REPORT RPT1
P1. PROC
  GET IN1
  POINT IN1 GE KEY1
  WRITE OUT1 FROM IN1
  PUT OUT1
END-PROC
SORT IN1 TO WORK1
JOB INPUT WORK1
  START P1
  RESTART P1
  FINISH P1
  PRINT RPT1
  GET NOPE
`)
	b, _, err := Module(m, lib)
	require.NoError(t, err)

	in1 := m.Local("IN1")[0]
	out1 := m.Local("OUT1")[0]
	work1 := m.Local("WORK1")[0]
	rpt1 := m.Local("RPT1")[0]
	p1 := m.Local("P1")[0]

	gets := m.Root.Find(parser.Get)
	require.Len(t, gets, 2)
	assert.Equal(t, []*symbols.Symbol{in1}, bound(t, b, gets[0].Target))
	assert.Empty(t, bound(t, b, gets[1].Target))

	point := m.Root.Find(parser.Point)[0]
	assert.Equal(t, []*symbols.Symbol{in1}, bound(t, b, point.Target))

	write := m.Root.Find(parser.Write)[0]
	assert.Equal(t, []*symbols.Symbol{out1}, bound(t, b, write.Target))
	assert.Equal(t, []*symbols.Symbol{in1}, bound(t, b, write.From))

	sort := m.Root.Find(parser.Sort)[0]
	assert.Equal(t, []*symbols.Symbol{in1}, bound(t, b, sort.From))
	assert.Equal(t, []*symbols.Symbol{work1}, bound(t, b, sort.To))

	job := m.Root.Find(parser.Job)[0]
	assert.Equal(t, []*symbols.Symbol{work1}, bound(t, b, job.Target))

	for _, n := range append(m.Root.Find(parser.Start), m.Root.Find(parser.Finish)...) {
		assert.Equal(t, []*symbols.Symbol{p1}, bound(t, b, n.Target))
	}
	assert.Len(t, m.Root.Find(parser.Start), 2)

	prt := m.Root.Find(parser.Print)[0]
	assert.Equal(t, []*symbols.Symbol{rpt1}, bound(t, b, prt.Target))
}

func TestModule_KindFilter(t *testing.T) {
	t.Parallel()
	lib := symbols.NewLibrary()
	m := newModule(t, lib, "PGM.ezt", "FILE X1\nPERFORM X1\n")
	b, _, err := Module(m, lib)
	require.NoError(t, err)
	perform := m.Root.Find(parser.Perform)[0]
	assert.Empty(t, bound(t, b, perform.Target))
}

func TestModule_LocalAmbiguityKeepsAll(t *testing.T) {
	t.Parallel()
	lib := symbols.NewLibrary()
	m := newModule(t, lib, "PGM.ezt", "PERFORM DUP\nDUP. PROC\nEND-PROC\nDUP. PROC\nEND-PROC\n")
	b, amb, err := Module(m, lib)
	require.NoError(t, err)
	assert.Empty(t, amb)
	perform := m.Root.Find(parser.Perform)[0]
	assert.Len(t, bound(t, b, perform.Target), 2)
}

func TestModule_CallAcrossModules(t *testing.T) {
	t.Parallel()
	lib := symbols.NewLibrary()
	top := newModule(t, lib, "A.ezt", "DISPLAY 'TOP'\n")
	sub := newModule(t, lib, filepath.Join("sub", "A.ezt"), "DISPLAY 'SUB'\n")
	caller := newModule(t, lib, filepath.Join("sub", "MAIN.ezt"), "CALL A\nCALL NOPE\n")

	b, amb, err := Module(caller, lib)
	require.NoError(t, err)
	assert.Empty(t, amb)

	calls := caller.Root.Find(parser.Call)
	require.Len(t, calls, 2)
	assert.Equal(t, []*symbols.Symbol{sub.Symbol}, bound(t, b, calls[0].Target))
	assert.NotContains(t, bound(t, b, calls[0].Target), top.Symbol)
	assert.Empty(t, bound(t, b, calls[1].Target))
}

func TestModule_CallAmbiguityReported(t *testing.T) {
	t.Parallel()
	lib := symbols.NewLibrary()
	first := newModule(t, lib, filepath.Join("p", "C.ezt"), "DISPLAY 'P'\n")
	newModule(t, lib, filepath.Join("q", "C.ezt"), "DISPLAY 'Q'\n")
	caller := newModule(t, lib, "MAIN.ezt", "CALL C\n")

	b, amb, err := Module(caller, lib)
	require.NoError(t, err)
	require.Len(t, amb, 1)
	assert.Equal(t, "C", amb[0].Ref)
	assert.Equal(t, []string{filepath.Join("p", "C.ezt"), filepath.Join("q", "C.ezt")}, amb[0].Candidates)
	assert.Contains(t, amb[0].String(), "chose "+filepath.Join("p", "C.ezt"))

	call := caller.Root.Find(parser.Call)[0]
	assert.Equal(t, []*symbols.Symbol{first.Symbol}, bound(t, b, call.Target))
}

func TestModule_NotParsed(t *testing.T) {
	t.Parallel()
	lib := symbols.NewLibrary()
	m := symbols.NewModule("PGM.ezt")
	require.NoError(t, lib.Register(m))
	_, _, err := Module(m, lib)
	require.ErrorIs(t, err, ErrNotParsed)
}

func TestBindings_SetOnce(t *testing.T) {
	t.Parallel()
	b := NewBindings()
	id := &parser.Identifier{}
	_, ok := b.Get(id)
	assert.False(t, ok)

	require.NoError(t, b.Bind(id, nil))
	syms, ok := b.Get(id)
	assert.True(t, ok)
	assert.Empty(t, syms)

	err := b.Bind(id, []*symbols.Symbol{symbols.NewModule("X.ezt").Symbol})
	require.ErrorIs(t, err, ErrAlreadyBound)
	syms, _ = b.Get(id)
	assert.Empty(t, syms)
	assert.Equal(t, 1, b.Len())
}

func TestBindings_CopiesInput(t *testing.T) {
	t.Parallel()
	b := NewBindings()
	id := &parser.Identifier{}
	in := []*symbols.Symbol{symbols.NewModule("X.ezt").Symbol}
	require.NoError(t, b.Bind(id, in))
	in[0] = nil
	syms, _ := b.Get(id)
	assert.NotNil(t, syms[0])
}
