package symbols

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/eztscan/internal/parser"
)

func fullModule(t *testing.T, path, text string) *Module {
	t.Helper()
	m := NewModule(path)
	require.NoError(t, m.FullParse(context.Background(), text))
	return m
}

func names(syms []*Symbol) []string {
	out := make([]string, len(syms))
	for i, s := range syms {
		out[i] = s.QualifiedName()
	}
	return out
}

func TestNewModule_Name(t *testing.T) {
	t.Parallel()
	m := NewModule(filepath.Join("src", "PGM01.ezt"))
	assert.Equal(t, "PGM01", m.Name)
	assert.Equal(t, KindModule, m.Kind)
	assert.Equal(t, "PGM01", m.QualifiedName())
	assert.Same(t, m, m.Module())
}

func TestModule_LightParse(t *testing.T) {
	t.Parallel()
	m := NewModule("COPYA.mac")
	m.LightParse(context.Background(), "BEGIN_PROGRAM(COPYA)\n* c\nMACRO 0\nMEND\n")
	assert.Equal(t, parser.Macro, m.RootKind)
	assert.Nil(t, m.Root)
	assert.Empty(t, m.Children())

	p := NewModule("PGM.ezt")
	p.LightParse(context.Background(), "FILE F1\n")
	assert.Equal(t, parser.Program, p.RootKind)
}

func TestModule_FullParse(t *testing.T) {
	t.Parallel()
	m := fullModule(t, "PGM.ezt", `FILE FILEIN1 SQL
SQL INCLUDE (A, B) FROM T
FILE OUT1
REPORT RPT1
JOB INPUT FILEIN1
  SQL SELECT X FROM Y
MAIN-PROC. PROC
  SQL CLOSE C1
  GET FILEIN1
END-PROC
`)
	require.NotNil(t, m.Root)
	assert.Equal(t, []string{
		"PGM.FILEIN1",
		"PGM.INCLUDE (A, B) FROM",
		"PGM.OUT1",
		"PGM.RPT1",
		"PGM.SELECT X FROM Y",
		"PGM.MAIN-PROC",
	}, names(m.Children()))

	proc := m.Local("main-proc", KindProcedure)
	require.Len(t, proc, 1)
	assert.Equal(t, []string{"PGM.MAIN-PROC.CLOSE C1"}, names(proc[0].Children()))
	assert.Equal(t, KindSQL, proc[0].Children()[0].Kind)
	assert.Equal(t, 7, proc[0].Span.Begin.Line)
	assert.NotNil(t, proc[0].Node)
}

func TestModule_FullParseKeepsDuplicates(t *testing.T) {
	t.Parallel()
	m := fullModule(t, "PGM.ezt", "P1. PROC\nEND-PROC\np1. PROC\nEND-PROC\n")
	dups := m.Local("P1", KindProcedure)
	require.Len(t, dups, 2)
	assert.Equal(t, "P1", dups[0].Name)
	assert.Equal(t, "p1", dups[1].Name)

	assert.Same(t, dups[1], m.Declared("P1", KindProcedure, 3))
	assert.Same(t, dups[0], m.Declared("P1", KindProcedure, 1))
	assert.Nil(t, m.Declared("P1", KindProcedure, 99))
}

func TestModule_FullParseFailureResets(t *testing.T) {
	t.Parallel()
	m := fullModule(t, "PGM.ezt", "FILE F1\n")
	require.Len(t, m.Children(), 1)

	err := m.FullParse(context.Background(), "DISPLAY 'OPEN\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PGM.ezt")
	assert.Nil(t, m.Root)
	assert.Empty(t, m.Children())
}

func TestModule_Reparse(t *testing.T) {
	t.Parallel()
	m := fullModule(t, "PGM.ezt", "FILE F1\n")
	require.NoError(t, m.FullParse(context.Background(), "FILE F1\n"))
	assert.Len(t, m.Children(), 1)
}

func TestLibrary_Register(t *testing.T) {
	t.Parallel()
	lib := NewLibrary()
	m := NewModule("A.ezt")
	require.NoError(t, lib.Register(m))
	assert.Same(t, lib, m.Library())

	err := lib.Register(m)
	require.ErrorIs(t, err, ErrAlreadyRegistered)

	other := NewLibrary()
	require.ErrorIs(t, other.Register(m), ErrAlreadyRegistered)
	assert.Equal(t, 1, lib.Len())
	assert.Equal(t, 0, other.Len())
}

func register(t *testing.T, lib *Library, paths ...string) []*Module {
	t.Helper()
	var out []*Module
	for _, p := range paths {
		m := NewModule(p)
		require.NoError(t, lib.Register(m))
		out = append(out, m)
	}
	return out
}

func TestLibrary_FindPath(t *testing.T) {
	t.Parallel()
	lib := NewLibrary()
	mods := register(t, lib,
		"A.ezt",
		filepath.Join("sub", "A.ezt"),
		filepath.Join("x", "y", "B.ezt"),
		filepath.Join("z", "B.ezt"),
		filepath.Join("p", "C.ezt"),
		filepath.Join("q", "C.ezt"),
	)

	tests := []struct {
		name string
		ref  string
		from string
		want *Module
	}{
		{"closest wins", "A", filepath.Join("sub", "MAIN.ezt"), mods[1]},
		{"root caller", "A", "MAIN.ezt", mods[0]},
		{"case insensitive", "a", filepath.Join("sub", "MAIN.ezt"), mods[1]},
		{"extension ignored", "A.EZT", "MAIN.ezt", mods[0]},
		{"directory segment", "sub/A", "MAIN.ezt", mods[1]},
		{"directory segment mismatch ignored", "nope/A", "MAIN.ezt", mods[0]},
		{"deep directory", "/y/B", filepath.Join("z", "MAIN.ezt"), mods[2]},
		{"tie uses registration order", "C", "MAIN.ezt", mods[4]},
		{"unknown", "NOPE", "MAIN.ezt", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, lib.FindPath(tt.ref, tt.from))
		})
	}
}

func TestLibrary_Candidates(t *testing.T) {
	t.Parallel()
	lib := NewLibrary()
	mods := register(t, lib, filepath.Join("p", "C.ezt"), filepath.Join("q", "C.ezt"))
	assert.Equal(t, mods, lib.Candidates("C", "MAIN.ezt"))
	assert.Equal(t, mods[1:], lib.Candidates("q/C", "MAIN.ezt"))
}

func TestLookup_Chain(t *testing.T) {
	t.Parallel()
	m := fullModule(t, "PGM.ezt", `FILE F1
REPORT R1
P1. PROC
  SQL COMMIT
END-PROC
MAIN. PROC
END-PROC
`)
	p1 := m.Local("P1", KindProcedure)[0]

	t.Run("own children", func(t *testing.T) {
		got := Lookup(m.Symbol, "f1", KindFile)
		assert.Equal(t, []string{"PGM.F1"}, names(got))
	})
	t.Run("kind filter", func(t *testing.T) {
		assert.Empty(t, Lookup(m.Symbol, "F1", KindReport))
	})
	t.Run("parent scope", func(t *testing.T) {
		got := Lookup(p1, "R1", KindReport)
		assert.Equal(t, []string{"PGM.R1"}, names(got))
	})
	t.Run("innermost first", func(t *testing.T) {
		got := Lookup(p1, "COMMIT", KindSQL)
		assert.Equal(t, []string{"PGM.P1.COMMIT"}, names(got))
	})
	t.Run("missing", func(t *testing.T) {
		assert.Empty(t, Lookup(p1, "NOPE"))
	})
}

func TestStrategy_MainSubroutine(t *testing.T) {
	t.Parallel()
	m := NewModule("PGM.ezt")
	main := newSymbol("MAIN", KindProcedure, m.Symbol, m)
	m.Add(main)
	inner := newSymbol("HIDDEN", KindFile, main, m)
	main.Add(inner)

	assert.Empty(t, LookupChain{OwnChildren}.Lookup(m.Symbol, "HIDDEN"))
	got := LookupChain{OwnChildren, MainSubroutine}.Lookup(m.Symbol, "HIDDEN")
	assert.Equal(t, []*Symbol{inner}, got)
}

func TestStrategy_IncludedScopes(t *testing.T) {
	t.Parallel()
	m := NewModule("PGM.ezt")
	copybook := NewModule("COPY1.mac")
	f := newSymbol("CPYFILE", KindFile, copybook.Symbol, copybook)
	copybook.Add(f)
	m.Include(copybook.Symbol)

	assert.Empty(t, LookupChain{OwnChildren, ParentScope}.Lookup(m.Symbol, "CPYFILE"))
	got := Lookup(m.Symbol, "cpyfile", KindFile)
	assert.Equal(t, []*Symbol{f}, got)
}

func TestStrategy_ParentScope(t *testing.T) {
	t.Parallel()
	m := NewModule("PGM.ezt")
	f := newSymbol("F1", KindFile, m.Symbol, m)
	m.Add(f)
	p := newSymbol("P", KindProcedure, m.Symbol, m)
	m.Add(p)

	assert.Empty(t, LookupChain{OwnChildren}.Lookup(p, "F1"))
	assert.Equal(t, []*Symbol{f}, LookupChain{OwnChildren, ParentScope}.Lookup(p, "F1"))
}

func TestLookup_CycleGuard(t *testing.T) {
	t.Parallel()
	a := NewModule("A.ezt")
	b := NewModule("B.ezt")
	a.Include(b.Symbol)
	b.Include(a.Symbol)
	a.Include(a.Symbol)

	assert.Empty(t, Lookup(a.Symbol, "NOTHING"))
}

func TestNewPlaceholder(t *testing.T) {
	t.Parallel()
	m := fullModule(t, "PGM.ezt", "CALL SUBPGM\n")
	calls := m.Root.Find(parser.Call)
	require.Len(t, calls, 1)

	ph := NewPlaceholder(m.Symbol, calls[0].Target)
	assert.Equal(t, "SUBPGM", ph.Name)
	assert.Equal(t, KindUnknownProgram, ph.Kind)
	assert.Equal(t, "PGM.SUBPGM", ph.QualifiedName())
	assert.Same(t, m, ph.Module())
	assert.Empty(t, m.Children())
}

func TestKind_MetamodelType(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Eztprogram", KindModule.MetamodelType())
	assert.Equal(t, "Easyproc", KindProcedure.MetamodelType())
	assert.Equal(t, "Easyfile", KindFile.MetamodelType())
	assert.Equal(t, "Easyreport", KindReport.MetamodelType())
	assert.Equal(t, "EasySQLQuery", KindSQL.MetamodelType())
	assert.Equal(t, "EasyCalltoProgram", KindUnknownProgram.MetamodelType())
}
