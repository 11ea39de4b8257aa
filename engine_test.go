package eztscan

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/eztscan/internal/lexer"
	"github.com/jward/eztscan/internal/testutil"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	e, err := New(dbPath, append([]Option{WithLogger(testutil.NewTestLogger(t))}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

// writeSources writes files under dir and returns their paths in the order
// given.
func writeSources(t *testing.T, dir string, files ...string) []string {
	t.Helper()
	require.Zero(t, len(files)%2, "name/content pairs")
	var paths []string
	for i := 0; i < len(files); i += 2 {
		path := filepath.Join(dir, filepath.FromSlash(files[i]))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(files[i+1]), 0o644))
		paths = append(paths, path)
	}
	return paths
}

func moduleGUID(path, name string) string {
	return path + ".Eztprogram." + name
}

func guids(objs []*Object) []string {
	out := make([]string, 0, len(objs))
	for _, o := range objs {
		out = append(out, o.GUID)
	}
	return out
}

func linkTargets(links []Link) []string {
	out := make([]string, 0, len(links))
	for _, l := range links {
		out = append(out, string(l.Edge.Kind)+" "+l.Object.GUID)
	}
	return out
}

const mainSource = `* main program
FILE IN1
  IN-KEY 1 5 N
P1. PROC
  GET IN1
END-PROC
JOB INPUT IN1
  PERFORM P1
  CALL SUBPGM
  CALL MISSING
  CALL missing
`

func TestNew_InvalidPath(t *testing.T) {
	t.Parallel()
	_, err := New("/nonexistent/dir/db.sqlite")
	require.Error(t, err)
}

func TestWithExtensions(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, WithExtensions(".EZT", ".mac"))
	assert.True(t, e.isSource("a/B.ezt"))
	assert.True(t, e.isSource("a/B.MAC"))
	assert.False(t, e.isSource("a/B.esy"))
}

func TestIndexFiles_BuildsGraph(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	dir := t.TempDir()
	paths := writeSources(t, dir,
		"MAIN.ezt", mainSource,
		"SUBPGM.ezt", "DISPLAY 'SUB'\n",
	)

	rep, err := e.IndexFiles(context.Background(), paths)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Files)
	assert.Equal(t, 2, rep.Modules)
	assert.Empty(t, rep.Failed)
	assert.NotEmpty(t, rep.RunID)

	q := e.Query()
	mod := moduleGUID(paths[0], "MAIN")
	p1 := mod + ".Easyproc.P1"
	in1 := mod + ".Easyfile.IN1"

	callees, err := q.Callees(mod)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"call " + p1,
		"call " + moduleGUID(paths[1], "SUBPGM"),
		"call " + mod + ".EasyCalltoProgram.MISSING",
		"call " + mod + ".EasyCalltoProgram.MISSING",
	}, linkTargets(callees))

	acc, err := q.Accesses(p1)
	require.NoError(t, err)
	assert.Equal(t, []string{"read-access " + in1}, linkTargets(acc))
	assert.Equal(t, 5, acc[0].Edge.StartLine)

	callers, err := q.Callers(p1)
	require.NoError(t, err)
	require.Len(t, callers, 1)
	assert.Equal(t, mod, callers[0].Object.GUID)
	assert.Equal(t, 8, callers[0].Edge.StartLine)

	prog, err := q.ObjectByGUID(mod)
	require.NoError(t, err)
	require.NotNil(t, prog)
	assert.Equal(t, 1, prog.StartLine)
	assert.Equal(t, 11, prog.EndLine)
	assert.Equal(t, 1, prog.HeaderCommentLines)
	require.NotNil(t, prog.FileID)

	f, err := e.Store().FileByPath(paths[0])
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, *prog.FileID, f.ID)
	assert.Equal(t, 11, f.LineCount)
	assert.Equal(t, rep.RunID, f.RunID)
}

func TestIndexFiles_PutWritesFile(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	paths := writeSources(t, t.TempDir(), "PGM.ezt", `
*
FILE ME7232
  EXT-CRITERIA2                     1     5 N
  EXT-BANK2                         6     2 N
  EXT-AMOUNT2                      44    10 P 2


EXTRACT-ROUTINE. PROC
  PUT ME7232
END-PROC
`)
	_, err := e.IndexFiles(context.Background(), paths)
	require.NoError(t, err)

	mod := moduleGUID(paths[0], "PGM")
	acc, err := e.Query().Accesses(mod + ".Easyproc.EXTRACT-ROUTINE")
	require.NoError(t, err)
	assert.Equal(t, []string{"write-access " + mod + ".Easyfile.ME7232"}, linkTargets(acc))
}

func TestIndexFiles_Placeholders(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	paths := writeSources(t, t.TempDir(), "MAIN.ezt", mainSource)
	rep, err := e.IndexFiles(context.Background(), paths)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rep.Stats.Placeholders, "SUBPGM and MISSING")

	phs, err := e.Query().Placeholders()
	require.NoError(t, err)
	require.Len(t, phs, 2)
	byName := make(map[string]Placeholder)
	for _, p := range phs {
		byName[p.Object.Name] = p
	}
	missing := byName["MISSING"]
	require.NotNil(t, missing.Object)
	assert.Equal(t, "MISSING", missing.Object.Properties[PropProgramName])
	assert.Len(t, missing.Calls, 2)
	assert.Equal(t, TypeUnknownProgram, missing.Object.Type)
}

func TestIndexFiles_CallPrefersClosestModule(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	paths := writeSources(t, t.TempDir(),
		"A.ezt", "DISPLAY 'TOP'\n",
		"sub/A.ezt", "DISPLAY 'SUB'\n",
		"sub/MAIN.ezt", "CALL A\n",
	)
	rep, err := e.IndexFiles(context.Background(), paths)
	require.NoError(t, err)
	assert.Empty(t, rep.Ambiguities)

	callees, err := e.Query().Callees(moduleGUID(paths[2], "MAIN"))
	require.NoError(t, err)
	assert.Equal(t, []string{"call " + moduleGUID(paths[1], "A")}, linkTargets(callees))
}

func TestIndexFiles_ReportsAmbiguousCall(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	paths := writeSources(t, t.TempDir(),
		"x/A.ezt", "DISPLAY 'X'\n",
		"y/A.ezt", "DISPLAY 'Y'\n",
		"MAIN.ezt", "CALL A\n",
	)
	rep, err := e.IndexFiles(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, rep.Ambiguities, 1)
	assert.Equal(t, []string{paths[0], paths[1]}, rep.Ambiguities[0].Candidates)

	callees, err := e.Query().Callees(moduleGUID(paths[2], "MAIN"))
	require.NoError(t, err)
	assert.Equal(t, []string{"call " + moduleGUID(paths[0], "A")}, linkTargets(callees),
		"registration order breaks the tie")
}

func TestIndexFiles_ParseFailureIsIsolated(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	paths := writeSources(t, t.TempDir(),
		"BAD.ezt", "FILE F1\nDISPLAY 'OPEN\n",
		"GOOD.ezt", "CALL BAD\n",
	)
	rep, err := e.IndexFiles(context.Background(), paths)
	require.NoError(t, err, "parse failures are reported, not returned")
	assert.Equal(t, 1, rep.Modules)
	require.Len(t, rep.Failed, 1)
	assert.Equal(t, paths[0], rep.Failed[0].Path)
	require.ErrorIs(t, rep.Failed[0].Err, lexer.ErrUnterminatedString)

	q := e.Query()
	bad, err := q.ObjectByGUID(moduleGUID(paths[0], "BAD"))
	require.NoError(t, err)
	require.NotNil(t, bad, "the module object survives its parse failure")
	kids, err := q.Children(bad.GUID)
	require.NoError(t, err)
	assert.Empty(t, kids)

	callees, err := q.Callees(moduleGUID(paths[1], "GOOD"))
	require.NoError(t, err)
	assert.Equal(t, []string{"call " + bad.GUID}, linkTargets(callees))

	run, err := e.Store().LastRun()
	require.NoError(t, err)
	assert.Equal(t, 1, run.Failures)
}

func TestIndexFiles_UnreadableFile(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	dir := t.TempDir()
	paths := writeSources(t, dir, "OK.ezt", "DISPLAY 'OK'\n")
	paths = append(paths, filepath.Join(dir, "GONE.ezt"))

	rep, err := e.IndexFiles(context.Background(), paths)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Files)
	require.Len(t, rep.Failed, 1)
	require.ErrorIs(t, rep.Failed[0].Err, os.ErrNotExist)
}

func TestIndexFiles_ModuleTimeout(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, WithModuleTimeout(time.Nanosecond))
	paths := writeSources(t, t.TempDir(), "BIG.ezt", "FILE F1\n"+strings.Repeat("GET F1\n", 200000))

	rep, err := e.IndexFiles(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, rep.Failed, 1)
	require.ErrorIs(t, rep.Failed[0].Err, context.DeadlineExceeded)
	assert.Zero(t, rep.Modules)
}

func TestIndexFiles_CanceledContext(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	paths := writeSources(t, t.TempDir(), "A.ezt", "DISPLAY 'A'\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.IndexFiles(ctx, paths)
	require.ErrorIs(t, err, context.Canceled)
}

func TestIndexFiles_SerialMatchesParallel(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	paths := writeSources(t, dir,
		"MAIN.ezt", mainSource,
		"SUBPGM.ezt", "P2. PROC\n  SQL SELECT 1\nEND-PROC\nPERFORM P2\n",
		"lib/UTIL.mac", "MACRO\nDISPLAY 'M'\n",
		"lib/CALLER.ezt", "CALL UTIL\nCALL MAIN\n",
	)

	snapshot := func(e *Engine) ([]string, map[EdgeKind]int) {
		rep, err := e.IndexFiles(context.Background(), paths)
		require.NoError(t, err)
		require.Empty(t, rep.Failed)
		objs, err := e.Query().Objects("")
		require.NoError(t, err)
		s, err := e.Query().Summary()
		require.NoError(t, err)
		return guids(objs), s.Edges
	}

	serialObjs, serialEdges := snapshot(newTestEngine(t, WithParallel(false)))
	parallelObjs, parallelEdges := snapshot(newTestEngine(t, WithParallel(true), WithWorkers(4)))
	assert.Equal(t, serialObjs, parallelObjs)
	assert.Equal(t, serialEdges, parallelEdges)
	assert.Positive(t, serialEdges[EdgeCall])
}

func TestIndexFiles_ReindexIsIdempotent(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	paths := writeSources(t, t.TempDir(),
		"MAIN.ezt", mainSource,
		"SUBPGM.ezt", "DISPLAY 'SUB'\n",
	)

	_, err := e.IndexFiles(context.Background(), paths)
	require.NoError(t, err)
	first, err := e.Query().Summary()
	require.NoError(t, err)
	firstObjs, err := e.Query().Objects("")
	require.NoError(t, err)

	_, err = e.IndexFiles(context.Background(), paths)
	require.NoError(t, err)
	second, err := e.Query().Summary()
	require.NoError(t, err)
	secondObjs, err := e.Query().Objects("")
	require.NoError(t, err)

	assert.Equal(t, first.Objects, second.Objects)
	assert.Equal(t, first.Edges, second.Edges)
	assert.Equal(t, guids(firstObjs), guids(secondObjs))
	assert.Equal(t, 2, second.Files)
}

func TestIndexFiles_ReindexDropsRemovedSymbols(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	dir := t.TempDir()
	paths := writeSources(t, dir, "PGM.ezt", "PERFORM OLD\nOLD. PROC\nEND-PROC\n")
	_, err := e.IndexFiles(context.Background(), paths)
	require.NoError(t, err)

	writeSources(t, dir, "PGM.ezt", "PERFORM NEW\nNEW. PROC\nEND-PROC\n")
	_, err = e.IndexFiles(context.Background(), paths)
	require.NoError(t, err)

	procs, err := e.Query().Objects(TypeProcedure)
	require.NoError(t, err)
	require.Len(t, procs, 1)
	assert.Equal(t, "NEW", procs[0].Name)

	s, err := e.Query().Summary()
	require.NoError(t, err)
	assert.Equal(t, 1, s.Edges[EdgeCall])
}

func TestIndexFiles_DuplicatePaths(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	paths := writeSources(t, t.TempDir(), "A.ezt", "DISPLAY 'A'\n")
	rep, err := e.IndexFiles(context.Background(), []string{paths[0], paths[0]})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Files)
	assert.Equal(t, 1, rep.Modules)
}

func TestIndexDirectory_FiltersExtensionsAndHiddenDirs(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, WithExtensions(".ezt", ".esy"))
	dir := t.TempDir()
	writeSources(t, dir,
		"A.ezt", "DISPLAY 'A'\n",
		"sub/B.ESY", "CALL A\n",
		"notes.txt", "not a program\n",
		"C.mac", "MACRO\n",
		".hidden/D.ezt", "DISPLAY 'D'\n",
	)

	rep, err := e.IndexDirectory(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Files)

	files, err := e.Query().Files()
	require.NoError(t, err)
	var names []string
	for _, f := range files {
		rel, err := filepath.Rel(dir, f.Path)
		require.NoError(t, err)
		names = append(names, filepath.ToSlash(rel))
	}
	slices.Sort(names)
	assert.Equal(t, []string{"A.ezt", "sub/B.ESY"}, names)
}

func TestIndexFiles_DecodesEBCDIC(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, WithEncoding("IBM037"))
	// "FILE F1\n" followed by "GET F1\n" in code page 037.
	src := []byte{0xC6, 0xC9, 0xD3, 0xC5, 0x40, 0xC6, 0xF1, 0x25, 0xC7, 0xC5, 0xE3, 0x40, 0xC6, 0xF1, 0x25}
	path := filepath.Join(t.TempDir(), "EBC.ezt")
	require.NoError(t, os.WriteFile(path, src, 0o644))

	_, err := e.IndexFiles(context.Background(), []string{path})
	require.NoError(t, err)

	acc, err := e.Query().Accesses(moduleGUID(path, "EBC"))
	require.NoError(t, err)
	assert.Equal(t, []string{"read-access " + moduleGUID(path, "EBC") + ".Easyfile.F1"}, linkTargets(acc))
}
