package eztscan

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/jward/eztscan/internal/config"
	"github.com/jward/eztscan/internal/emit"
	"github.com/jward/eztscan/internal/resolve"
	"github.com/jward/eztscan/internal/source"
	"github.com/jward/eztscan/internal/store"
	"github.com/jward/eztscan/internal/symbols"
)

// Engine orchestrates the eztscan pipeline: file discovery, the light pass
// that registers every module, the full pass that parses, resolves and
// emits each module, and query access to the resulting graph.
type Engine struct {
	store         *store.Store
	logger        *slog.Logger
	encoding      string
	extensions    map[string]bool
	workers       int
	moduleTimeout time.Duration

	// useParallel enables the parallel light and full passes.
	useParallel bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithEncoding sets the IANA charset used to decode sources.
func WithEncoding(charset string) Option {
	return func(e *Engine) {
		e.encoding = charset
	}
}

// WithExtensions restricts discovery to files with the given extensions.
func WithExtensions(exts ...string) Option {
	return func(e *Engine) {
		e.extensions = make(map[string]bool, len(exts))
		for _, ext := range exts {
			e.extensions[strings.ToLower(ext)] = true
		}
	}
}

// WithWorkers bounds the number of modules processed at once.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithParallel controls parallel processing. When true (default), both
// passes use a worker pool and a single goroutine commits batches to
// SQLite. Set to false for serial mode.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithModuleTimeout bounds the full pass of a single module. A module that
// runs out of time is treated as a parse failure. Zero disables the limit.
func WithModuleTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.moduleTimeout = d
	}
}

// New creates an Engine backed by a SQLite database at dbPath.
func New(dbPath string, opts ...Option) (*Engine, error) {
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("eztscan: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("eztscan: migrate: %w", err)
	}

	e := &Engine{
		store:         s,
		logger:        slog.New(slog.DiscardHandler),
		encoding:      config.DefaultEncoding,
		workers:       runtime.NumCPU(),
		moduleTimeout: config.DefaultModuleTimeout,
		useParallel:   true,
	}
	WithExtensions(strings.Split(config.DefaultExtensions, ",")...)(e)
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *Store {
	return e.store
}

// Query returns a new QueryBuilder wrapping the Store.
func (e *Engine) Query() *QueryBuilder {
	return &QueryBuilder{store: e.store}
}

// Report summarizes one indexing run.
type Report struct {
	RunID   string
	Files   int // files read
	Modules int // modules emitted
	Failed  []ModuleFailure
	Stats   emit.Stats

	// Ambiguities lists the CALLs whose target was chosen among several
	// equally close modules.
	Ambiguities []resolve.Ambiguity
}

// ModuleFailure records a module that could not be read or parsed.
type ModuleFailure struct {
	Path string
	Err  error
}

// unit carries one module through both passes.
type unit struct {
	path    string
	file    *source.File
	module  *symbols.Module
	fileID  int64
	metrics store.Metrics
	lines   int
	err     error // read failure
}

// IndexFiles indexes the given paths as one closed set of modules.
//
//  1. Light pass: read and classify every module, then register them in
//     input order.
//  2. Serial: record files, drop their previous graph and create the
//     module objects.
//  3. Full pass: parse, resolve and emit each module into its own batch;
//     batches are committed one at a time.
//
// Read and parse failures are logged and reported per module; they never
// stop other modules. The returned error covers storage failures and
// cancellation.
func (e *Engine) IndexFiles(ctx context.Context, paths []string) (*Report, error) {
	run, err := e.store.BeginRun()
	if err != nil {
		return nil, err
	}
	rep := &Report{RunID: run.ID}
	e.logger.Info("indexing", "run", run.ID, "files", len(paths))

	units, err := e.lightPass(ctx, dedupe(paths))
	if err != nil {
		return nil, err
	}

	lib := symbols.NewLibrary()
	em := emit.New(e.logger, nil)
	var (
		errs  []error
		ready []*unit
	)
	for _, u := range units {
		if u.err != nil {
			e.fail(rep, u, u.err)
			continue
		}
		rep.Files++
		if err := lib.Register(u.module); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := e.prepare(em, run, u); err != nil {
			errs = append(errs, fmt.Errorf("prepare %s: %w", u.path, err))
			continue
		}
		ready = append(ready, u)
	}

	if e.useParallel {
		errs = append(errs, e.fullPassParallel(ctx, lib, em, ready, rep)...)
	} else {
		errs = append(errs, e.fullPassSerial(ctx, lib, em, ready, rep)...)
	}

	rep.Stats = em.Stats()
	run.Files = rep.Files
	run.Objects = int(rep.Stats.Objects)
	run.Edges = int(rep.Stats.Edges)
	run.Failures = len(rep.Failed) + int(rep.Stats.Failures)
	if err := e.store.FinishRun(run); err != nil {
		errs = append(errs, err)
	}
	e.logger.Info("indexed", "run", run.ID, "modules", rep.Modules, "failed", len(rep.Failed),
		"objects", rep.Stats.Objects, "edges", rep.Stats.Edges)

	if err := ctx.Err(); err != nil {
		return rep, err
	}
	if len(errs) > 0 {
		return rep, fmt.Errorf("indexing had %d error(s): %w", len(errs), errs[0])
	}
	return rep, nil
}

// prepare records the file of u, removes what a previous run stored for
// it and creates its module object.
func (e *Engine) prepare(em *emit.Emitter, run *store.Run, u *unit) error {
	fileID, err := e.store.UpsertFile(&store.File{
		Path:        u.path,
		Hash:        u.file.Hash,
		Encoding:    u.file.Encoding,
		LineCount:   u.lines,
		LastIndexed: time.Now(),
		RunID:       run.ID,
	})
	if err != nil {
		return err
	}
	u.fileID = fileID
	if err := e.store.DeleteFileData(fileID); err != nil {
		return err
	}
	_, err = em.Module(e.store, u.module, emit.ModuleInfo{
		FileID:  &u.fileID,
		Metrics: u.metrics,
		Lines:   u.lines,
	})
	return err
}

func (e *Engine) fail(rep *Report, u *unit, err error) {
	e.logger.Warn("module skipped", "path", u.path, "error", err)
	rep.Failed = append(rep.Failed, ModuleFailure{Path: u.path, Err: err})
}

func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		clean := filepath.Clean(p)
		if seen[clean] {
			continue
		}
		seen[clean] = true
		out = append(out, clean)
	}
	return out
}

// IndexDirectory discovers source files under root and indexes them.
// Uses git ls-files when available (respects .gitignore).
// Falls back to a filesystem walk skipping hidden directories.
func (e *Engine) IndexDirectory(ctx context.Context, root string) (*Report, error) {
	paths, err := e.gitListFiles(root)
	if err != nil {
		paths, err = e.walkListFiles(root)
		if err != nil {
			return nil, err
		}
	}
	return e.IndexFiles(ctx, paths)
}

func (e *Engine) isSource(path string) bool {
	return e.extensions[strings.ToLower(filepath.Ext(path))]
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) files under root.
func (e *Engine) gitListFiles(root string) ([]string, error) {
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		path := filepath.Join(root, line)
		if e.isSource(path) {
			paths = append(paths, path)
		}
	}
	return paths, nil
}

// walkListFiles discovers files by walking the filesystem, skipping hidden
// directories.
func (e *Engine) walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if e.isSource(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}
