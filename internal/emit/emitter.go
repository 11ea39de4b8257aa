// Package emit materializes the symbols of resolved modules at a sink and
// emits the typed call and access edges between them.
package emit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/jward/eztscan/internal/parser"
	"github.com/jward/eztscan/internal/resolve"
	"github.com/jward/eztscan/internal/store"
	"github.com/jward/eztscan/internal/symbols"
)

// ErrNoBody is returned when emitting a module that failed to parse.
var ErrNoBody = errors.New("module has no body")

// Stats is a snapshot of the emitter counters.
type Stats struct {
	Objects      int64
	Edges        int64
	Placeholders int64
	Skipped      int64 // edges whose target or source has no handle
	Failures     int64 // requests rejected by the sink
}

// ModuleInfo carries the file-level facts of a module object.
type ModuleInfo struct {
	FileID  *int64
	Metrics store.Metrics
	Lines   int
}

// Emitter writes objects and edges to sinks. One Emitter serves every
// module of a run and is safe for concurrent use as long as each module is
// emitted by one goroutine.
type Emitter struct {
	logger  *slog.Logger
	handles *Handles

	objects      atomic.Int64
	edges        atomic.Int64
	placeholders atomic.Int64
	skipped      atomic.Int64
	failures     atomic.Int64
}

// New returns an emitter recording handles in handles. A nil logger
// discards output; nil handles start an empty table.
func New(logger *slog.Logger, handles *Handles) *Emitter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if handles == nil {
		handles = NewHandles()
	}
	return &Emitter{logger: logger, handles: handles}
}

// Handles returns the handle table.
func (e *Emitter) Handles() *Handles {
	return e.handles
}

// Stats returns the current counters.
func (e *Emitter) Stats() Stats {
	return Stats{
		Objects:      e.objects.Load(),
		Edges:        e.edges.Load(),
		Placeholders: e.placeholders.Load(),
		Skipped:      e.skipped.Load(),
		Failures:     e.failures.Load(),
	}
}

// GUID builds the requested GUID of a child object.
func GUID(parent string, kind symbols.Kind, name string) string {
	return parent + "." + kind.MetamodelType() + "." + strings.ToUpper(name)
}

// Module materializes the module object of m. Its GUID is rooted at the
// module's file path.
func (e *Emitter) Module(sink store.Sink, m *symbols.Module, info ModuleInfo) (store.Handle, error) {
	obj := &store.Object{
		FileID:        info.FileID,
		GUID:          GUID(m.Path, symbols.KindModule, m.Name),
		Name:          m.Name,
		Type:          symbols.KindModule.MetamodelType(),
		QualifiedName: m.QualifiedName(),
		StartLine:     1,
		StartCol:      1,
		EndLine:       info.Lines,
		Metrics:       info.Metrics,
	}
	h, err := sink.CreateObject(obj)
	if err != nil {
		e.failures.Add(1)
		return "", fmt.Errorf("emit module %s: %w", m.Path, err)
	}
	e.handles.set(m.Symbol, h)
	e.objects.Add(1)
	return h, nil
}

// Emit materializes the symbols of m below its module object and emits
// the edges of every bound reference. The module object is created first
// when it does not exist yet. Sink rejections are logged and counted; they
// do not stop the module.
func (e *Emitter) Emit(ctx context.Context, sink store.Sink, m *symbols.Module, b *resolve.Bindings) error {
	if m.Root == nil {
		return fmt.Errorf("emit %s: %w", m.Path, ErrNoBody)
	}
	if _, ok := e.handles.Get(m.Symbol); !ok {
		info := ModuleInfo{Metrics: Measure(m.Root), Lines: m.Root.Span.End.Line}
		if _, err := e.Module(sink, m, info); err != nil {
			return err
		}
	}

	for _, c := range m.Children() {
		c.Walk(func(s *symbols.Symbol) { e.materialize(sink, m, s) })
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("emit %s: %w", m.Path, err)
	}

	w := &walker{
		ctx:          ctx,
		e:            e,
		sink:         sink,
		module:       m,
		bindings:     b,
		scopes:       []*symbols.Symbol{m.Symbol},
		placeholders: make(map[*symbols.Symbol]map[string]*symbols.Symbol),
	}
	parser.Walk(m.Root, w)
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("emit %s: %w", m.Path, err)
	}
	return nil
}

func (e *Emitter) materialize(sink store.Sink, m *symbols.Module, s *symbols.Symbol) {
	parent, ok := e.handles.Get(s.Parent)
	if !ok {
		e.skipped.Add(1)
		return
	}
	obj := e.object(parent, s)
	if s.Node != nil {
		obj.Metrics = Measure(s.Node)
		if s.Kind == symbols.KindSQL {
			obj.Properties = map[string]string{store.PropSQLQuery: s.Node.SQLText.Text}
		}
	}
	h, ok := e.create(sink, m, obj)
	if !ok {
		return
	}
	e.handles.set(s, h)
	if s.Kind == symbols.KindSQL {
		e.edge(sink, m, store.EdgeCall, parent, h, s.Span)
	}
}

func (e *Emitter) object(parent store.Handle, s *symbols.Symbol) *store.Object {
	return &store.Object{
		GUID:          GUID(string(parent), s.Kind, s.Name),
		ParentGUID:    string(parent),
		Name:          s.Name,
		Type:          s.Kind.MetamodelType(),
		QualifiedName: s.QualifiedName(),
		StartLine:     s.Span.Begin.Line,
		StartCol:      s.Span.Begin.Column,
		EndLine:       s.Span.End.Line,
		EndCol:        s.Span.End.Column,
	}
}

func (e *Emitter) create(sink store.Sink, m *symbols.Module, obj *store.Object) (store.Handle, bool) {
	h, err := sink.CreateObject(obj)
	if err != nil {
		e.failures.Add(1)
		e.logger.Warn("sink rejected object", "module", m.Path, "guid", obj.GUID, "error", err)
		return "", false
	}
	e.objects.Add(1)
	return h, true
}

func (e *Emitter) edge(sink store.Sink, m *symbols.Module, kind store.EdgeKind, src, dst store.Handle, span parser.Span) {
	err := sink.CreateEdge(&store.Edge{
		Kind:      kind,
		Source:    src,
		Target:    dst,
		StartLine: span.Begin.Line,
		StartCol:  span.Begin.Column,
		EndLine:   span.End.Line,
		EndCol:    span.End.Column,
	})
	if err != nil {
		e.failures.Add(1)
		e.logger.Warn("sink rejected edge", "module", m.Path, "kind", kind, "source", src, "target", dst, "error", err)
		return
	}
	e.edges.Add(1)
}
