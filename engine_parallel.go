package eztscan

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jward/eztscan/internal/emit"
	"github.com/jward/eztscan/internal/resolve"
	"github.com/jward/eztscan/internal/source"
	"github.com/jward/eztscan/internal/store"
	"github.com/jward/eztscan/internal/symbols"
)

// lightPass reads and classifies every path. Units come back in input
// order so registration order does not depend on scheduling.
func (e *Engine) lightPass(ctx context.Context, paths []string) ([]*unit, error) {
	reader := source.NewReader(e.encoding, e.logger)
	units := make([]*unit, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	if e.useParallel {
		g.SetLimit(e.workers)
	} else {
		g.SetLimit(1)
	}
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			u := &unit{path: path}
			units[i] = u
			f, err := reader.Read(path)
			if err != nil {
				u.err = err
				return nil
			}
			u.file = f
			u.module = symbols.NewModule(path)
			u.module.LightParse(gctx, f.Text)
			u.metrics, u.lines = emit.MeasureFile(f.Text)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("light pass: %w", err)
	}
	return units, nil
}

// result is the outcome of the full pass of one module.
type result struct {
	unit        *unit
	batch       *store.Batch
	ambiguities []resolve.Ambiguity
	err         error // parse failure or timeout
}

// fullPassParallel runs analyze on a worker pool. The calling goroutine is
// the only one committing batches to SQLite.
func (e *Engine) fullPassParallel(ctx context.Context, lib *symbols.Library, em *emit.Emitter, units []*unit, rep *Report) []error {
	if len(units) == 0 {
		return nil
	}
	numWorkers := max(min(e.workers, len(units)), 1)

	workCh := make(chan *unit, len(units))
	for _, u := range units {
		workCh <- u
	}
	close(workCh)

	resultCh := make(chan result, len(units))
	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for u := range workCh {
				resultCh <- e.analyze(ctx, lib, em, u)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(resultCh)
	}()

	var errs []error
	for res := range resultCh {
		if err := e.commit(res, rep); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (e *Engine) fullPassSerial(ctx context.Context, lib *symbols.Library, em *emit.Emitter, units []*unit, rep *Report) []error {
	var errs []error
	for _, u := range units {
		if err := e.commit(e.analyze(ctx, lib, em, u), rep); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// analyze parses, resolves and emits one module into a fresh batch.
func (e *Engine) analyze(ctx context.Context, lib *symbols.Library, em *emit.Emitter, u *unit) result {
	res := result{unit: u}
	if err := ctx.Err(); err != nil {
		res.err = err
		return res
	}
	mctx := ctx
	if e.moduleTimeout > 0 {
		var cancel context.CancelFunc
		mctx, cancel = context.WithTimeout(ctx, e.moduleTimeout)
		defer cancel()
	}

	m := u.module
	if err := m.FullParse(mctx, u.file.Text); err != nil {
		res.err = err
		return res
	}
	bindings, amb, err := resolve.Module(m, lib)
	if err != nil {
		m.Reset()
		res.err = err
		return res
	}
	for _, a := range amb {
		e.logger.Debug("ambiguous call", "module", a.Module, "ref", a.Ref, "candidates", a.Candidates)
	}
	res.ambiguities = amb

	batch := store.NewBatch(u.fileID)
	if err := em.Emit(mctx, batch, m, bindings); err != nil {
		m.Reset()
		res.err = err
		return res
	}
	res.batch = batch
	return res
}

// commit writes the batch of a successful module. Parse failures are only
// reported; a failed commit is an error.
func (e *Engine) commit(res result, rep *Report) error {
	if res.err != nil {
		e.fail(rep, res.unit, res.err)
		return nil
	}
	if err := e.store.CommitBatch(res.batch); err != nil {
		return fmt.Errorf("commit %s: %w", res.unit.path, err)
	}
	rep.Modules++
	rep.Ambiguities = append(rep.Ambiguities, res.ambiguities...)
	return nil
}
