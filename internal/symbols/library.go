package symbols

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// ErrAlreadyRegistered is returned when a module is added to a second
// library or twice to the same one.
var ErrAlreadyRegistered = errors.New("module already registered")

// Library holds every module of a run, indexed by uppercase base name.
type Library struct {
	mu      sync.RWMutex
	modules []*Module
	byName  map[string][]*Module
}

// NewLibrary returns an empty library.
func NewLibrary() *Library {
	return &Library{byName: make(map[string][]*Module)}
}

// Register adds m. Registration order is the final tie-break of FindPath.
func (l *Library) Register(m *Module) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if m.library != nil {
		return fmt.Errorf("register %s: %w", m.Path, ErrAlreadyRegistered)
	}
	m.library = l
	l.modules = append(l.modules, m)
	key := strings.ToUpper(m.Name)
	l.byName[key] = append(l.byName[key], m)
	return nil
}

// Modules returns the modules in registration order.
func (l *Library) Modules() []*Module {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]*Module(nil), l.modules...)
}

// Len returns the number of registered modules.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.modules)
}

// FindPath resolves a program reference made from the module at fromPath.
// It returns nil when no module matches.
func (l *Library) FindPath(ref, fromPath string) *Module {
	c := l.Candidates(ref, fromPath)
	if len(c) == 0 {
		return nil
	}
	return c[0]
}

// Candidates returns the modules ref may designate once the directory and
// distance filters have been applied, in registration order. More than one
// result means FindPath had to fall back on registration order.
//
// ref has the form x, x/y or /y/z, with or without extension.
func (l *Library) Candidates(ref, fromPath string) []*Module {
	ref = filepath.ToSlash(ref)
	base := ref
	dir := ""
	if i := strings.LastIndexByte(ref, '/'); i >= 0 {
		base = ref[i+1:]
		dir = ref[:i]
	}
	name := strings.TrimSuffix(base, filepath.Ext(base))

	l.mu.RLock()
	candidates := append([]*Module(nil), l.byName[strings.ToUpper(name)]...)
	l.mu.RUnlock()

	if len(candidates) > 1 && dir != "" {
		want := lastSegment(dir)
		var filtered []*Module
		for _, m := range candidates {
			if strings.EqualFold(lastSegment(filepath.ToSlash(filepath.Dir(m.Path))), want) {
				filtered = append(filtered, m)
			}
		}
		if len(filtered) > 0 {
			candidates = filtered
		}
	}

	if len(candidates) > 1 && fromPath != "" {
		candidates = closest(candidates, fromPath)
	}
	return candidates
}

// closest keeps the modules whose relative path from fromPath has the
// fewest segments.
func closest(modules []*Module, fromPath string) []*Module {
	best := -1
	var out []*Module
	for _, m := range modules {
		d := distance(m.Path, fromPath)
		switch {
		case best < 0 || d < best:
			best = d
			out = []*Module{m}
		case d == best:
			out = append(out, m)
		}
	}
	return out
}

func distance(target, from string) int {
	rel, err := filepath.Rel(from, target)
	if err != nil {
		return int(^uint(0) >> 1)
	}
	return len(strings.Split(filepath.ToSlash(rel), "/"))
}

func lastSegment(p string) string {
	p = strings.TrimRight(p, "/")
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}
