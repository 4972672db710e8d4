// Package chunks resolves server functions from the chunk manifest produced
// by the build.
//
// Each module path maps to a Loader returning the module's exports. Loaders
// run lazily on first use and at most once; concurrent first requests for the
// same module share one load.
package chunks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"
)

var (
	// ErrChunkNotFound is returned when no loader is registered for a module.
	ErrChunkNotFound = errors.New("chunks: module not found")

	// ErrExportNotFound is returned when a module lacks the named export.
	ErrExportNotFound = errors.New("chunks: export not found")
)

// Function is a server function. Arguments arrive decoded; the returned
// value is streamed back to the caller.
type Function func(ctx context.Context, args []any) (any, error)

// Exports maps export names to functions.
type Exports map[string]Function

// Loader loads a module's exports.
type Loader func(ctx context.Context) (Exports, error)

// Static returns a Loader for exports that are already in memory.
func Static(exports Exports) Loader {
	return func(context.Context) (Exports, error) { return exports, nil }
}

// Manifest is the immutable module table plus the cache of loaded modules.
type Manifest struct {
	loaders map[string]Loader

	group  singleflight.Group
	mu     sync.RWMutex
	loaded map[string]Exports
}

// New creates a manifest. The loader map is copied.
func New(loaders map[string]Loader) *Manifest {
	m := &Manifest{
		loaders: make(map[string]Loader, len(loaders)),
		loaded:  make(map[string]Exports),
	}
	for k, v := range loaders {
		m.loaders[k] = v
	}
	return m
}

// Modules returns the registered module paths, sorted.
func (m *Manifest) Modules() []string {
	out := make([]string, 0, len(m.loaders))
	for k := range m.loaders {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Load returns the exports of module, loading it on first use. A failed
// load is not cached.
func (m *Manifest) Load(ctx context.Context, module string) (Exports, error) {
	m.mu.RLock()
	exports, ok := m.loaded[module]
	m.mu.RUnlock()
	if ok {
		return exports, nil
	}

	loader, ok := m.loaders[module]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChunkNotFound, module)
	}

	v, err, _ := m.group.Do(module, func() (any, error) {
		exports, err := loader(ctx)
		if err != nil {
			return nil, fmt.Errorf("chunks: load %s: %w", module, err)
		}
		m.mu.Lock()
		m.loaded[module] = exports
		m.mu.Unlock()
		return exports, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Exports), nil
}

// Lookup resolves one export.
func (m *Manifest) Lookup(ctx context.Context, module, export string) (Function, error) {
	exports, err := m.Load(ctx, module)
	if err != nil {
		return nil, err
	}
	fn, ok := exports[export]
	if !ok || fn == nil {
		return nil, fmt.Errorf("%w: %s#%s", ErrExportNotFound, module, export)
	}
	return fn, nil
}
