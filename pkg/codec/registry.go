package codec

import (
	"log/slog"
	"sync"
)

// Registry tracks which scope ids have an open stream. A scope is released
// once its terminal frame is produced or the stream is aborted. Closing a
// stream before its terminal frame is counted as a violation.
type Registry struct {
	mu         sync.Mutex
	open       map[string]struct{}
	violations int
	logger     *slog.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		open:   make(map[string]struct{}),
		logger: logger.With("component", "codec"),
	}
}

// Open marks id as in use. Opening an id that is already open fails.
func (r *Registry) Open(id string) error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.open[id]; ok {
		return &CodecError{Type: "scope " + id, Err: ErrScopeInUse}
	}
	r.open[id] = struct{}{}
	return nil
}

// Release frees id after its terminal frame.
func (r *Registry) Release(id string) {
	r.release(id, false)
}

func (r *Registry) release(id string, abandoned bool) {
	if r == nil {
		return
	}
	r.mu.Lock()
	delete(r.open, id)
	if abandoned {
		r.violations++
	}
	r.mu.Unlock()
	if abandoned {
		r.logger.Error("stream closed before terminal frame", "scope", id)
	}
}

// IsOpen reports whether id has a stream that has not terminated.
func (r *Registry) IsOpen(id string) bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.open[id]
	return ok
}

// Len returns the number of open scopes.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.open)
}

// Violations returns how many streams were closed before terminating.
func (r *Registry) Violations() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.violations
}
