package codec

import (
	"context"
	"sync"
)

// undefinedType is the type of Undefined.
type undefinedType struct{}

// nullType is the type of Null.
type nullType struct{}

var (
	// Undefined is the JavaScript undefined value. A nil interface encodes
	// the same way.
	Undefined = undefinedType{}

	// Null is an explicit JavaScript null.
	Null = nullType{}
)

// IsUndefined reports whether v is undefined: a nil interface or Undefined.
func IsUndefined(v any) bool {
	if v == nil {
		return true
	}
	_, ok := v.(undefinedType)
	return ok
}

// Set encodes as a JavaScript Set.
type Set []any

// Entry is one key/value pair of a Map.
type Entry struct {
	Key   any
	Value any
}

// Map encodes as a JavaScript Map. It keeps insertion order and allows keys
// that are not comparable in Go (objects, arrays).
type Map []Entry

// Get returns the value stored under a comparable key.
func (m Map) Get(key any) (any, bool) {
	for _, e := range m {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Error is an error object received from the client or produced for one.
type Error struct {
	Name    string
	Message string
}

// Error implements error.
func (e *Error) Error() string {
	if e.Name == "" || e.Name == "Error" {
		return e.Message
	}
	return e.Name + ": " + e.Message
}

// Promise is a value that is not resolved yet. The encoder emits a deferred
// slot for it and a later frame settles that slot.
type Promise struct {
	done  chan struct{}
	once  sync.Once
	value any
	err   error
}

// NewPromise returns an unsettled promise.
func NewPromise() *Promise {
	return &Promise{done: make(chan struct{})}
}

// Resolved returns a promise already resolved with v.
func Resolved(v any) *Promise {
	p := NewPromise()
	p.Resolve(v)
	return p
}

// Go runs fn in a new goroutine and returns a promise settled by its result.
func Go(ctx context.Context, fn func(ctx context.Context) (any, error)) *Promise {
	p := NewPromise()
	go func() {
		v, err := fn(ctx)
		if err != nil {
			p.Reject(err)
			return
		}
		p.Resolve(v)
	}()
	return p
}

// Resolve settles the promise with a value. Later calls are ignored.
func (p *Promise) Resolve(v any) {
	p.once.Do(func() {
		p.value = v
		close(p.done)
	})
}

// Reject settles the promise with an error. Later calls are ignored.
func (p *Promise) Reject(err error) {
	p.once.Do(func() {
		p.err = err
		close(p.done)
	})
}

// Done is closed once the promise settles.
func (p *Promise) Done() <-chan struct{} {
	return p.done
}

// Await blocks until the promise settles or ctx is done.
func (p *Promise) Await(ctx context.Context) (any, error) {
	select {
	case <-p.done:
		return p.value, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// result returns the settled outcome. Only valid after Done is closed.
func (p *Promise) result() (any, error) {
	return p.value, p.err
}
