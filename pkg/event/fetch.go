// Package event holds the per-request state threaded through server
// functions and rendering.
//
// A FetchEvent wraps the inbound request and is bound to the request
// context at the top of request handling. Any code running for that request,
// including server functions called while rendering, reads it back with
// FromContext instead of relying on globals:
//
//	func currentUser(ctx context.Context, args []any) (any, error) {
//	    fe := event.FromContext(ctx)
//	    return fe.Request.Header.Get("X-User"), nil
//	}
//
// A PageEvent extends the FetchEvent with the mutable state of one render:
// status, response headers, router state and the islands touched so far.
package event

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
)

// DocumentFetcher returns precomputed documents by path. It serves pages
// whose route disables server rendering.
type DocumentFetcher interface {
	Document(ctx context.Context, path string) ([]byte, error)
}

// Env is the per-environment handle given to every request.
type Env struct {
	// Static fetches prebuilt documents.
	Static DocumentFetcher

	// Values holds named bindings of the environment (secrets, handles).
	Values map[string]any
}

// FetchEvent is the request-scoped context of server code.
type FetchEvent struct {
	// ID uniquely identifies the request.
	ID string

	Request *http.Request
	Env     Env

	// Client performs outbound requests made on behalf of this request.
	Client *http.Client

	Logger *slog.Logger

	mu     sync.RWMutex
	locals map[string]any
}

// NewFetchEvent creates the event for r.
func NewFetchEvent(r *http.Request, env Env) *FetchEvent {
	id := uuid.NewString()
	return &FetchEvent{
		ID:      id,
		Request: r,
		Env:     env,
		Client:  http.DefaultClient,
		Logger:  slog.Default().With("request_id", id),
		locals:  make(map[string]any),
	}
}

// Fetch performs an outbound request bound to the inbound request's
// lifetime.
func (e *FetchEvent) Fetch(req *http.Request) (*http.Response, error) {
	return e.Client.Do(req.WithContext(e.Request.Context()))
}

// Set stores a request-scoped value.
func (e *FetchEvent) Set(key string, v any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.locals == nil {
		e.locals = make(map[string]any)
	}
	e.locals[key] = v
}

// Get returns a request-scoped value.
func (e *FetchEvent) Get(key string) (any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.locals[key]
	return v, ok
}

type fetchKey struct{}
type pageKey struct{}

// WithFetchEvent binds e to ctx.
func WithFetchEvent(ctx context.Context, e *FetchEvent) context.Context {
	return context.WithValue(ctx, fetchKey{}, e)
}

// FromContext returns the FetchEvent bound to ctx, or nil.
func FromContext(ctx context.Context) *FetchEvent {
	if e, ok := ctx.Value(fetchKey{}).(*FetchEvent); ok {
		return e
	}
	if pe := PageFromContext(ctx); pe != nil {
		return pe.FetchEvent
	}
	return nil
}

// WithPageEvent binds pe, and its FetchEvent, to ctx.
func WithPageEvent(ctx context.Context, pe *PageEvent) context.Context {
	ctx = WithFetchEvent(ctx, pe.FetchEvent)
	return context.WithValue(ctx, pageKey{}, pe)
}

// PageFromContext returns the PageEvent bound to ctx, or nil.
func PageFromContext(ctx context.Context) *PageEvent {
	pe, _ := ctx.Value(pageKey{}).(*PageEvent)
	return pe
}
