package server

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/vango-dev/start/pkg/chunks"
	"github.com/vango-dev/start/pkg/event"
)

// Function is a server function.
type Function = chunks.Function

// Exports maps export names to server functions.
type Exports = chunks.Exports

// OutcomeKind tags an Outcome.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeRedirect
	OutcomeFailure
)

// String returns the kind name, used as a metrics label.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeRedirect:
		return "redirect"
	case OutcomeFailure:
		return "failure"
	default:
		return "success"
	}
}

// Outcome is the result of one invocation. Exactly one of Value, Redirect
// and Err is meaningful, selected by Kind.
type Outcome struct {
	Kind     OutcomeKind
	Value    any
	Redirect *Redirect
	Err      *InvocationError

	// Status and Header are declared by a function returning *Response.
	Status int
	Header http.Header
}

// Response lets a server function declare the status and headers of a
// successful result.
type Response struct {
	Status int
	Header http.Header
	Value  any
}

// InvokeHook observes invocations. InvokeStart may return a derived
// context, e.g. carrying a span.
type InvokeHook interface {
	InvokeStart(ctx context.Context, call *Call) context.Context
	InvokeEnd(ctx context.Context, call *Call, out Outcome, elapsed time.Duration)
}

// Invoker runs server functions from a chunk manifest.
type Invoker struct {
	manifest *chunks.Manifest
	hooks    []InvokeHook
	logger   *slog.Logger
}

// InvokerOption configures an Invoker.
type InvokerOption func(*Invoker)

// WithHooks appends invocation hooks. They run in registration order.
func WithHooks(hooks ...InvokeHook) InvokerOption {
	return func(inv *Invoker) { inv.hooks = append(inv.hooks, hooks...) }
}

// WithInvokerLogger sets the logger.
func WithInvokerLogger(l *slog.Logger) InvokerOption {
	return func(inv *Invoker) {
		if l != nil {
			inv.logger = l
		}
	}
}

// NewInvoker creates an invoker for m.
func NewInvoker(m *chunks.Manifest, opts ...InvokerOption) *Invoker {
	inv := &Invoker{
		manifest: m,
		logger:   slog.Default().With("component", "invoker"),
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Invoke runs call. Function errors, panics and redirects are captured in
// the Outcome. A non-nil error means the target could not be resolved,
// which is an internal fault rather than a function failure.
func (inv *Invoker) Invoke(ctx context.Context, call *Call) (Outcome, error) {
	fn, err := inv.manifest.Lookup(ctx, call.Module, call.Export)
	if err != nil {
		return Outcome{}, err
	}

	for _, h := range inv.hooks {
		ctx = h.InvokeStart(ctx, call)
	}
	start := time.Now()
	out := inv.run(ctx, fn, call)
	elapsed := time.Since(start)
	for _, h := range inv.hooks {
		h.InvokeEnd(ctx, call, out, elapsed)
	}

	if out.Kind == OutcomeFailure {
		inv.logger.Debug("server function failed", "target", call.Target(), "error", out.Err)
		if out.Err.Panic != nil {
			inv.logger.Error("server function panicked",
				"target", call.Target(),
				"panic", out.Err.Panic,
				"stack", string(out.Err.Stack))
		}
	}
	return out, nil
}

func (inv *Invoker) run(ctx context.Context, fn Function, call *Call) (out Outcome) {
	defer func() {
		if p := recover(); p != nil {
			out = Outcome{Kind: OutcomeFailure, Err: &InvocationError{
				Module: call.Module,
				Export: call.Export,
				Panic:  p,
				Stack:  debug.Stack(),
			}}
		}
	}()

	if event.FromContext(ctx) == nil {
		inv.logger.Warn("invoking without a request event", "target", call.Target())
	}

	v, err := fn(ctx, call.Args)
	if err != nil {
		if r, ok := AsRedirect(err); ok {
			return Outcome{Kind: OutcomeRedirect, Redirect: r}
		}
		return Outcome{Kind: OutcomeFailure, Err: &InvocationError{
			Module: call.Module,
			Export: call.Export,
			Err:    err,
		}}
	}

	if r, ok := v.(*Redirect); ok && r != nil {
		return Outcome{Kind: OutcomeRedirect, Redirect: r}
	}
	if resp, ok := v.(*Response); ok && resp != nil {
		return Outcome{Kind: OutcomeSuccess, Value: resp.Value, Status: resp.Status, Header: resp.Header}
	}
	return Outcome{Kind: OutcomeSuccess, Value: v}
}
