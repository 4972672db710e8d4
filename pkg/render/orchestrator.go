package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vango-dev/start/pkg/event"
	"github.com/vango-dev/start/pkg/features/islands"
	"github.com/vango-dev/start/pkg/vdom"
)

// StaticIndexPath is the document served when server rendering is off.
const StaticIndexPath = "/index"

// ErrNoStaticSource is returned when server rendering is off and the
// environment has no static document fetcher.
var ErrNoStaticSource = errors.New("render: no static document source")

// Mode selects how a document is produced.
type Mode int

const (
	// ModeSync renders once; suspense boundaries show their fallback.
	ModeSync Mode = iota
	// ModeAsync awaits every suspense boundary before responding.
	ModeAsync
	// ModeStream flushes the shell first and streams boundaries as they
	// resolve.
	ModeStream
)

func (m Mode) String() string {
	switch m {
	case ModeSync:
		return "sync"
	case ModeAsync:
		return "async"
	case ModeStream:
		return "stream"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses a mode name as produced by Mode.String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "sync", "":
		return ModeSync, nil
	case "async":
		return ModeAsync, nil
	case "stream":
		return ModeStream, nil
	}
	return 0, fmt.Errorf("render: unknown mode %q", s)
}

// RootFunc builds the component tree for a page event.
type RootFunc func(pe *event.PageEvent) *vdom.VNode

// Options configures an Orchestrator.
type Options struct {
	Mode Mode

	// Timeout bounds the wait for suspense boundaries in awaited renders.
	// Zero waits for all of them.
	Timeout time.Duration

	// Nonce is set on every script the orchestrator injects.
	Nonce string

	// RenderID prefixes streamed boundary ids so several renders can share
	// a document.
	RenderID string

	// DisableSSR serves the static index document instead of rendering.
	DisableSSR bool

	// IslandsRouter enables partial outlet responses for client router
	// navigations.
	IslandsRouter bool

	// OnCompleteShell and OnCompleteAll observe a streamed render. They run
	// in registration order after the orchestrator's own observers.
	OnCompleteShell []Observer
	OnCompleteAll   []Observer

	// NewPageEvent overrides page event construction.
	NewPageEvent func(fe *event.FetchEvent) *event.PageEvent

	Logger *slog.Logger
}

// Option configures Options.
type Option func(*Options)

// WithMode sets the render mode.
func WithMode(m Mode) Option { return func(o *Options) { o.Mode = m } }

// WithTimeout sets the awaited render timeout.
func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }

// WithNonce sets the CSP nonce for injected scripts.
func WithNonce(nonce string) Option { return func(o *Options) { o.Nonce = nonce } }

// WithRenderID sets the boundary id prefix.
func WithRenderID(id string) Option { return func(o *Options) { o.RenderID = id } }

// WithoutSSR disables server rendering.
func WithoutSSR() Option { return func(o *Options) { o.DisableSSR = true } }

// WithIslandsRouter enables partial outlet responses.
func WithIslandsRouter() Option { return func(o *Options) { o.IslandsRouter = true } }

// OnCompleteShell appends shell-complete observers.
func OnCompleteShell(obs ...Observer) Option {
	return func(o *Options) { o.OnCompleteShell = append(o.OnCompleteShell, obs...) }
}

// OnCompleteAll appends all-complete observers.
func OnCompleteAll(obs ...Observer) Option {
	return func(o *Options) { o.OnCompleteAll = append(o.OnCompleteAll, obs...) }
}

// WithPageEvent overrides page event construction.
func WithPageEvent(fn func(fe *event.FetchEvent) *event.PageEvent) Option {
	return func(o *Options) { o.NewPageEvent = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(o *Options) { o.Logger = l } }

// Orchestrator renders pages.
type Orchestrator struct {
	root   RootFunc
	opts   Options
	logger *slog.Logger
}

// New creates an orchestrator for root.
func New(root RootFunc, opts ...Option) *Orchestrator {
	o := &Orchestrator{root: root}
	for _, opt := range opts {
		opt(&o.opts)
	}
	logger := o.opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	o.logger = logger.With("component", "render")
	return o
}

// Mode returns the configured mode.
func (o *Orchestrator) Mode() Mode { return o.opts.Mode }

// Response is a fully rendered response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Send writes res to w.
func (res *Response) Send(w http.ResponseWriter) error {
	copyHeader(w.Header(), res.Header)
	w.WriteHeader(res.Status)
	if len(res.Body) == 0 {
		return nil
	}
	_, err := w.Write(res.Body)
	return err
}

func (o *Orchestrator) pageEvent(fe *event.FetchEvent) *event.PageEvent {
	if o.opts.NewPageEvent != nil {
		return o.opts.NewPageEvent(fe)
	}
	return event.NewPageEvent(fe)
}

// Render produces the whole response in memory. A streaming orchestrator
// renders awaited here. A redirect requested at any depth discards the
// document and yields a 302 carrying the page event's headers.
func (o *Orchestrator) Render(ctx context.Context, fe *event.FetchEvent) (*Response, error) {
	if o.opts.DisableSSR {
		return o.static(ctx, fe)
	}

	pe := o.pageEvent(fe)
	ctx = event.WithPageEvent(ctx, pe)
	root := o.root(pe)

	var (
		markup []byte
		err    error
	)
	if o.opts.Mode == ModeSync {
		var buf bytes.Buffer
		err = newRenderer(pe, renderFallback).render(&buf, root)
		markup = buf.Bytes()
	} else {
		if o.opts.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, o.opts.Timeout)
			defer cancel()
		}
		aw := newAwaiter(ctx, o.logger)
		markup, err = aw.render(newRenderer(pe, aw.suspense), root)
	}
	if err != nil {
		return nil, err
	}

	if url := pe.RedirectURL(); url != "" {
		h := pe.Header()
		h.Set("Location", url)
		return &Response{Status: http.StatusFound, Header: h}, nil
	}

	if o.opts.IslandsRouter {
		patch, err := islands.Apply(pe, string(markup))
		if err != nil {
			return nil, err
		}
		markup = []byte(patch)
	}
	return &Response{Status: pe.Status(), Header: pe.Header(), Body: markup}, nil
}

// static serves the prebuilt index document unchanged.
func (o *Orchestrator) static(ctx context.Context, fe *event.FetchEvent) (*Response, error) {
	if fe.Env.Static == nil {
		return nil, ErrNoStaticSource
	}
	doc, err := fe.Env.Static.Document(ctx, StaticIndexPath)
	if err != nil {
		return nil, fmt.Errorf("render: static document: %w", err)
	}
	return &Response{
		Status: http.StatusOK,
		Header: http.Header{"Content-Type": {"text/html"}},
		Body:   doc,
	}, nil
}

// ServeHTTP renders the page for r. A fetch event already bound to the
// request context is reused.
func (o *Orchestrator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fe := event.FromContext(r.Context())
	if fe == nil {
		fe = event.NewFetchEvent(r, event.Env{})
		r = r.WithContext(event.WithFetchEvent(r.Context(), fe))
	}

	// Client router navigations need the whole outlet to cut a patch, so
	// they are never streamed.
	partial := o.opts.IslandsRouter && r.Header.Get(event.HeaderReferrer) != ""
	if o.opts.Mode == ModeStream && !o.opts.DisableSSR && !partial {
		o.stream(w, r, fe)
		return
	}

	res, err := o.Render(r.Context(), fe)
	if err != nil {
		o.logger.Error("render failed", "path", r.URL.Path, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if err := res.Send(w); err != nil {
		o.logger.Debug("client went away", "path", r.URL.Path, "error", err)
	}
}

// stream renders the shell, commits it and then appends boundaries as they
// resolve. A redirect known before commit becomes a 302; one discovered
// later becomes a navigation script, written once.
func (o *Orchestrator) stream(w http.ResponseWriter, r *http.Request, fe *event.FetchEvent) {
	pe := o.pageEvent(fe)
	ctx, cancel := context.WithCancel(event.WithPageEvent(r.Context(), pe))
	s := newStreamer(ctx, o.opts.RenderID, o.opts.Nonce, o.logger)
	defer func() {
		cancel()
		s.wait()
	}()
	rend := newRenderer(pe, s.suspense)

	var shell bytes.Buffer
	if err := rend.render(&shell, o.root(pe)); err != nil {
		o.logger.Error("render failed", "path", r.URL.Path, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if url := pe.RedirectURL(); url != "" {
		writeRedirect(w, url, pe.Header())
		return
	}

	sw := newStreamWriter(ctx, cancel, w, o.logger)
	rd := &redirector{pe: pe, nonce: o.opts.Nonce}
	sw.Write(shell.String())

	// Shell observers run before the status line is sent, so a redirect
	// raised by a boundary in the meantime can still be a real 302.
	shellDone := func(Writer) {
		if url := pe.RedirectURL(); url != "" && sw.redirect(url, pe.Header()) {
			o.logger.Debug("redirected at shell completion", "path", r.URL.Path, "location", url)
		}
	}
	notify(sw, shellDone, o.opts.OnCompleteShell)
	if sw.redirected {
		return
	}
	sw.commit(pe.Status(), pe.Header())

	for s.outstanding > 0 && !sw.failed {
		var b boundary
		select {
		case b = <-s.results:
		case <-ctx.Done():
			sw.fail(ctx.Err())
			continue
		}
		s.outstanding--
		if b.err != nil {
			o.logger.Warn("suspense boundary failed, keeping fallback", "path", r.URL.Path, "error", b.err)
			continue
		}
		chunk, err := s.chunk(rend, b)
		if err != nil {
			o.logger.Error("boundary render failed", "path", r.URL.Path, "error", err)
			continue
		}
		sw.Write(chunk)
		sw.flush()

		if pe.RedirectURL() != "" {
			rd.emit(sw)
			break
		}
	}

	notify(sw, rd.emit, o.opts.OnCompleteAll)
	sw.flush()
}

// notify runs the internal observer, then the user observers, in order.
func notify(w Writer, internal Observer, user []Observer) {
	internal(w)
	for _, obs := range user {
		obs(w)
	}
}
