package render

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/start/pkg/event"
	"github.com/vango-dev/start/pkg/vdom"
)

func resolved(n *vdom.VNode) vdom.ResolveFunc {
	return func(ctx context.Context) (*vdom.VNode, error) { return n, nil }
}

func serve(o *Orchestrator, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	o.ServeHTTP(rec, r)
	return rec
}

func TestRenderSync(t *testing.T) {
	o := New(func(pe *event.PageEvent) *vdom.VNode {
		pe.SetStatus(http.StatusNotFound)
		pe.SetHeader("Cache-Control", "no-store")
		return vdom.Div(vdom.Class("page"),
			vdom.P(`a < b & "c"`),
			vdom.Input(vdom.Disabled(true), vdom.Value("x'y")),
			vdom.Suspense(vdom.Text("loading"), resolved(vdom.Text("loaded"))),
		)
	})

	rec := serve(o, httptest.NewRequest("GET", "/missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	want := `<div class="page"><p>a &lt; b &amp; &quot;c&quot;</p><input disabled value="x&#39;y">loading</div>`
	if got := rec.Body.String(); got != want {
		t.Errorf("body = %q, want %q", got, want)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/html" {
		t.Errorf("Content-Type = %q, want text/html", got)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", got)
	}
}

func TestRenderRedirectDiscardsDocument(t *testing.T) {
	deep := vdom.Func(func() *vdom.VNode { return nil })

	for _, mode := range []Mode{ModeSync, ModeAsync, ModeStream} {
		t.Run(mode.String(), func(t *testing.T) {
			o := New(func(pe *event.PageEvent) *vdom.VNode {
				guard := vdom.Func(func() *vdom.VNode {
					pe.SetHeader("Set-Cookie", "flash=1")
					pe.Redirect("/login")
					return vdom.Text("secret")
				})
				return vdom.Div(vdom.Section(vdom.P("private", guard, deep)))
			}, WithMode(mode))

			rec := serve(o, httptest.NewRequest("GET", "/account", nil))

			if rec.Code != http.StatusFound {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusFound)
			}
			if got := rec.Header().Get("Location"); got != "/login" {
				t.Errorf("Location = %q, want /login", got)
			}
			if got := rec.Header().Get("Set-Cookie"); got != "flash=1" {
				t.Errorf("Set-Cookie = %q, want flash=1", got)
			}
			if rec.Body.Len() != 0 {
				t.Errorf("body = %q, want empty", rec.Body)
			}
		})
	}
}

func TestRenderAsync(t *testing.T) {
	inner := vdom.Suspense(vdom.Text("inner…"), resolved(vdom.Em("deep")))
	o := New(func(pe *event.PageEvent) *vdom.VNode {
		return vdom.Div(
			vdom.Suspense(vdom.Text("a…"), resolved(vdom.Span("a", inner))),
			vdom.Suspense(vdom.Text("b…"), func(ctx context.Context) (*vdom.VNode, error) {
				return nil, errors.New("backend down")
			}),
			vdom.Suspense(vdom.Text("c…"), func(ctx context.Context) (*vdom.VNode, error) {
				panic("boom")
			}),
		)
	}, WithMode(ModeAsync))

	res, err := o.Render(context.Background(), event.NewFetchEvent(httptest.NewRequest("GET", "/", nil), event.Env{}))
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	want := `<div><span>a<em>deep</em></span>b…c…</div>`
	if got := string(res.Body); got != want {
		t.Errorf("body = %q, want %q", got, want)
	}
}

func TestRenderAsyncRedirectFromBoundary(t *testing.T) {
	o := New(func(pe *event.PageEvent) *vdom.VNode {
		return vdom.Div(vdom.Suspense(vdom.Text("…"), func(ctx context.Context) (*vdom.VNode, error) {
			event.PageFromContext(ctx).Redirect("/moved")
			return vdom.Text("gone"), nil
		}))
	}, WithMode(ModeAsync))

	rec := serve(o, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/moved" {
		t.Errorf("response = %d %q, want 302 /moved", rec.Code, rec.Header().Get("Location"))
	}
	if rec.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", rec.Body)
	}
}

func TestRenderAsyncTimeout(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	o := New(func(pe *event.PageEvent) *vdom.VNode {
		return vdom.Div(
			vdom.Suspense(vdom.Text("fast…"), resolved(vdom.Text("fast"))),
			vdom.Suspense(vdom.Text("slow…"), func(ctx context.Context) (*vdom.VNode, error) {
				<-block
				return vdom.Text("slow"), nil
			}),
		)
	}, WithMode(ModeAsync), WithTimeout(20*time.Millisecond))

	rec := serve(o, httptest.NewRequest("GET", "/", nil))
	if got, want := rec.Body.String(), "<div>fastslow…</div>"; got != want {
		t.Errorf("body = %q, want %q", got, want)
	}
}

func TestRenderStream(t *testing.T) {
	o := New(func(pe *event.PageEvent) *vdom.VNode {
		pe.SetStatus(http.StatusAccepted)
		return vdom.Div(
			vdom.P("shell"),
			vdom.Suspense(vdom.Text("…"), resolved(vdom.Span("late"))),
		)
	}, WithMode(ModeStream), WithNonce("n0"), WithRenderID("r"))

	rec := serve(o, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusAccepted)
	}
	if !rec.Flushed {
		t.Error("stream was never flushed")
	}
	body := rec.Body.String()
	shell := `<div><p>shell</p><start-suspense id="S:r0">…</start-suspense></div>`
	if !strings.HasPrefix(body, shell) {
		t.Fatalf("body = %q, want shell prefix %q", body, shell)
	}
	tail := body[len(shell):]
	for _, want := range []string{
		`<script nonce="n0">function $sw(`,
		`<template id="B:r0"><span>late</span></template>`,
		`<script nonce="n0">$sw("r0")</script>`,
	} {
		if !strings.Contains(tail, want) {
			t.Errorf("stream tail %q missing %q", tail, want)
		}
	}
}

func TestRenderStreamLateRedirect(t *testing.T) {
	release := make(chan struct{})
	var order []string

	o := New(func(pe *event.PageEvent) *vdom.VNode {
		return vdom.Div(
			vdom.P("shell"),
			vdom.Suspense(vdom.Text("…"), func(ctx context.Context) (*vdom.VNode, error) {
				<-release
				event.PageFromContext(ctx).Redirect(`/next?a="1"`)
				return vdom.Text("late"), nil
			}),
		)
	},
		WithMode(ModeStream),
		OnCompleteShell(func(w Writer) {
			order = append(order, "shell")
			close(release)
		}),
		OnCompleteAll(
			func(w Writer) { order = append(order, "all1"); w.Write("<!--all1-->") },
			func(w Writer) { order = append(order, "all2") },
		),
	)

	rec := serve(o, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	if !strings.HasPrefix(body, "<div><p>shell</p>") {
		t.Errorf("body = %q, want the partial document first", body)
	}
	directive := `<script>window.location="/next?a=\"1\""</script>`
	if n := strings.Count(body, "window.location"); n != 1 {
		t.Fatalf("redirect directive written %d times in %q, want 1", n, body)
	}
	if !strings.HasSuffix(body, directive+"<!--all1-->") {
		t.Errorf("body = %q, want directive before user observer output", body)
	}
	if got := strings.Join(order, ","); got != "shell,all1,all2" {
		t.Errorf("observer order = %q, want shell,all1,all2", got)
	}
}

type brokenWriter struct {
	header http.Header
	writes int
}

func (w *brokenWriter) Header() http.Header { return w.header }
func (w *brokenWriter) WriteHeader(int)     {}
func (w *brokenWriter) Write(p []byte) (int, error) {
	w.writes++
	return 0, errors.New("broken pipe")
}

func TestRenderStreamClientGone(t *testing.T) {
	cancelled := make(chan struct{})
	o := New(func(pe *event.PageEvent) *vdom.VNode {
		return vdom.Div(
			vdom.Suspense(vdom.Text("…"), func(ctx context.Context) (*vdom.VNode, error) {
				<-ctx.Done()
				close(cancelled)
				return nil, ctx.Err()
			}),
		)
	}, WithMode(ModeStream), OnCompleteAll(func(w Writer) { w.Write("ignored") }))

	w := &brokenWriter{header: http.Header{}}
	done := make(chan struct{})
	go func() {
		o.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ServeHTTP did not return after the client went away")
	}
	select {
	case <-cancelled:
	default:
		t.Error("outstanding boundary was not cancelled")
	}
	if w.writes != 1 {
		t.Errorf("writes = %d, want 1", w.writes)
	}
}

type staticDocs map[string]string

func (s staticDocs) Document(ctx context.Context, path string) ([]byte, error) {
	doc, ok := s[path]
	if !ok {
		return nil, errors.New("not found")
	}
	return []byte(doc), nil
}

func TestRenderWithoutSSR(t *testing.T) {
	o := New(func(pe *event.PageEvent) *vdom.VNode {
		t.Error("root rendered with SSR disabled")
		return nil
	}, WithoutSSR(), WithMode(ModeStream))

	r := httptest.NewRequest("GET", "/anything", nil)
	fe := event.NewFetchEvent(r, event.Env{Static: staticDocs{"/index": "<html>spa</html>"}})
	rec := serve(o, r.WithContext(event.WithFetchEvent(r.Context(), fe)))

	if rec.Code != http.StatusOK || rec.Body.String() != "<html>spa</html>" {
		t.Errorf("response = %d %q, want 200 <html>spa</html>", rec.Code, rec.Body)
	}

	if _, err := o.Render(context.Background(), event.NewFetchEvent(r, event.Env{})); !errors.Is(err, ErrNoStaticSource) {
		t.Errorf("Render() error = %v, want %v", err, ErrNoStaticSource)
	}
}

func TestRenderIslandsRouter(t *testing.T) {
	var page *event.PageEvent
	o := New(func(pe *event.PageEvent) *vdom.VNode {
		if pe.PrevURL != "" {
			pe.ReplaceOutlet("old1", "new1")
		}
		return vdom.Div(vdom.Nav("menu"), vdom.Outlet("new1",
			vdom.Suspense(vdom.Text("…"), resolved(vdom.Island("clock", "/clock.js", nil, "BODY"))),
		))
	},
		WithMode(ModeStream),
		WithIslandsRouter(),
		WithPageEvent(func(fe *event.FetchEvent) *event.PageEvent {
			page = event.NewPageEvent(fe)
			return page
		}),
	)

	r := httptest.NewRequest("GET", "/dashboard", nil)
	r.Header.Set(event.HeaderReferrer, "/home")
	rec := serve(o, r)

	want := `old1:new1=<start-island data-island="clock" data-module="/clock.js">BODY</start-island>`
	if got := rec.Body.String(); got != want {
		t.Errorf("body = %q, want %q", got, want)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/solid-diff" {
		t.Errorf("Content-Type = %q, want text/solid-diff", got)
	}
	if got := rec.Header().Get(event.HeaderLocation); got != "/dashboard" {
		t.Errorf("%s = %q, want /dashboard", event.HeaderLocation, got)
	}
	if got := page.Islands(); len(got) != 1 || got[0] != "clock" {
		t.Errorf("Islands() = %v, want [clock]", got)
	}
}

func TestDocument(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	pe := event.NewPageEvent(event.NewFetchEvent(r, event.Env{}))
	pe.AddTag(`<link rel="icon" href="/favicon.ico">`)

	res, err := New(func(*event.PageEvent) *vdom.VNode {
		return Document(pe, PageData{Title: "Home", Nonce: "n1"}, vdom.H1("Hi"))
	}).Render(context.Background(), pe.FetchEvent)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	got := string(res.Body)

	for _, want := range []string{
		`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`,
		`<title>Home</title>`,
		`<link rel="icon" href="/favicon.ico"></head>`,
		`<body><h1>Hi</h1><script async nonce="n1" src="/_build/entry-client.js" type="module"></script></body>`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("document %q missing %q", got, want)
		}
	}
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{ModeSync, ModeAsync, ModeStream} {
		got, err := ParseMode(m.String())
		if err != nil || got != m {
			t.Errorf("ParseMode(%q) = %v, %v, want %v", m.String(), got, err, m)
		}
	}
	if _, err := ParseMode("lazy"); err == nil {
		t.Error("ParseMode(lazy) succeeded, want error")
	}
}
