package demo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/vango-dev/start"
	"github.com/vango-dev/start/pkg/assets"
	"github.com/vango-dev/start/pkg/event"
	"github.com/vango-dev/start/pkg/render"
	"github.com/vango-dev/start/pkg/server"
)

func newApp(opts ...render.Option) (*start.App, *Store) {
	store := NewStore(0, "write docs", "ship it")
	cfg := Config(store)
	cfg.Render = opts
	return start.New(cfg), store
}

func serve(app http.Handler, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, r)
	return rec
}

func TestStore(t *testing.T) {
	s := NewStore(0)
	if _, err := s.Add("  "); !errors.Is(err, ErrEmptyTitle) {
		t.Errorf("Add(blank) error = %v, want %v", err, ErrEmptyTitle)
	}
	a, _ := s.Add("a")
	s.Add("b")
	if _, err := s.Toggle(a.ID); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	todos, err := s.List(context.Background())
	if err != nil || len(todos) != 2 || !todos[0].Done || todos[1].Title != "b" {
		t.Errorf("List() = %+v, %v", todos, err)
	}
	if _, err := s.Toggle(99); !errors.Is(err, ErrNoTodo) {
		t.Errorf("Toggle(99) error = %v, want %v", err, ErrNoTodo)
	}

	slow := NewStore(DefaultLatency)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := slow.List(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("List(cancelled) error = %v, want %v", err, context.Canceled)
	}
}

func TestAPI(t *testing.T) {
	app, _ := newApp()

	rec := serve(app, httptest.NewRequest("GET", "/api/todos", nil))
	var todos []Todo
	if err := json.Unmarshal(rec.Body.Bytes(), &todos); err != nil || len(todos) != 2 {
		t.Errorf("GET /api/todos = %q, %v", rec.Body.String(), err)
	}

	tests := []struct {
		path   string
		status int
	}{
		{"/api/todos/1", http.StatusOK},
		{"/api/todos/99", http.StatusNotFound},
		{"/api/todos/x", http.StatusBadRequest},
		{"/api/logout", http.StatusFound},
	}
	for _, tt := range tests {
		if rec := serve(app, httptest.NewRequest("GET", tt.path, nil)); rec.Code != tt.status {
			t.Errorf("GET %s status = %d, want %d", tt.path, rec.Code, tt.status)
		}
	}
}

func formRequest(module, export string, form url.Values, instance string) *http.Request {
	r := httptest.NewRequest("POST", serverAction(module, export), strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.Header.Set("Referer", "http://example.com/?tab=all")
	if instance != "" {
		r.Header.Set(server.HeaderInstance, instance)
	}
	return r
}

func TestAddTodoWithoutJavaScript(t *testing.T) {
	app, store := newApp()

	rec := serve(app, formRequest(TodosModule, "addTodo", url.Values{"title": {"new one"}}, ""))
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusFound)
	}
	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil || loc.Path != "/" || loc.Query().Get("tab") != "all" {
		t.Fatalf("Location = %q", rec.Header().Get("Location"))
	}
	var result struct {
		Result Todo `json:"result"`
		Error  bool `json:"error"`
	}
	if err := json.Unmarshal([]byte(loc.Query().Get("form")), &result); err != nil {
		t.Fatalf("form payload: %v", err)
	}
	if result.Error || result.Result.Title != "new one" {
		t.Errorf("form payload = %+v", result)
	}

	todos, _ := store.List(context.Background())
	if len(todos) != 3 {
		t.Errorf("len(todos) = %d, want 3", len(todos))
	}

	rec = serve(app, formRequest(TodosModule, "addTodo", url.Values{"title": {""}}, ""))
	loc, _ = url.Parse(rec.Header().Get("Location"))
	if !strings.Contains(loc.Query().Get("form"), `"error":true`) {
		t.Errorf("blank title form payload = %q, want error", loc.Query().Get("form"))
	}
}

func TestLogin(t *testing.T) {
	app, _ := newApp()

	rec := serve(app, formRequest(AuthModule, "login", url.Values{"name": {"ada"}}, ""))
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/account" {
		t.Errorf("no-JS login = %d %q, want 302 /account", rec.Code, rec.Header().Get("Location"))
	}
	if !strings.HasPrefix(rec.Header().Get("Set-Cookie"), SessionCookie+"=ada") {
		t.Errorf("Set-Cookie = %q", rec.Header().Get("Set-Cookie"))
	}

	rec = serve(app, formRequest(AuthModule, "login", url.Values{"name": {"ada"}}, "i1"))
	if rec.Code != http.StatusNoContent {
		t.Errorf("enhanced login status = %d, want %d", rec.Code, http.StatusNoContent)
	}
}

func TestStatsStreamsPromise(t *testing.T) {
	app, _ := newApp()
	r := httptest.NewRequest("POST", "/_server", strings.NewReader(`[]`))
	r.Header.Set(server.HeaderServerID, TodosModule+"#stats")
	r.Header.Set(server.HeaderInstance, "s1")

	rec := serve(app, r)
	body := rec.Body.String()
	if rec.Header().Get("Content-Type") != "text/javascript" {
		t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
	}
	if !strings.HasPrefix(body, `($R["s1"]=[],`) || !strings.Contains(body, "$R.r(") || !strings.HasSuffix(body, `delete $R["s1"];`+"\n") {
		t.Errorf("body = %q", body)
	}
}

func TestPages(t *testing.T) {
	app, _ := newApp(render.WithMode(render.ModeAsync))

	rec := serve(app, httptest.NewRequest("GET", "/", nil))
	body := rec.Body.String()
	for _, want := range []string{"<title>Todos | start</title>", "write docs", "ship it", `<!--route:home-->`, `aria-current="page"`} {
		if !strings.Contains(body, want) {
			t.Errorf("GET / missing %q", want)
		}
	}

	rec = serve(app, httptest.NewRequest("GET", "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /nope status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	rec = serve(app, httptest.NewRequest("GET", "/about", nil))
	if !strings.Contains(rec.Body.String(), `data-island="counter"`) {
		t.Errorf("GET /about missing the counter island")
	}
}

func TestAccountRedirect(t *testing.T) {
	app, _ := newApp(render.WithMode(render.ModeAsync))

	rec := serve(app, httptest.NewRequest("GET", "/account", nil))
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
		t.Errorf("anonymous /account = %d %q, want 302 /login", rec.Code, rec.Header().Get("Location"))
	}

	r := httptest.NewRequest("GET", "/account", nil)
	r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "ada"})
	rec = serve(app, r)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<code>ada</code>") {
		t.Errorf("signed in /account = %d %q", rec.Code, rec.Body.String())
	}
}

func TestAccountRedirectWhileStreaming(t *testing.T) {
	app, _ := newApp(render.WithMode(render.ModeStream))

	rec := serve(app, httptest.NewRequest("GET", "/account", nil))
	switch rec.Code {
	case http.StatusFound:
		if rec.Header().Get("Location") != "/login" {
			t.Errorf("Location = %q, want /login", rec.Header().Get("Location"))
		}
	case http.StatusOK:
		if strings.Count(rec.Body.String(), `window.location="/login"`) != 1 {
			t.Errorf("body = %q, want one navigation script", rec.Body.String())
		}
	default:
		t.Errorf("status = %d", rec.Code)
	}
}

func TestIslandsNavigation(t *testing.T) {
	app, _ := newApp(render.WithMode(render.ModeStream), render.WithIslandsRouter())

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set(event.HeaderReferrer, "/about")
	rec := serve(app, r)

	if got := rec.Header().Get("Content-Type"); got != "text/solid-diff" {
		t.Errorf("Content-Type = %q, want text/solid-diff", got)
	}
	body := rec.Body.String()
	if !strings.HasPrefix(body, "route:about:route:home=") || strings.Contains(body, "<html") {
		t.Errorf("patch = %q", body)
	}
	if !strings.Contains(body, "write docs") {
		t.Errorf("patch = %q, want awaited boundary content", body)
	}
}

func TestManifestAssets(t *testing.T) {
	m := assets.NewManifest()
	m.Set("entry-client.js", "entry-client.abcd1234.js")
	m.Set("counter.js", "counter.beef0001.js")
	m.SetRoute("/about", assets.Asset{Type: "style", Href: "/static/about.css"})

	cfg := Config(NewStore(0), WithManifest(m, "/static"))
	cfg.Render = []render.Option{render.WithMode(render.ModeAsync), render.WithIslandsRouter()}
	app := start.New(cfg)

	body := serve(app, httptest.NewRequest("GET", "/about", nil)).Body.String()
	for _, want := range []string{`/static/entry-client.abcd1234.js`, `/static/counter.beef0001.js`, `/static/about.css`} {
		if !strings.Contains(body, want) {
			t.Errorf("GET /about missing %q", want)
		}
	}

	r := httptest.NewRequest("GET", "/about", nil)
	r.Header.Set(event.HeaderReferrer, "/")
	patch := serve(app, r).Body.String()
	if !strings.HasPrefix(patch, `assets=[{"type":"style","href":"/static/about.css"}];route:home:route:about=`) {
		t.Errorf("patch = %q", patch)
	}
}
