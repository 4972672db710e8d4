package demo

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/vango-dev/start/pkg/event"
	"github.com/vango-dev/start/pkg/render"
	. "github.com/vango-dev/start/pkg/vdom"
)

// page is one route of the demo. Its outlet id changes with the route so
// the islands router can swap only the main region.
type page struct {
	path   string
	title  string
	render func(pe *event.PageEvent, s *site) *VNode
}

var pages = []page{
	{"/", "Todos", homePage},
	{"/about", "About", aboutPage},
	{"/account", "Account", accountPage},
	{"/login", "Sign in", loginPage},
}

func lookup(path string) (page, bool) {
	for _, p := range pages {
		if p.path == path {
			return p, true
		}
	}
	return page{path: path, title: "Not found", render: notFoundPage}, false
}

func outletID(path string) string {
	if path == "/" {
		return "route:home"
	}
	return "route:" + strings.Trim(path, "/")
}

// root returns the page tree of the demo.
func root(s *site) render.RootFunc {
	return func(pe *event.PageEvent) *VNode {
		p, ok := lookup(pe.Request.URL.Path)
		if !ok {
			pe.SetStatus(http.StatusNotFound)
		}

		id := outletID(p.path)
		routeAssets := s.manifest.Route(p.path)
		if pe.PrevURL != "" {
			if prev, err := url.Parse(pe.PrevURL); err == nil {
				pe.ReplaceOutlet(outletID(prev.Path), id, routeAssets...)
			}
		}

		return render.Document(pe, render.PageData{
			Title:        p.title + " | start",
			Assets:       routeAssets,
			ClientScript: s.assets.Asset("entry-client.js"),
		},
			Header(navBar(p.path)),
			Main(Outlet(id, p.render(pe, s))),
			Footer(P("Served by start.")),
		)
	}
}

func navBar(current string) *VNode {
	link := func(href, label string) *VNode {
		node := A(Href(href), label)
		if href == current {
			node.Props["aria-current"] = "page"
		}
		return node
	}
	return Nav(
		link("/", "Todos"),
		link("/about", "About"),
		link("/account", "Account"),
	)
}

func serverAction(module, export string) string {
	q := url.Values{"id": {module}, "name": {export}}
	return "/_server?" + q.Encode()
}

func homePage(pe *event.PageEvent, s *site) *VNode {
	return Section(
		H1("Todos"),
		Suspense(P(Class("loading"), "Loading todos..."), func(ctx context.Context) (*VNode, error) {
			todos, err := s.store.List(ctx)
			if err != nil {
				return nil, err
			}
			if len(todos) == 0 {
				return P(Em("Nothing to do.")), nil
			}
			return Ul(Range(todos, func(t Todo, _ int) *VNode {
				item := Li(Data("id", strconv.Itoa(t.ID)), t.Title)
				if t.Done {
					item.Props["class"] = "done"
				}
				return item
			})), nil
		}),
		Form(Action(serverAction(TodosModule, "addTodo")), Method("post"),
			Input(Name("title"), Placeholder("What needs doing?"), Required()),
			Button(Type("submit"), "Add"),
		),
	)
}

func aboutPage(pe *event.PageEvent, s *site) *VNode {
	return Section(
		H1("About"),
		P("Pages render on the server and stream suspense boundaries as they resolve."),
		H2("Counter"),
		Noscript(P("The counter needs JavaScript.")),
		Island("counter", s.assets.Asset("counter.js"), map[string]any{"start": 0},
			Button(Type("button"), "0"),
		),
	)
}

// accountPage redirects from inside a boundary, after the shell may
// already be on the wire.
func accountPage(pe *event.PageEvent, s *site) *VNode {
	return Section(
		H1("Account"),
		Suspense(P("Checking session..."), func(ctx context.Context) (*VNode, error) {
			if err := s.store.wait(ctx); err != nil {
				return nil, err
			}
			c, err := pe.Request.Cookie(SessionCookie)
			if err != nil || c.Value == "" {
				pe.Redirect("/login")
				return Fragment(), nil
			}
			return Div(
				P("Signed in as ", Code(c.Value)),
				A(Href("/api/logout"), "Sign out"),
			), nil
		}),
	)
}

func loginPage(pe *event.PageEvent, s *site) *VNode {
	return Section(
		H1("Sign in"),
		Form(Action(serverAction(AuthModule, "login")), Method("post"),
			Label("Name ", Input(Name("name"), Required())),
			Button(Type("submit"), "Sign in"),
		),
	)
}

func notFoundPage(pe *event.PageEvent, s *site) *VNode {
	return Section(
		H1("Not found"),
		P("No page at ", Code(pe.Request.URL.Path), "."),
	)
}
