package server

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/vango-dev/start/pkg/event"
)

// APIHandler serves one API route. A returned *Redirect becomes a redirect
// response; any other error becomes a 500 JSON body.
type APIHandler func(w http.ResponseWriter, r *http.Request, fe *event.FetchEvent) error

// Route is one entry of the static API route table.
type Route struct {
	// Path uses chi patterns, e.g. "/api/users/{id}".
	Path string

	// Handlers is keyed by HTTP method.
	Handlers map[string]APIHandler
}

// Routes is the immutable API route table.
type Routes struct {
	mux    *chi.Mux
	routes []Route
	logger *slog.Logger
}

// NewRoutes builds the table.
func NewRoutes(logger *slog.Logger, routes ...Route) *Routes {
	if logger == nil {
		logger = slog.Default()
	}
	rt := &Routes{
		mux:    chi.NewMux(),
		routes: append([]Route(nil), routes...),
		logger: logger.With("component", "api"),
	}
	for _, route := range routes {
		for method, h := range route.Handlers {
			rt.mux.MethodFunc(strings.ToUpper(method), route.Path, rt.wrap(h))
		}
	}
	return rt
}

// Match reports whether r's method and path have a handler.
func (rt *Routes) Match(r *http.Request) bool {
	if rt == nil {
		return false
	}
	return rt.mux.Match(chi.NewRouteContext(), r.Method, r.URL.Path)
}

// ServeHTTP dispatches r to its route. The table routes on the full path
// even when the app is mounted inside another chi router.
func (rt *Routes) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, chi.NewRouteContext())
	rt.mux.ServeHTTP(w, r.WithContext(ctx))
}

// Entry is a method and path pair of the table.
type Entry struct {
	Method string
	Path   string
}

// Entries lists the table sorted by path, then method.
func (rt *Routes) Entries() []Entry {
	if rt == nil {
		return nil
	}
	var out []Entry
	for _, route := range rt.routes {
		for method := range route.Handlers {
			out = append(out, Entry{Method: strings.ToUpper(method), Path: route.Path})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Method < out[j].Method
	})
	return out
}

// Param returns a path parameter of the matched route.
func Param(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

func (rt *Routes) wrap(h APIHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fe := event.FromContext(r.Context())
		if fe == nil {
			fe = event.NewFetchEvent(r, event.Env{})
			r = r.WithContext(event.WithFetchEvent(r.Context(), fe))
		}
		fe.Request = r

		err := h(w, r, fe)
		if err == nil {
			return
		}
		if rd, ok := AsRedirect(err); ok {
			copyHeader(w.Header(), rd.Header)
			status := rd.Status
			if status == 0 {
				status = http.StatusFound
			}
			http.Redirect(w, r, rd.URL, status)
			return
		}
		rt.logger.Error("api handler failed", "method", r.Method, "path", r.URL.Path, "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
	}
}
