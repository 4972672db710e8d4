package demo

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/vango-dev/start/pkg/event"
	"github.com/vango-dev/start/pkg/server"
)

// Routes returns the API route table of the demo.
func Routes(store *Store) []server.Route {
	return []server.Route{
		{
			Path: "/api/todos",
			Handlers: map[string]server.APIHandler{
				"GET": func(w http.ResponseWriter, r *http.Request, fe *event.FetchEvent) error {
					todos, err := store.List(r.Context())
					if err != nil {
						return err
					}
					return writeJSON(w, http.StatusOK, todos)
				},
			},
		},
		{
			Path: "/api/todos/{id}",
			Handlers: map[string]server.APIHandler{
				"GET": func(w http.ResponseWriter, r *http.Request, fe *event.FetchEvent) error {
					id, err := strconv.Atoi(server.Param(r, "id"))
					if err != nil {
						return writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
					}
					todo, err := store.Get(r.Context(), id)
					if errors.Is(err, ErrNoTodo) {
						return writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
					}
					if err != nil {
						return err
					}
					return writeJSON(w, http.StatusOK, todo)
				},
			},
		},
		{
			Path: "/api/logout",
			Handlers: map[string]server.APIHandler{
				"GET": func(w http.ResponseWriter, r *http.Request, fe *event.FetchEvent) error {
					cookie := &http.Cookie{Name: SessionCookie, Path: "/", MaxAge: -1}
					return server.RedirectTo("/").WithHeader("Set-Cookie", cookie.String())
				},
			},
		},
	}
}

// writeJSON encodes before writing so an encoding failure can still
// become a 500.
func writeJSON(w http.ResponseWriter, status int, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(data, '\n'))
	return nil
}
