package demo

import (
	"context"
	"fmt"
	"net/http"

	"github.com/vango-dev/start/pkg/chunks"
	"github.com/vango-dev/start/pkg/codec"
	"github.com/vango-dev/start/pkg/server"
)

// Module paths of the server functions.
const (
	TodosModule = "src/todos.ts"
	AuthModule  = "src/auth.ts"
)

// SessionCookie marks a signed in visitor.
const SessionCookie = "session"

// Functions returns the chunk manifest loaders of the demo.
func Functions(store *Store) map[string]chunks.Loader {
	return map[string]chunks.Loader{
		TodosModule: chunks.Static(todoFunctions(store)),
		AuthModule:  chunks.Static(authFunctions()),
	}
}

func todoFunctions(store *Store) server.Exports {
	return server.Exports{
		// addTodo takes a form, so it works without JavaScript.
		"addTodo": func(ctx context.Context, args []any) (any, error) {
			title, err := titleArg(args)
			if err != nil {
				return nil, err
			}
			todo, err := store.Add(title)
			if err != nil {
				return nil, err
			}
			return &server.Response{Status: http.StatusCreated, Value: todo}, nil
		},

		"listTodos": func(ctx context.Context, args []any) (any, error) {
			return store.List(ctx)
		},

		"toggleTodo": func(ctx context.Context, args []any) (any, error) {
			id, err := intArg(args)
			if err != nil {
				return nil, err
			}
			return store.Toggle(id)
		},

		// stats answers at once and streams the slow part later.
		"stats": func(ctx context.Context, args []any) (any, error) {
			return map[string]any{
				"server": "start",
				"todos": codec.Go(ctx, func(ctx context.Context) (any, error) {
					todos, err := store.List(ctx)
					return len(todos), err
				}),
			}, nil
		},
	}
}

func authFunctions() server.Exports {
	return server.Exports{
		"login": func(ctx context.Context, args []any) (any, error) {
			name, err := formValue(args, "name")
			if err != nil {
				return nil, err
			}
			if name == "" {
				return nil, fmt.Errorf("name is required")
			}
			cookie := &http.Cookie{Name: SessionCookie, Value: name, Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode}
			return nil, server.RedirectTo("/account").WithHeader("Set-Cookie", cookie.String())
		},

		"logout": func(ctx context.Context, args []any) (any, error) {
			cookie := &http.Cookie{Name: SessionCookie, Path: "/", MaxAge: -1}
			return nil, server.RedirectTo("/").WithHeader("Set-Cookie", cookie.String())
		},
	}
}

func formValue(args []any, name string) (string, error) {
	if len(args) == 1 {
		if form, ok := args[0].(*server.FormEntries); ok {
			return form.Get(name), nil
		}
	}
	return "", fmt.Errorf("expected a form submission")
}

func titleArg(args []any) (string, error) {
	if len(args) == 1 {
		switch v := args[0].(type) {
		case string:
			return v, nil
		case *server.FormEntries:
			return v.Get("title"), nil
		}
	}
	return "", fmt.Errorf("expected a title or a form")
}

func intArg(args []any) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected one argument, got %d", len(args))
	}
	f, ok := args[0].(float64)
	if !ok || f != float64(int(f)) {
		return 0, fmt.Errorf("expected an integer id, got %v", args[0])
	}
	return int(f), nil
}
