package start

import (
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vango-dev/start/pkg/chunks"
	"github.com/vango-dev/start/pkg/codec"
	"github.com/vango-dev/start/pkg/event"
	"github.com/vango-dev/start/pkg/render"
	"github.com/vango-dev/start/pkg/server"
	"github.com/vango-dev/start/pkg/static"
)

// =============================================================================
// App Type
// =============================================================================

// App is the application entry point. It classifies every request and
// hands it to the server function endpoint, an API route or the page
// orchestrator.
//
//	app := start.New(start.Config{
//	    Root:      routes.Root,
//	    Functions: chunks.New(routes.Functions),
//	    Routes:    routes.API,
//	    Static:    start.StaticConfig{FS: os.DirFS("dist")},
//	})
//	http.ListenAndServe(":3000", app)
type App struct {
	config Config

	routes *server.Routes
	rpc    *server.RPCHandler
	pages  *render.Orchestrator
	scopes *codec.Registry

	// Client assets
	assets       http.Handler
	assetsPrefix string

	env    event.Env
	logger *slog.Logger
}

// New creates an application. The route table and chunk manifest are
// fixed from here on.
func New(cfg Config) *App {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Static.AssetsPrefix == "" {
		cfg.Static.AssetsPrefix = DefaultAssetsPrefix
	}
	if cfg.Functions == nil {
		cfg.Functions = chunks.New(nil)
	}

	app := &App{
		config: cfg,
		routes: server.NewRoutes(logger, cfg.Routes...),
		scopes: codec.NewRegistry(logger),
		env: event.Env{
			Static: cfg.documents(),
			Values: cfg.Values,
		},
		assetsPrefix: strings.TrimSuffix(cfg.Static.AssetsPrefix, "/"),
		logger:       logger.With("component", "app"),
	}

	inv := server.NewInvoker(cfg.Functions,
		server.WithHooks(cfg.InvokeHooks...),
		server.WithInvokerLogger(logger.With("component", "invoker")),
	)
	app.rpc = server.NewRPCHandler(inv, server.RPCConfig{
		MaxBodyBytes:         cfg.RPC.MaxBodyBytes,
		AllowedRedirectHosts: cfg.RPC.AllowedRedirectHosts,
		Registry:             app.scopes,
		Logger:               logger,
	})

	if cfg.Root != nil {
		opts := append([]render.Option{render.WithLogger(logger)}, cfg.Render...)
		app.pages = render.New(cfg.Root, opts...)
	}

	if cfg.Static.FS != nil {
		sub, err := fs.Sub(cfg.Static.FS, strings.TrimPrefix(app.assetsPrefix, "/"))
		if err != nil {
			logger.Warn("client assets disabled", "prefix", app.assetsPrefix, "error", err)
		} else {
			app.assets = static.FileServer(sub, app.assetsPrefix, cfg.cachePolicy())
		}
	}

	return app
}

// =============================================================================
// http.Handler Implementation
// =============================================================================

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if a.assets != nil && a.isAsset(r) {
		a.assets.ServeHTTP(w, r)
		return
	}

	fe := event.NewFetchEvent(r, a.env)
	fe.Logger = a.logger.With("request_id", fe.ID)
	r = r.WithContext(event.WithFetchEvent(r.Context(), fe))

	for _, h := range a.config.OnRequest {
		if h(w, r, fe) {
			return
		}
	}
	if len(a.config.OnBeforeResponse) > 0 {
		w = &hookWriter{ResponseWriter: w, fe: fe, hooks: a.config.OnBeforeResponse}
	}

	switch kind := server.Classify(r, a.routes); kind {
	case server.KindRPC:
		a.rpc.ServeHTTP(w, r)
	case server.KindAPI:
		a.routes.ServeHTTP(w, r)
	default:
		a.servePage(w, r)
	}
}

func (a *App) servePage(w http.ResponseWriter, r *http.Request) {
	if a.pages == nil {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	a.pages.ServeHTTP(w, r)
}

func (a *App) isAsset(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, a.assetsPrefix+"/")
}

// =============================================================================
// Accessors
// =============================================================================

// Kind labels r with its handling path: "rpc", "api" or "page". It suits
// the classify argument of the middleware package.
func (a *App) Kind(r *http.Request) string {
	return server.Classify(r, a.routes).String()
}

// Routes returns the API route table, sorted by path and method.
func (a *App) Routes() []server.Entry {
	return a.routes.Entries()
}

// Scopes returns the registry of open server function result streams.
func (a *App) Scopes() *codec.Registry {
	return a.scopes
}

// Pages returns the page orchestrator, or nil without a Root.
func (a *App) Pages() *render.Orchestrator {
	return a.pages
}
