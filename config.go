package start

import (
	"io/fs"
	"log/slog"

	"github.com/vango-dev/start/pkg/chunks"
	"github.com/vango-dev/start/pkg/event"
	"github.com/vango-dev/start/pkg/render"
	"github.com/vango-dev/start/pkg/server"
	"github.com/vango-dev/start/pkg/static"
)

// =============================================================================
// Configuration Types
// =============================================================================

// Config is the main application configuration.
type Config struct {
	// Root builds the page for every request that is neither a server
	// function call nor an API route. If nil, pages are 404.
	Root render.RootFunc

	// Render configures the page orchestrator.
	Render []render.Option

	// Functions is the chunk manifest server functions are resolved from.
	// If nil, every server function call fails with 500.
	Functions *chunks.Manifest

	// InvokeHooks observe server function calls (metrics, tracing).
	InvokeHooks []server.InvokeHook

	// RPC configures the server function endpoint.
	RPC RPCConfig

	// Routes is the API route table. It is fixed once New returns.
	Routes []server.Route

	// Static configures prebuilt documents and client assets.
	Static StaticConfig

	// Values are named environment bindings exposed on every FetchEvent.
	Values map[string]any

	// OnRequest hooks run in order before classification. A hook that
	// reports true has written the response and stops the request.
	// Requests under Static.AssetsPrefix are served before any hook runs.
	OnRequest []RequestHook

	// OnBeforeResponse hooks run in order just before the status line is
	// written, whatever handler produced the response. They may change
	// headers only: the status and body are already committed. Client
	// asset responses skip them.
	OnBeforeResponse []ResponseHook

	// DevMode disables asset caching.
	DevMode bool

	// Logger is the structured logger for the application.
	// If nil, slog.Default() is used.
	Logger *slog.Logger
}

// RPCConfig configures the server function endpoint.
type RPCConfig struct {
	// MaxBodyBytes bounds request bodies.
	// Default: server.DefaultMaxBodyBytes (1 MiB).
	MaxBodyBytes int64

	// AllowedRedirectHosts lists hosts server functions may redirect to
	// with an absolute URL. Empty allows any target.
	AllowedRedirectHosts []string
}

// StaticConfig configures prebuilt documents and client assets.
type StaticConfig struct {
	// FS holds prebuilt documents at its root and client assets under
	// AssetsPrefix, e.g. index.html and _build/entry-client.js.
	FS fs.FS

	// AssetsPrefix is the URL path of the client assets.
	// Default: "/_build".
	AssetsPrefix string

	// Documents overrides the document source derived from FS, e.g. with
	// a static.S3Source.
	Documents event.DocumentFetcher
}

// DefaultAssetsPrefix is the default URL path of client assets.
const DefaultAssetsPrefix = "/_build"

func (c *Config) documents() event.DocumentFetcher {
	if c.Static.Documents != nil {
		return c.Static.Documents
	}
	if c.Static.FS != nil {
		return static.NewFSSource(c.Static.FS)
	}
	return nil
}

func (c *Config) cachePolicy() static.CachePolicy {
	if c.DevMode {
		return static.CacheNone
	}
	return static.CacheProduction
}
