// Package demo is the sample application served by the start command: a
// todo list with streamed suspense boundaries, form-driven server
// functions, a redirecting account page and a small JSON API.
package demo

import (
	"strings"
	"time"

	"github.com/vango-dev/start"
	"github.com/vango-dev/start/pkg/assets"
	"github.com/vango-dev/start/pkg/chunks"
)

// DefaultLatency is the simulated store latency.
const DefaultLatency = 300 * time.Millisecond

// Option configures the demo.
type Option func(*site)

// WithManifest resolves client files and route assets through m, served
// under prefix (e.g. "/_build").
func WithManifest(m *assets.Manifest, prefix string) Option {
	return func(s *site) {
		if m != nil {
			s.manifest = m
		}
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// site is what the pages render from.
type site struct {
	store    *Store
	manifest *assets.Manifest
	prefix   string
	assets   assets.Resolver
}

func newSite(store *Store, opts ...Option) *site {
	s := &site{store: store, prefix: start.DefaultAssetsPrefix}
	for _, opt := range opts {
		opt(s)
	}
	base := strings.TrimSuffix(s.prefix, "/") + "/"
	if s.manifest == nil {
		s.manifest = assets.NewManifest()
		s.assets = assets.NewPassthroughResolver(base)
	} else {
		s.assets = assets.NewResolver(s.manifest, base)
	}
	return s
}

// Config returns the application configuration of the demo backed by
// store. Callers add render, static and observability settings.
func Config(store *Store, opts ...Option) start.Config {
	s := newSite(store, opts...)
	return start.Config{
		Root:      root(s),
		Functions: chunks.New(Functions(store)),
		Routes:    Routes(store),
		Static:    start.StaticConfig{AssetsPrefix: s.prefix},
	}
}
