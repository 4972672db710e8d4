// Package assets describes the client assets a route needs.
//
// The build writes a manifest.json with two sections: fingerprinted file
// names and the assets each route depends on:
//
//	{
//	  "files":  {"entry-client.js": "entry-client.a1b2c3d4.js"},
//	  "routes": {"/dashboard": [{"type": "style", "href": "/assets/dash.css"}]}
//	}
//
// Pages use the route list to emit preload tags. An islands patch that swaps
// an outlet prefixes the assets of the new route so the client can load
// them before inserting the markup.
package assets

import (
	"os"
	"sync"

	"github.com/goccy/go-json"
)

// Asset is one client resource required by a route.
type Asset struct {
	// Type is "script" or "style".
	Type string `json:"type"`
	Href string `json:"href"`
}

// Manifest maps source names to fingerprinted names and routes to their
// assets. It is safe for concurrent use.
type Manifest struct {
	files  map[string]string
	routes map[string][]Asset
	mu     sync.RWMutex
}

type manifestFile struct {
	Files  map[string]string  `json:"files"`
	Routes map[string][]Asset `json:"routes"`
}

// NewManifest creates an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{
		files:  make(map[string]string),
		routes: make(map[string][]Asset),
	}
}

// Load reads a manifest.json file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f manifestFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	m := NewManifest()
	for k, v := range f.Files {
		m.files[k] = v
	}
	for k, v := range f.Routes {
		m.routes[k] = v
	}
	return m, nil
}

// Resolve returns the fingerprinted path for source, or source unchanged.
func (m *Manifest) Resolve(source string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if resolved, ok := m.files[source]; ok {
		return resolved
	}
	return source
}

// Has reports whether the manifest contains source.
func (m *Manifest) Has(source string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.files[source]
	return ok
}

// Set adds or updates a file entry.
func (m *Manifest) Set(source, resolved string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.files[source] = resolved
}

// SetRoute replaces the asset list of a route.
func (m *Manifest) SetRoute(route string, list ...Asset) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.routes[route] = append([]Asset(nil), list...)
}

// Route returns the assets of the given routes in order, without duplicates.
func (m *Manifest) Route(routes ...string) []Asset {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Asset
	seen := make(map[Asset]bool)
	for _, r := range routes {
		for _, a := range m.routes[r] {
			if seen[a] {
				continue
			}
			seen[a] = true
			out = append(out, a)
		}
	}
	return out
}

// Len returns the number of file entries.
func (m *Manifest) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.files)
}
