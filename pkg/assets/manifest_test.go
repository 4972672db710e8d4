package assets

import (
	"os"
	"path/filepath"
	"testing"
)

func TestManifestResolve(t *testing.T) {
	m := NewManifest()
	m.Set("entry-client.js", "entry-client.abc123.js")

	tests := []struct {
		name     string
		source   string
		expected string
	}{
		{"found entry", "entry-client.js", "entry-client.abc123.js"},
		{"missing entry returns original", "unknown.js", "unknown.js"},
		{"empty string returns empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Resolve(tt.source); got != tt.expected {
				t.Errorf("Resolve(%q) = %q, want %q", tt.source, got, tt.expected)
			}
		})
	}

	if !m.Has("entry-client.js") || m.Has("unknown.js") {
		t.Error("Has() does not match entries")
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
}

func TestManifestRouteDeduplicates(t *testing.T) {
	m := NewManifest()
	shared := Asset{Type: "style", Href: "/assets/base.css"}
	m.SetRoute("/", shared)
	m.SetRoute("/dashboard", shared, Asset{Type: "script", Href: "/assets/dash.js"})

	got := m.Route("/", "/dashboard", "/missing")
	if len(got) != 2 {
		t.Fatalf("Route() = %v, want 2 assets", got)
	}
	if got[0] != shared {
		t.Errorf("Route()[0] = %v, want %v", got[0], shared)
	}
	if got[1].Href != "/assets/dash.js" {
		t.Errorf("Route()[1].Href = %q, want /assets/dash.js", got[1].Href)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")

	content := `{
		"files": {"entry-client.js": "entry-client.abc123.js"},
		"routes": {"/dashboard": [{"type": "style", "href": "/assets/dash.css"}]}
	}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := m.Resolve("entry-client.js"); got != "entry-client.abc123.js" {
		t.Errorf("Resolve() = %q, want entry-client.abc123.js", got)
	}
	if got := m.Route("/dashboard"); len(got) != 1 || got[0].Type != "style" {
		t.Errorf("Route(/dashboard) = %v, want one style asset", got)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load("/nonexistent/manifest.json"); err == nil {
		t.Error("Load() should return error for missing file")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")
	if err := os.WriteFile(path, []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() should return error for invalid JSON")
	}
}

func TestResolvers(t *testing.T) {
	m := NewManifest()
	m.Set("entry-client.js", "entry-client.abc123.js")

	tests := []struct {
		name     string
		resolver Resolver
		source   string
		expected string
	}{
		{"manifest with prefix", NewResolver(m, "/assets/"), "entry-client.js", "/assets/entry-client.abc123.js"},
		{"manifest missing entry", NewResolver(m, "/assets/"), "logo.png", "/assets/logo.png"},
		{"manifest without prefix", NewResolver(m, ""), "entry-client.js", "entry-client.abc123.js"},
		{"passthrough", NewPassthroughResolver("/assets/"), "images/logo.png", "/assets/images/logo.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.resolver.Asset(tt.source); got != tt.expected {
				t.Errorf("Asset(%q) = %q, want %q", tt.source, got, tt.expected)
			}
		})
	}
}
