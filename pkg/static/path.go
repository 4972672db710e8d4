// Package static serves prebuilt documents and client assets.
//
// A Source implements event.DocumentFetcher: FSSource reads documents from
// a directory or embedded filesystem, S3Source from an S3 bucket. Both map
// a route path to an HTML file, so "/index" reads "index.html" and "/docs"
// reads "docs.html" or "docs/index.html".
//
// FileServer serves the client build output with cache headers suited to
// fingerprinted files.
package static

import (
	"errors"
	"path"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when no document exists for a path.
var ErrNotFound = errors.New("static: document not found")

// ErrBadPath is returned for paths that could escape the source root.
var ErrBadPath = errors.New("static: invalid path")

// relPath returns a sanitized relative path for a request path. It rejects
// traversal and absolute-path tricks so a lookup cannot escape the source
// root.
func relPath(urlPath string) (string, bool) {
	rel := strings.TrimPrefix(urlPath, "/")
	if rel == "" {
		return "", false
	}

	// NUL can arrive as %00.
	if strings.IndexByte(rel, 0) != -1 || strings.Contains(rel, "\\") {
		return "", false
	}

	// "//etc/passwd" is still absolute after one slash is trimmed.
	if strings.HasPrefix(rel, "/") {
		return "", false
	}

	// Check dot-segments before cleaning, which would hide them.
	for _, seg := range strings.Split(rel, "/") {
		if seg == "." || seg == ".." {
			return "", false
		}
	}

	clean := path.Clean(rel)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", false
	}

	osPath := filepath.FromSlash(clean)
	if filepath.IsAbs(osPath) || filepath.VolumeName(osPath) != "" {
		return "", false
	}
	return clean, true
}

// candidates lists the files that may hold the document for a route path.
func candidates(urlPath string) ([]string, error) {
	rel, ok := relPath(urlPath)
	if !ok {
		return nil, ErrBadPath
	}
	if path.Ext(rel) == ".html" {
		return []string{rel}, nil
	}
	return []string{rel + ".html", rel + "/index.html"}, nil
}

// isFingerprinted reports whether a file name carries a content hash,
// e.g. "app.a1b2c3d4.css".
func isFingerprinted(filePath string) bool {
	parts := strings.Split(path.Base(filePath), ".")
	if len(parts) < 3 {
		return false
	}

	hash := parts[len(parts)-2]
	if len(hash) < 8 {
		return false
	}
	for _, c := range hash {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
