package static

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"
)

// FSSource reads documents from a filesystem.
type FSSource struct {
	fsys fs.FS
}

// NewFSSource returns a source reading from fsys.
func NewFSSource(fsys fs.FS) *FSSource {
	return &FSSource{fsys: fsys}
}

// Dir returns a source reading from the directory dir.
func Dir(dir string) *FSSource {
	return NewFSSource(os.DirFS(dir))
}

// Document implements event.DocumentFetcher.
func (s *FSSource) Document(ctx context.Context, urlPath string) ([]byte, error) {
	names, err := candidates(urlPath)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		b, err := fs.ReadFile(s.fsys, name)
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}

// CachePolicy selects the Cache-Control headers of FileServer.
type CachePolicy int

const (
	// CacheNone disables caching, for development.
	CacheNone CachePolicy = iota
	// CacheProduction caches fingerprinted files forever and everything
	// else for an hour.
	CacheProduction
)

// FileServer serves files of fsys under prefix. Only GET and HEAD are
// allowed; directories and unsafe paths are 404.
func FileServer(fsys fs.FS, prefix string, policy CachePolicy) http.Handler {
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		if !strings.HasPrefix(r.URL.Path, prefix) {
			http.NotFound(w, r)
			return
		}
		rel, ok := relPath("/" + strings.TrimPrefix(r.URL.Path, prefix))
		if !ok {
			http.NotFound(w, r)
			return
		}

		f, err := fsys.Open(rel)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}
		rs, ok := f.(io.ReadSeeker)
		if !ok {
			http.Error(w, "file not seekable", http.StatusInternalServerError)
			return
		}

		switch {
		case policy == CacheNone:
			w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
		case isFingerprinted(rel):
			w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		default:
			w.Header().Set("Cache-Control", "public, max-age=3600, must-revalidate")
		}
		http.ServeContent(w, r, rel, info.ModTime(), rs)
	})
}
