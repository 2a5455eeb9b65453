package assets

import (
	"fmt"
	"io/fs"
	"mime"
	"path"
	"strings"
)

// Asset is one embedded file: its bytes plus the content type inferred
// from its path at store construction time.
type Asset struct {
	Data        []byte
	ContentType string
}

// Store is a read-only lookup of embedded static content by relative
// path. It is built once at startup and never mutated, so it is safe for
// concurrent use without locking.
type Store struct {
	files map[string]Asset
}

// NewStore builds a store from an explicit path -> asset map. Paths are
// normalized to have no leading slash. Assets without a content type get
// one inferred from their extension.
func NewStore(files map[string]Asset) *Store {
	m := make(map[string]Asset, len(files))
	for p, a := range files {
		if a.ContentType == "" {
			a.ContentType = ContentTypeFor(p)
		}
		m[strings.TrimPrefix(p, "/")] = a
	}
	return &Store{files: m}
}

// NewStoreFS builds a store by reading every regular file under fsys.
// The filesystem is read exactly once; later changes to the underlying
// source are not observed.
func NewStoreFS(fsys fs.FS) (*Store, error) {
	files := make(map[string]Asset)
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("failed to read asset %q: %w", p, err)
		}
		files[p] = Asset{Data: data, ContentType: ContentTypeFor(p)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Store{files: files}, nil
}

// Lookup returns the asset for a request path. A leading slash is
// stripped and the bare root maps to index.html.
func (s *Store) Lookup(p string) (Asset, bool) {
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		p = "index.html"
	}
	a, ok := s.files[p]
	return a, ok
}

// Len returns the number of stored assets.
func (s *Store) Len() int {
	return len(s.files)
}

// fallbackTypes covers the frontend build output extensions that the
// platform mime database may not know about.
var fallbackTypes = map[string]string{
	".html":  "text/html; charset=utf-8",
	".css":   "text/css; charset=utf-8",
	".js":    "text/javascript; charset=utf-8",
	".mjs":   "text/javascript; charset=utf-8",
	".json":  "application/json",
	".svg":   "image/svg+xml",
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".ico":   "image/x-icon",
	".wasm":  "application/wasm",
	".woff2": "font/woff2",
	".woff":  "font/woff",
	".txt":   "text/plain; charset=utf-8",
	".map":   "application/json",
}

// ContentTypeFor infers a content type from a path's extension.
func ContentTypeFor(p string) string {
	ext := strings.ToLower(path.Ext(p))
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	if ct, ok := fallbackTypes[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}
