package proxy

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
)

// StaticHandler serves files from the asset root, falling back to the
// index document when no file matches. The fallback enables client-side
// routing: the served application owns every path that is not a real
// asset, and it receives the index with a 200, never a 404.
type StaticHandler struct {
	root  string
	index string
}

// NewStaticHandler creates a handler for the given asset root and index
// document (relative to the root).
func NewStaticHandler(root, index string) *StaticHandler {
	return &StaticHandler{root: root, index: index}
}

// ServeHTTP implements http.Handler.
func (h *StaticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "static assets are read-only")
		return
	}

	// Rooting the cleaned path at "/" strips any ".." segments, so the
	// resolved file can never escape the asset root.
	clean := path.Clean("/" + r.URL.Path)
	file := filepath.Join(h.root, filepath.FromSlash(clean))

	info, err := os.Stat(file)
	if err == nil && !info.IsDir() {
		http.ServeFile(w, r, file)
		return
	}

	h.serveIndex(w, r)
}

// serveIndex serves the index document with a success status.
func (h *StaticHandler) serveIndex(w http.ResponseWriter, r *http.Request) {
	index := filepath.Join(h.root, filepath.FromSlash(path.Clean("/"+h.index)))

	info, err := os.Stat(index)
	if err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	// ServeFile would redirect index requests; ServeContent keeps the
	// original URL so client-side routing sees the path it asked for.
	f, err := os.Open(index)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read index document")
		return
	}
	defer f.Close()

	http.ServeContent(w, r, h.index, info.ModTime(), f)
}
