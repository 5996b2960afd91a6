package server

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
)

// spa serves files from root and falls back to index.html for page routes
// so client-side routing works on reload.
func spa(root string) http.Handler {
	files := http.FileServer(http.Dir(root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := path.Clean("/" + r.URL.Path)
		if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(p))); err != nil && path.Ext(p) == "" {
			http.ServeFile(w, r, filepath.Join(root, "index.html"))
			return
		}
		files.ServeHTTP(w, r)
	})
}
