//go:build dev

package resources

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
)

// sourceDir locates static/ next to this file so edits show up without a rebuild.
func sourceDir() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return filepath.Join("internal", "ui", "resources", "static")
	}
	return filepath.Join(filepath.Dir(file), "static")
}

func version(string) string { return "" }

// Handler serves the assets from the source tree and disables caching.
func Handler(logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	dir := sourceDir()
	logger.Info("serving static assets from disk", slog.String("dir", dir))
	files := http.StripPrefix(Prefix, http.FileServer(http.FS(os.DirFS(dir))))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		files.ServeHTTP(w, r)
	})
}
