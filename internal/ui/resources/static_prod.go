//go:build !dev

package resources

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
)

//go:embed static/*
var staticFS embed.FS

var versions = sync.OnceValue(func() map[string]string {
	out := map[string]string{}
	_ = fs.WalkDir(staticFS, "static", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := staticFS.ReadFile(p)
		if err != nil {
			return err
		}
		sum := sha256.Sum256(data)
		out[p[len("static/"):]] = hex.EncodeToString(sum[:4])
		return nil
	})
	return out
})

func version(name string) string {
	return versions()[name]
}

// Handler serves the embedded assets. Requests carrying the current content
// version are cacheable forever; anything else must revalidate.
func Handler(logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	sub, _ := fs.Sub(staticFS, "static")
	files := http.StripPrefix(Prefix, http.FileServer(http.FS(sub)))
	logger.Debug("serving embedded static assets", slog.Int("files", len(versions())))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Path[min(len(Prefix), len(r.URL.Path)):]
		if v := r.URL.Query().Get("v"); v != "" && v == version(name) {
			w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		} else {
			w.Header().Set("Cache-Control", "no-cache")
		}
		files.ServeHTTP(w, r)
	})
}
