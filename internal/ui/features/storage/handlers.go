package storage

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spcai/labcms/internal/blob"
	"github.com/spcai/labcms/pkg/core"
)

// cacheControl lets browsers keep images briefly while edits still show up.
const cacheControl = "public, max-age=60"

// Handlers serves objects of one bucket.
type Handlers struct {
	blobs  core.BlobStore
	logger *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(blobs core.BlobStore, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{blobs: blobs, logger: logger}
}

// Object writes the object named by the wildcard path. Range and
// conditional requests are handled by http.ServeContent.
func (h *Handlers) Object(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "bucket") != h.blobs.Bucket() {
		http.NotFound(w, r)
		return
	}

	p := chi.URLParam(r, "*")
	if unescaped, err := url.PathUnescape(p); err == nil {
		p = unescaped
	}
	p, err := core.CleanObjectPath(p)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data, err := h.blobs.Download(r.Context(), p)
	switch {
	case errors.Is(err, core.ErrNotFound):
		http.NotFound(w, r)
		return
	case errors.Is(err, core.ErrInvalidPath):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		h.logger.Error("failed to serve object", slog.String("path", p), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", blob.DetectMimeType(p, data))
	w.Header().Set("Cache-Control", cacheControl)
	http.ServeContent(w, r, p, time.Time{}, bytes.NewReader(data))
}
