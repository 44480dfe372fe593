// Package storage serves public objects of the blob store, so image URLs
// saved in content rows resolve against the dashboard itself.
package storage

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/spcai/labcms/pkg/core"
)

// SetupRoutes configures the public object route.
func SetupRoutes(router chi.Router, blobs core.BlobStore, logger *slog.Logger) error {
	handlers := NewHandlers(blobs, logger)

	router.Get(core.PublicObjectPrefix+"{bucket}/*", handlers.Object)

	return nil
}
