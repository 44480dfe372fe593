package files

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/spcai/labcms/internal/entity"
	"github.com/spcai/labcms/internal/ui/notifier"
	"github.com/spcai/labcms/pkg/core"
)

// SetupRoutes configures routes for the file browser.
func SetupRoutes(
	router chi.Router,
	blobs core.BlobStore,
	registry *entity.Registry,
	sessionStore sessions.Store,
	notify *notifier.Notifier,
	isDev bool,
	logger *slog.Logger,
) error {
	handlers := NewHandlers(blobs, registry, sessionStore, notify, isDev, logger)

	router.Route("/files", func(r chi.Router) {
		r.Get("/", handlers.Page)
		r.Get("/updates", handlers.Updates)
		r.Post("/tree", handlers.Tree)
		r.Post("/toggle", handlers.Toggle)
		r.Post("/preview", handlers.Preview)
		r.Post("/rename", handlers.Rename)
		r.Post("/move", handlers.Move)
		r.Post("/delete", handlers.Delete)
		r.Post("/folder", handlers.CreateFolder)
		r.Post("/upload", handlers.Upload)
	})
	return nil
}
