package entities

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/spcai/labcms/internal/entity"
	"github.com/spcai/labcms/internal/ui/notifier"
)

// SetupRoutes configures the routes of every content table under
// /{table}.
func SetupRoutes(
	router chi.Router,
	registry *entity.Registry,
	sessionStore sessions.Store,
	notify *notifier.Notifier,
	perPage int,
	isDev bool,
	logger *slog.Logger,
) error {
	for _, service := range registry.Services() {
		handlers := NewHandlers(service, registry, sessionStore, notify, perPage, isDev, logger)

		router.Route("/"+service.Descriptor().Table, func(r chi.Router) {
			r.Get("/", handlers.Page)
			r.Get("/updates", handlers.Updates)
			r.Post("/table", handlers.Table)
			r.Post("/add", handlers.Add)
			r.Post("/edit/{id}", handlers.Edit)
			r.Post("/change/{field}", handlers.Change)
			r.Post("/save", handlers.Save)
			r.Post("/cancel", handlers.Cancel)
			r.Post("/delete/{id}", handlers.Delete)
			r.Post("/dismiss", handlers.Dismiss)
			r.Post("/confirm", handlers.Confirm)
		})
	}
	return nil
}
