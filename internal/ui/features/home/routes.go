// Package home provides the overview landing page of the dashboard.
package home

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/spcai/labcms/internal/entity"
	"github.com/spcai/labcms/internal/ui/notifier"
	"github.com/spcai/labcms/pkg/core"
)

// SetupRoutes configures routes for the home feature.
func SetupRoutes(
	router chi.Router,
	rows core.RowStore,
	registry *entity.Registry,
	sessionStore sessions.Store,
	notify *notifier.Notifier,
	isDev bool,
	logger *slog.Logger,
) error {
	handlers := NewHandlers(rows, registry, sessionStore, notify, isDev, logger)

	router.Get("/", handlers.HomePage)
	router.Get("/updates", handlers.HomePageUpdates)

	return nil
}
