// Package router sets up HTTP routes for the UI server.
package router

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/spcai/labcms/internal/entity"
	entitiesFeature "github.com/spcai/labcms/internal/ui/features/entities"
	filesFeature "github.com/spcai/labcms/internal/ui/features/files"
	homeFeature "github.com/spcai/labcms/internal/ui/features/home"
	storageFeature "github.com/spcai/labcms/internal/ui/features/storage"
	"github.com/spcai/labcms/internal/ui/notifier"
	"github.com/spcai/labcms/internal/ui/resources"
	"github.com/spcai/labcms/pkg/core"
	"github.com/starfederation/datastar-go/datastar"
)

// Options holds the collaborators shared by all feature routes.
type Options struct {
	Platform     core.Platform
	Registry     *entity.Registry
	SessionStore sessions.Store
	Notifier     *notifier.Notifier
	ItemsPerPage int
	IsDev        bool
	Logger       *slog.Logger
}

// SetupRoutes configures all routes for the UI server.
func SetupRoutes(router chi.Router, opts Options) error {
	// Hot reload endpoint for dev mode
	if opts.IsDev {
		setupReload(router)
	}

	// Static assets
	router.Handle(resources.Prefix+"*", resources.Handler(opts.Logger))

	// Feature routes
	if err := homeFeature.SetupRoutes(router, opts.Platform.Rows, opts.Registry, opts.SessionStore, opts.Notifier, opts.IsDev, opts.Logger); err != nil {
		return err
	}

	if err := entitiesFeature.SetupRoutes(router, opts.Registry, opts.SessionStore, opts.Notifier, opts.ItemsPerPage, opts.IsDev, opts.Logger); err != nil {
		return err
	}

	if err := filesFeature.SetupRoutes(router, opts.Platform.Blobs, opts.Registry, opts.SessionStore, opts.Notifier, opts.IsDev, opts.Logger); err != nil {
		return err
	}

	if err := storageFeature.SetupRoutes(router, opts.Platform.Blobs, opts.Logger); err != nil {
		return err
	}

	return nil
}

func setupReload(router chi.Router) {
	reloadChan := make(chan struct{}, 1)
	var hotReloadOnce sync.Once

	router.Get("/reload", func(w http.ResponseWriter, r *http.Request) {
		sse := datastar.NewSSE(w, r)
		reload := func() { _ = sse.ExecuteScript("window.location.reload()") }
		hotReloadOnce.Do(reload)
		select {
		case <-reloadChan:
			reload()
		case <-r.Context().Done():
		}
	})

	router.Get("/hotreload", func(w http.ResponseWriter, _ *http.Request) {
		select {
		case reloadChan <- struct{}{}:
		default:
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}
