// Package ui provides the web dashboard of labcms.
package ui

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"github.com/spcai/labcms/internal/entity"
	"github.com/spcai/labcms/internal/platform"
	"github.com/spcai/labcms/internal/ui/notifier"
	"github.com/spcai/labcms/internal/ui/router"
	"golang.org/x/sync/errgroup"
)

// DefaultShutdownTimeout bounds graceful shutdown when Config leaves it unset.
const DefaultShutdownTimeout = 5 * time.Second

// Server is the main UI server.
type Server struct {
	platform        *platform.Platform
	registry        *entity.Registry
	sessionStore    *sessions.CookieStore
	port            int
	watch           bool
	itemsPerPage    int
	shutdownTimeout time.Duration
	dev             bool
	logger          *slog.Logger
	notifier        *notifier.Notifier
}

// Config holds configuration for the UI server.
type Config struct {
	Platform        *platform.Platform
	Registry        *entity.Registry
	Port            int
	Watch           bool
	SessionSecret   string
	ItemsPerPage    int
	ShutdownTimeout time.Duration
	Dev             bool
	Logger          *slog.Logger
}

// NewServer creates a new UI server instance.
func NewServer(cfg Config) *Server {
	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.MaxAge(86400 * 30) // 30 days
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	registry := cfg.Registry
	if registry == nil {
		registry = entity.NewRegistry(cfg.Platform.Platform, logger)
	}
	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}

	return &Server{
		platform:        cfg.Platform,
		registry:        registry,
		sessionStore:    sessionStore,
		port:            cfg.Port,
		watch:           cfg.Watch,
		itemsPerPage:    cfg.ItemsPerPage,
		shutdownTimeout: timeout,
		dev:             cfg.Dev,
		logger:          logger,
		notifier:        notifier.New(),
	}
}

// Handler builds the router with middleware and all feature routes.
func (s *Server) Handler() (http.Handler, error) {
	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	if err := router.SetupRoutes(r, router.Options{
		Platform:     s.platform.Platform,
		Registry:     s.registry,
		SessionStore: s.sessionStore,
		Notifier:     s.notifier,
		ItemsPerPage: s.itemsPerPage,
		IsDev:        s.IsDev(),
		Logger:       s.logger,
	}); err != nil {
		return nil, fmt.Errorf("failed to setup routes: %w", err)
	}
	return r, nil
}

// Serve starts the UI server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting UI server", "addr", fmt.Sprintf("http://localhost:%d", s.port))

	eg, egctx := errgroup.WithContext(ctx)

	handler, err := s.Handler()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start the bucket watcher if enabled
	if s.watch {
		if !s.platform.Watchable() {
			s.logger.Warn("blob store cannot be watched, live file updates disabled")
		}
		eg.Go(func() error {
			return s.platform.Watch(egctx, s.notifyFiles)
		})
	}

	// Start HTTP server
	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		s.logger.Debug("shutting down UI server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// IsDev returns true if running in development mode.
func (s *Server) IsDev() bool {
	return s.dev
}

// Notifier returns the server's notifier for SSE updates.
func (s *Server) Notifier() *notifier.Notifier {
	return s.notifier
}

// notifyFiles tells the file browsers that objects changed outside the UI.
func (s *Server) notifyFiles() {
	s.logger.Debug("bucket changed")
	s.notifier.Broadcast(notifier.TopicFiles)
}
