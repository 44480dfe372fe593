package home

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/gorilla/sessions"
	"github.com/spcai/labcms/internal/entity"
	"github.com/spcai/labcms/internal/overview"
	"github.com/spcai/labcms/internal/ui/components"
	"github.com/spcai/labcms/internal/ui/features/common"
	"github.com/spcai/labcms/internal/ui/notifier"
	"github.com/spcai/labcms/pkg/core"
	"github.com/starfederation/datastar-go/datastar"
)

// Handlers provides HTTP handlers for the home feature.
type Handlers struct {
	rows         core.RowStore
	registry     *entity.Registry
	sessionStore sessions.Store
	notifier     *notifier.Notifier
	isDev        bool
	logger       *slog.Logger

	// now is replaced in tests.
	now func() time.Time
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(rows core.RowStore, registry *entity.Registry, sessionStore sessions.Store, notify *notifier.Notifier, isDev bool, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{
		rows:         rows,
		registry:     registry,
		sessionStore: sessionStore,
		notifier:     notify,
		isDev:        isDev,
		logger:       logger,
		now:          time.Now,
	}
}

// HomePage renders the overview page with full content.
func (h *Handlers) HomePage(w http.ResponseWriter, r *http.Request) {
	toasts := common.Flashes(w, r, h.sessionStore)

	var body templ.Component
	data, err := h.buildOverviewData(r.Context())
	if err != nil {
		h.logger.Error("failed to compute overview", slog.Any("error", err))
		toasts = append(toasts, common.Failure(err))
		body = components.LoadError(common.ErrorMessage(err), "/")
	} else {
		body = components.Overview(data)
	}

	page := components.Page(components.PageData{
		Title:      "Overview",
		Nav:        common.Nav(h.registry, "/"),
		UpdatesURL: "/updates",
		Toasts:     toasts,
		Dev:        h.isDev,
	}, body)
	if err := page.Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// HomePageUpdates is the long-lived SSE endpoint for the overview page.
// Content is already rendered by HomePage, so it only pushes changes to
// the content tables.
func (h *Handlers) HomePageUpdates(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	updates := h.notifier.Subscribe(h.registry.Tables()...)
	defer h.notifier.Unsubscribe(updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			if err := h.sendOverview(ctx, sse); err != nil {
				_ = sse.ConsoleError(err)
			}
		}
	}
}

func (h *Handlers) sendOverview(ctx context.Context, sse *datastar.ServerSentEventGenerator) error {
	data, err := h.buildOverviewData(ctx)
	if err != nil {
		return err
	}
	return sse.PatchElementTempl(components.Overview(data))
}

// buildOverviewData computes the statistics and the per-table totals in
// navigation order.
func (h *Handlers) buildOverviewData(ctx context.Context) (components.OverviewData, error) {
	stats, err := overview.Compute(ctx, h.rows, h.registry.Tables(), h.now())
	if err != nil {
		return components.OverviewData{}, err
	}

	data := components.OverviewData{Stats: stats}
	for _, s := range h.registry.Services() {
		desc := s.Descriptor()
		data.Totals = append(data.Totals, components.TotalItem{
			Table: desc.Table,
			Title: desc.Title,
			Count: stats.Totals[desc.Table],
		})
	}
	return data, nil
}
