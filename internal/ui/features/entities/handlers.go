package entities

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/spcai/labcms/internal/entity"
	"github.com/spcai/labcms/internal/table"
	"github.com/spcai/labcms/internal/ui/components"
	"github.com/spcai/labcms/internal/ui/features/common"
	"github.com/spcai/labcms/internal/ui/notifier"
	"github.com/spcai/labcms/pkg/core"
	"github.com/starfederation/datastar-go/datastar"
)

// refreshScript makes the page re-post its current table signals.
const refreshScript = "document.getElementById('table-refresh')?.click()"

// Handlers provides HTTP handlers for one content table.
type Handlers struct {
	service      entity.Service
	registry     *entity.Registry
	sessionStore sessions.Store
	notifier     *notifier.Notifier
	perPage      int
	isDev        bool
	logger       *slog.Logger
}

// NewHandlers creates a new Handlers instance for service.
func NewHandlers(service entity.Service, registry *entity.Registry, sessionStore sessions.Store, notify *notifier.Notifier, perPage int, isDev bool, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if perPage <= 0 {
		perPage = table.DefaultItemsPerPage
	}
	return &Handlers{
		service:      service,
		registry:     registry,
		sessionStore: sessionStore,
		notifier:     notify,
		perPage:      perPage,
		isDev:        isDev,
		logger:       logger.With(slog.String("table", service.Descriptor().Table)),
	}
}

func (h *Handlers) base() string { return "/" + h.service.Descriptor().Table }

func (h *Handlers) topic() string { return h.service.Descriptor().Table }

// Page renders the table page with its first page of records. A failed
// load renders the error block with a reload link instead.
func (h *Handlers) Page(w http.ResponseWriter, r *http.Request) {
	desc := h.service.Descriptor()
	toasts := common.Flashes(w, r, h.sessionStore)

	var body templ.Component
	records, err := h.service.Records(r.Context())
	if err != nil {
		h.logger.Error("failed to load records", slog.Any("error", err))
		toasts = append(toasts, common.Failure(err))
		body = components.LoadError(common.ErrorMessage(err), h.base())
	} else {
		body = components.Entity(components.EntityData{
			Title:    desc.Title,
			Singular: desc.Singular,
			Fields:   formFields(desc),
			Table:    h.tableData(records, table.State{Page: 1}),
		})
	}

	page := components.Page(components.PageData{
		Title:      desc.Title,
		Nav:        common.Nav(h.registry, h.base()),
		UpdatesURL: h.base() + "/updates",
		Signals:    initialSignals(),
		Toasts:     toasts,
		Dev:        h.isDev,
	}, body)
	if err := page.Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Updates is the long-lived SSE endpoint of the page. When the table
// changes it asks the page to re-post its signals, so the refreshed table
// keeps the client's search, page and edit state.
func (h *Handlers) Updates(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	updates := h.notifier.Subscribe(h.topic())
	defer h.notifier.Unsubscribe(updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			if err := sse.ExecuteScript(refreshScript); err != nil {
				return
			}
		}
	}
}

// Table re-renders the table for the posted search and page.
func (h *Handlers) Table(w http.ResponseWriter, r *http.Request) {
	sig, sse, ok := h.read(w, r)
	if !ok {
		return
	}
	records, err := h.service.Records(r.Context())
	if err != nil {
		_ = common.SendToast(sse, common.Failure(err))
		return
	}
	h.sendTable(sse, records, sig)
}

// Edit opens the inline editor on one row, abandoning any other.
func (h *Handlers) Edit(w http.ResponseWriter, r *http.Request) {
	sig, sse, ok := h.read(w, r)
	if !ok {
		return
	}
	records, err := h.service.Records(r.Context())
	if err != nil {
		_ = common.SendToast(sse, common.Failure(err))
		return
	}

	id := chi.URLParam(r, "id")
	rec, found := findRecord(records, id)
	if !found {
		_ = common.SendToast(sse, common.Failure(fmt.Errorf("record %s: %w", id, core.ErrNotFound)))
		h.sendTable(sse, records, sig)
		return
	}

	s := table.Begin(rec)
	sig.Editing = s.EditingID
	sig.Edited = s.Edited
	sig.Updated = nil
	if err := sse.MarshalAndPatchSignals(map[string]any{
		"editing": s.EditingID,
		"edited":  s.Edited,
		"updated": []string{},
	}); err != nil {
		_ = sse.ConsoleError(err)
	}
	h.sendTable(sse, records, sig)
}

// Change marks a field of the open editor as changed.
func (h *Handlers) Change(w http.ResponseWriter, r *http.Request) {
	sig, sse, ok := h.read(w, r)
	if !ok {
		return
	}
	s := sig.session()
	if s == nil {
		return
	}
	field := chi.URLParam(r, "field")
	s.Change(field, s.Edited[field])
	if err := sse.MarshalAndPatchSignals(map[string]any{"updated": s.Updated}); err != nil {
		_ = sse.ConsoleError(err)
	}
}

// Save sends the changed fields of the open editor, reloads and closes the
// editor whatever the outcome.
func (h *Handlers) Save(w http.ResponseWriter, r *http.Request) {
	sig, sse, ok := h.read(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	records, err := h.service.Records(ctx)
	if err != nil {
		_ = common.SendToast(sse, common.Failure(err))
		return
	}

	s := sig.session()
	fresh := records
	err = table.Save(ctx, s, records, h.service.Descriptor().Columns, table.Callbacks{
		OnUpdate: func(ctx context.Context, directives []core.UpdateDirective, _ core.Record) error {
			return h.service.Update(ctx, s.EditingID, directives)
		},
		OnReload: h.reload(&fresh),
	})

	sig.endEdit()
	h.patchEditCleared(sse)
	switch {
	case s == nil:
	case err != nil:
		h.logger.Warn("update failed", slog.String("id", s.EditingID), slog.Any("error", err))
		_ = common.SendToast(sse, common.Failure(err))
	default:
		h.logger.Info("record updated", slog.String("id", s.EditingID), slog.Int("fields", len(s.Updated)))
		_ = common.SendToast(sse, common.Success("Record updated successfully"))
		h.notifier.Broadcast(h.topic())
	}
	h.sendTable(sse, fresh, sig)
}

// Cancel closes the editor without saving.
func (h *Handlers) Cancel(w http.ResponseWriter, r *http.Request) {
	sig, sse, ok := h.read(w, r)
	if !ok {
		return
	}
	records, err := h.service.Records(r.Context())
	if err != nil {
		_ = common.SendToast(sse, common.Failure(err))
		return
	}
	sig.endEdit()
	h.patchEditCleared(sse)
	h.sendTable(sse, records, sig)
}

// Delete asks for confirmation before deleting a row.
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	sig, sse, ok := h.read(w, r)
	if !ok {
		return
	}
	records, err := h.service.Records(r.Context())
	if err != nil {
		_ = common.SendToast(sse, common.Failure(err))
		return
	}
	sig.PendingDelete = chi.URLParam(r, "id")
	_ = sse.MarshalAndPatchSignals(map[string]any{"pendingDelete": sig.PendingDelete})
	h.sendTable(sse, records, sig)
}

// Dismiss closes the confirmation without deleting.
func (h *Handlers) Dismiss(w http.ResponseWriter, r *http.Request) {
	sig, sse, ok := h.read(w, r)
	if !ok {
		return
	}
	records, err := h.service.Records(r.Context())
	if err != nil {
		_ = common.SendToast(sse, common.Failure(err))
		return
	}
	sig.PendingDelete = ""
	_ = sse.MarshalAndPatchSignals(map[string]any{"pendingDelete": ""})
	h.sendTable(sse, records, sig)
}

// Confirm deletes the row awaiting confirmation. The table is reloaded only
// when the delete succeeds.
func (h *Handlers) Confirm(w http.ResponseWriter, r *http.Request) {
	sig, sse, ok := h.read(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	records, err := h.service.Records(ctx)
	if err != nil {
		_ = common.SendToast(sse, common.Failure(err))
		return
	}

	pending := sig.PendingDelete
	fresh := records
	err = table.Confirm(ctx, pending, records, table.Callbacks{
		OnDelete: func(ctx context.Context, rec core.Record) error {
			return h.service.Delete(ctx, rec.ID)
		},
		OnReload: h.reload(&fresh),
	})

	sig.PendingDelete = ""
	_ = sse.MarshalAndPatchSignals(map[string]any{"pendingDelete": ""})
	switch {
	case pending == "":
	case err != nil:
		h.logger.Warn("delete failed", slog.String("id", pending), slog.Any("error", err))
		_ = common.SendToast(sse, common.Failure(err))
	default:
		h.logger.Info("record deleted", slog.String("id", pending))
		_ = common.SendToast(sse, common.Success("Record deleted successfully"))
		h.notifier.Broadcast(h.topic())
	}
	h.sendTable(sse, fresh, sig)
}

// Add handles the multipart add form and redirects back to the page with
// the outcome as a flash.
func (h *Handlers) Add(w http.ResponseWriter, r *http.Request) {
	desc := h.service.Descriptor()
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	var toast components.Toast
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		toast = common.Failure(fmt.Errorf("failed to read form: %w", err))
	} else if img, err := formImage(r); err != nil {
		toast = common.Failure(err)
	} else if err := h.service.AddForm(r.Context(), r.PostForm, img); err != nil {
		h.logger.Warn("add failed", slog.Any("error", err))
		toast = common.Failure(err)
	} else {
		h.logger.Info("record added")
		toast = common.Success(fmt.Sprintf("%s added successfully", table.Label(desc.Singular)))
		h.notifier.Broadcast(h.topic())
	}

	if err := common.AddFlash(w, r, h.sessionStore, toast); err != nil {
		h.logger.Error("failed to save flash", slog.Any("error", err))
	}
	http.Redirect(w, r, h.base(), http.StatusSeeOther)
}

// read decodes the signals of a table request and opens the SSE stream.
func (h *Handlers) read(w http.ResponseWriter, r *http.Request) (TableSignals, *datastar.ServerSentEventGenerator, bool) {
	var sig TableSignals
	// Signals must be read before the SSE stream takes over the response.
	err := datastar.ReadSignals(r, &sig)
	sse := datastar.NewSSE(w, r)
	if err != nil {
		_ = common.SendToast(sse, common.Failure(fmt.Errorf("failed to read signals: %w", err)))
		return sig, sse, false
	}
	return sig, sse, true
}

func (h *Handlers) reload(dst *[]core.Record) func(context.Context) error {
	return func(ctx context.Context) error {
		records, err := h.service.Records(ctx)
		if err != nil {
			return err
		}
		*dst = records
		return nil
	}
}

func (h *Handlers) tableData(records []core.Record, state table.State) components.TableData {
	return components.TableData{
		Base: h.base(),
		View: table.BuildView(records, h.service.Descriptor().Columns, state, h.perPage),
	}
}

// sendTable patches the table and the clamped page number.
func (h *Handlers) sendTable(sse *datastar.ServerSentEventGenerator, records []core.Record, sig TableSignals) {
	data := h.tableData(records, sig.state())
	if err := sse.PatchElementTempl(components.RecordTable(data)); err != nil {
		_ = sse.ConsoleError(err)
		return
	}
	if data.View.Page != sig.Page {
		_ = sse.MarshalAndPatchSignals(map[string]any{"page": data.View.Page})
	}
}

func (h *Handlers) patchEditCleared(sse *datastar.ServerSentEventGenerator) {
	if err := sse.MarshalAndPatchSignals(map[string]any{"editing": "", "updated": []string{}}); err != nil {
		_ = sse.ConsoleError(err)
	}
}

// formImage returns the uploaded image of the add form, or nil.
func formImage(r *http.Request) (*entity.ImageUpload, error) {
	file, header, err := r.FormFile(entity.ImageColumn)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	return &entity.ImageUpload{Filename: header.Filename, Data: data}, nil
}

func findRecord(records []core.Record, id string) (core.Record, bool) {
	for _, r := range records {
		if r.ID == id {
			return r, true
		}
	}
	return core.Record{}, false
}
