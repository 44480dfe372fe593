package files

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/a-h/templ"
	"github.com/gorilla/sessions"
	"github.com/spcai/labcms/internal/entity"
	"github.com/spcai/labcms/internal/filetree"
	"github.com/spcai/labcms/internal/ui/components"
	"github.com/spcai/labcms/internal/ui/features/common"
	"github.com/spcai/labcms/internal/ui/notifier"
	"github.com/spcai/labcms/pkg/core"
	"github.com/starfederation/datastar-go/datastar"
)

// Handlers provides HTTP handlers for the file browser. Each browser
// session gets its own tree, so expanded folders and the current folder
// survive page reloads.
type Handlers struct {
	blobs        core.BlobStore
	registry     *entity.Registry
	sessionStore sessions.Store
	notifier     *notifier.Notifier
	isDev        bool
	logger       *slog.Logger

	mu       sync.Mutex
	browsers map[string]*filetree.Browser
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(blobs core.BlobStore, registry *entity.Registry, sessionStore sessions.Store, notify *notifier.Notifier, isDev bool, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{
		blobs:        blobs,
		registry:     registry,
		sessionStore: sessionStore,
		notifier:     notify,
		isDev:        isDev,
		logger:       logger.With(slog.String("bucket", blobs.Bucket())),
		browsers:     make(map[string]*filetree.Browser),
	}
}

// browser returns the browser of the request's session, loading the root
// folder for new sessions. It sets the session cookie, so it must run
// before the response is written.
func (h *Handlers) browser(w http.ResponseWriter, r *http.Request) (*filetree.Browser, error) {
	id, err := common.SessionID(w, r, h.sessionStore)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	b, ok := h.browsers[id]
	if !ok {
		b = filetree.NewBrowser(h.blobs, h.logger)
		h.browsers[id] = b
	}
	h.mu.Unlock()

	if !ok {
		if err := b.Refresh(r.Context()); err != nil {
			h.mu.Lock()
			delete(h.browsers, id)
			h.mu.Unlock()
			return nil, err
		}
	}
	return b, nil
}

// Page renders the file browser with the session's tree.
func (h *Handlers) Page(w http.ResponseWriter, r *http.Request) {
	toasts := common.Flashes(w, r, h.sessionStore)

	var body templ.Component
	b, err := h.browser(w, r)
	if err != nil {
		h.logger.Error("failed to load files", slog.Any("error", err))
		toasts = append(toasts, common.Failure(err))
		body = components.LoadError(common.ErrorMessage(err), "/files")
	} else {
		body = components.Files(components.FilesData{
			Bucket: h.blobs.Bucket(),
			Tree:   treeData(b),
		})
	}

	page := components.Page(components.PageData{
		Title:      "Files",
		Nav:        common.Nav(h.registry, "/files"),
		UpdatesURL: "/files/updates",
		Signals:    initialSignals(),
		Toasts:     toasts,
		Dev:        h.isDev,
	}, body)
	if err := page.Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Updates is the long-lived SSE endpoint of the page. It reloads and
// re-renders the tree whenever objects change.
func (h *Handlers) Updates(w http.ResponseWriter, r *http.Request) {
	b, err := h.browser(w, r)
	sse := datastar.NewSSE(w, r)
	if err != nil {
		_ = sse.ConsoleError(err)
		return
	}

	updates := h.notifier.Subscribe(notifier.TopicFiles)
	defer h.notifier.Unsubscribe(updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			if err := b.Refresh(ctx); err != nil {
				_ = sse.ConsoleError(err)
				continue
			}
			if err := sse.PatchElementTempl(components.Tree(treeData(b))); err != nil {
				return
			}
		}
	}
}

// Tree reloads the root folder and re-renders the tree.
func (h *Handlers) Tree(w http.ResponseWriter, r *http.Request) {
	h.do(w, r, func(ctx context.Context, b *filetree.Browser, _ FileSignals, _ *datastar.ServerSentEventGenerator) error {
		return b.Refresh(ctx)
	})
}

// Toggle opens or closes a folder, fetching its children on first open.
func (h *Handlers) Toggle(w http.ResponseWriter, r *http.Request) {
	h.do(w, r, func(ctx context.Context, b *filetree.Browser, sig FileSignals, _ *datastar.ServerSentEventGenerator) error {
		return b.Toggle(ctx, sig.Path)
	})
}

// Preview shows the content of the selected file.
func (h *Handlers) Preview(w http.ResponseWriter, r *http.Request) {
	sig, b, sse, ok := h.read(w, r)
	if !ok {
		return
	}
	p := b.Preview(r.Context(), sig.Path)
	if err := sse.PatchElementTempl(components.Preview(components.NewPreviewData(p))); err != nil {
		_ = sse.ConsoleError(err)
	}
}

// Rename renames the object or folder at path.
func (h *Handlers) Rename(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(ctx context.Context, b *filetree.Browser, sig FileSignals) (string, error) {
		dest, err := b.Rename(ctx, sig.Path, sig.NewName)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Renamed to %s", dest), nil
	}, map[string]any{"newName": ""})
}

// Move moves the object or folder at path into the destination folder.
func (h *Handlers) Move(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(ctx context.Context, b *filetree.Browser, sig FileSignals) (string, error) {
		dest, err := b.Move(ctx, sig.Path, sig.Destination)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Moved to %s", dest), nil
	}, map[string]any{"destination": ""})
}

// Delete removes the object at path, or everything under the folder.
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(ctx context.Context, b *filetree.Browser, sig FileSignals) (string, error) {
		n, err := b.Delete(ctx, sig.Path)
		if err != nil {
			return "", err
		}
		switch n {
		case 0:
			return fmt.Sprintf("Deleted %s", sig.Path), nil
		case 1:
			return "Deleted 1 file", nil
		}
		return fmt.Sprintf("Deleted %d files", n), nil
	}, nil)
}

// CreateFolder creates a folder in the current folder.
func (h *Handlers) CreateFolder(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(ctx context.Context, b *filetree.Browser, sig FileSignals) (string, error) {
		folder, err := b.CreateFolder(ctx, b.CurrentPath(), sig.FolderName)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Created folder %s", folder), nil
	}, map[string]any{"folderName": ""})
}

// Upload stores the posted file in the current folder and redirects back
// with the outcome as a flash.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	b, err := h.browser(w, r)
	var toast components.Toast
	if err != nil {
		toast = common.Failure(err)
	} else {
		toast = h.upload(w, r, b)
	}

	if err := common.AddFlash(w, r, h.sessionStore, toast); err != nil {
		h.logger.Error("failed to save flash", slog.Any("error", err))
	}
	http.Redirect(w, r, "/files", http.StatusSeeOther)
}

func (h *Handlers) upload(w http.ResponseWriter, r *http.Request, b *filetree.Browser) components.Toast {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return common.Failure(fmt.Errorf("failed to read form: %w", err))
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return common.Failure(fmt.Errorf("failed to read file: %w", err))
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return common.Failure(fmt.Errorf("failed to read file: %w", err))
	}
	stored, err := b.Upload(r.Context(), b.CurrentPath(), header.Filename, data)
	if err != nil {
		return common.Failure(err)
	}
	h.notifier.Broadcast(notifier.TopicFiles)
	return common.Success(fmt.Sprintf("Uploaded %s", stored))
}

// read decodes the signals and opens the SSE stream.
func (h *Handlers) read(w http.ResponseWriter, r *http.Request) (FileSignals, *filetree.Browser, *datastar.ServerSentEventGenerator, bool) {
	var sig FileSignals
	// Signals and the session cookie come before the SSE stream takes over.
	sigErr := datastar.ReadSignals(r, &sig)
	b, err := h.browser(w, r)
	sse := datastar.NewSSE(w, r)
	switch {
	case sigErr != nil:
		_ = common.SendToast(sse, common.Failure(fmt.Errorf("failed to read signals: %w", sigErr)))
		return sig, nil, sse, false
	case err != nil:
		_ = common.SendToast(sse, common.Failure(err))
		return sig, nil, sse, false
	}
	return sig, b, sse, true
}

// do runs a tree operation and re-renders the tree.
func (h *Handlers) do(w http.ResponseWriter, r *http.Request, op func(context.Context, *filetree.Browser, FileSignals, *datastar.ServerSentEventGenerator) error) {
	sig, b, sse, ok := h.read(w, r)
	if !ok {
		return
	}
	if err := op(r.Context(), b, sig, sse); err != nil {
		h.logger.Warn("tree operation failed", slog.String("path", sig.Path), slog.Any("error", err))
		_ = common.SendToast(sse, common.Failure(err))
	}
	if err := sse.PatchElementTempl(components.Tree(treeData(b))); err != nil {
		_ = sse.ConsoleError(err)
	}
}

// mutate runs a storage mutation, reports it with a toast, notifies the
// other sessions and re-renders the tree. reset holds signals to clear.
func (h *Handlers) mutate(w http.ResponseWriter, r *http.Request, op func(context.Context, *filetree.Browser, FileSignals) (string, error), reset map[string]any) {
	h.do(w, r, func(ctx context.Context, b *filetree.Browser, sig FileSignals, sse *datastar.ServerSentEventGenerator) error {
		msg, err := op(ctx, b, sig)
		if len(reset) > 0 {
			_ = sse.MarshalAndPatchSignals(reset)
		}
		if err != nil {
			return err
		}
		h.notifier.Broadcast(notifier.TopicFiles)
		_ = common.SendToast(sse, common.Success(msg))
		return nil
	})
}

func treeData(b *filetree.Browser) components.TreeData {
	return components.TreeData{CurrentPath: b.CurrentPath(), Nodes: b.Tree()}
}
