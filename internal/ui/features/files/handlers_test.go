package files

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spcai/labcms/internal/filetree"
	"github.com/spcai/labcms/internal/testutil"
	"github.com/spcai/labcms/internal/ui/features"
	"github.com/spcai/labcms/internal/ui/notifier"
)

// =============================================================================
// Test Setup Helpers
// =============================================================================

type session struct {
	t      *testing.T
	h      *Handlers
	f      *features.TestFixture
	cookie *httptest.ResponseRecorder
}

// openSession loads the page once so later requests share its browser.
func openSession(t *testing.T) *session {
	t.Helper()

	f := features.SetupTestFixture(t)
	f.Upload("faculty/ada.png", []byte("\x89PNG\r\n\x1a\n"))
	f.Upload("faculty/notes.txt", []byte("hello notes"))
	f.Upload("readme.md", []byte("# Lab"))

	h := NewHandlers(f.Platform.Blobs, f.Registry, f.SessionStore, f.Notifier, false, testutil.NewTestLogger(t))

	rec := httptest.NewRecorder()
	h.Page(rec, httptest.NewRequest(http.MethodGet, "/files", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	return &session{t: t, h: h, f: f, cookie: rec}
}

func (s *session) post(handler http.HandlerFunc, target string, signals FileSignals) string {
	s.t.Helper()
	req := features.WithCookies(features.SignalsRequest(s.t, target, signals), s.cookie)
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec.Body.String()
}

func (s *session) exists(p string) bool {
	s.t.Helper()
	_, err := s.f.Platform.Blobs.Download(context.Background(), p)
	return err == nil
}

// =============================================================================
// Page and tree
// =============================================================================

func TestPage(t *testing.T) {
	s := openSession(t)
	body := s.cookie.Body.String()

	for _, want := range []string{
		"<title>Files - LabCMS</title>",
		`id="file-tree"`,
		"faculty",
		"readme.md",
		"Select a file to preview",
		`action="/files/upload"`,
	} {
		assert.Contains(t, body, want)
	}
	assert.NotContains(t, body, "notes.txt", "folders load lazily")
	assert.NotEmpty(t, s.cookie.Result().Cookies(), "page should start a session")
}

func TestToggle_LoadsChildren(t *testing.T) {
	s := openSession(t)

	body := s.post(s.h.Toggle, "/files/toggle", FileSignals{Path: "faculty"})
	assert.Contains(t, body, "ada.png")
	assert.Contains(t, body, "notes.txt")
	assert.Contains(t, body, "/faculty")

	// Closing keeps the session's current folder.
	body = s.post(s.h.Toggle, "/files/toggle", FileSignals{Path: "faculty"})
	assert.NotContains(t, body, "notes.txt")
}

func TestPreview(t *testing.T) {
	s := openSession(t)

	tests := []struct {
		name string
		path string
		want string
	}{
		{"text file", "faculty/notes.txt", "hello notes"},
		{"image", "faculty/ada.png", "data:image/png;base64,"},
		{"missing", "faculty/gone.txt", filetree.MsgLoadFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := s.post(s.h.Preview, "/files/preview", FileSignals{Path: tt.path})
			assert.Contains(t, body, `id="preview"`)
			assert.Contains(t, body, tt.want)
		})
	}
}

func TestRename(t *testing.T) {
	s := openSession(t)

	body := s.post(s.h.Rename, "/files/rename", FileSignals{Path: "readme.md", NewName: "about.md"})
	assert.Contains(t, body, "Renamed to about.md")
	assert.Contains(t, body, `"newName":""`)
	assert.True(t, s.exists("about.md"))
	assert.False(t, s.exists("readme.md"))
}

func TestRename_InvalidName(t *testing.T) {
	s := openSession(t)

	body := s.post(s.h.Rename, "/files/rename", FileSignals{Path: "readme.md", NewName: "a/b"})
	assert.Contains(t, body, "toast-error")
	assert.True(t, s.exists("readme.md"))
}

func TestMove(t *testing.T) {
	s := openSession(t)

	body := s.post(s.h.Move, "/files/move", FileSignals{Path: "readme.md", Destination: "faculty"})
	assert.Contains(t, body, "Moved to faculty/readme.md")
	assert.True(t, s.exists("faculty/readme.md"))

	body = s.post(s.h.Move, "/files/move", FileSignals{Path: "faculty", Destination: "faculty"})
	assert.Contains(t, body, "toast-error")
}

func TestDelete_Folder(t *testing.T) {
	s := openSession(t)

	updates := s.f.Notifier.Subscribe(notifier.TopicFiles)
	defer s.f.Notifier.Unsubscribe(updates)

	body := s.post(s.h.Delete, "/files/delete", FileSignals{Path: "faculty"})
	assert.Contains(t, body, "Deleted 2 files")
	assert.False(t, s.exists("faculty/ada.png"))
	assert.False(t, s.exists("faculty/notes.txt"))
	assert.True(t, s.exists("readme.md"))

	select {
	case <-updates:
	case <-time.After(100 * time.Millisecond):
		t.Error("delete should notify other sessions")
	}
}

func TestCreateFolder(t *testing.T) {
	s := openSession(t)
	s.post(s.h.Toggle, "/files/toggle", FileSignals{Path: "faculty"})

	body := s.post(s.h.CreateFolder, "/files/folder", FileSignals{FolderName: "2026"})
	assert.Contains(t, body, "Created folder faculty/2026")
	assert.True(t, s.exists("faculty/2026/"+filetree.KeepFile))
}

func TestUpload(t *testing.T) {
	s := openSession(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "cv.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("curriculum"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/files/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.h.Upload(rec, features.WithCookies(req, s.cookie))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/files", rec.Header().Get("Location"))
	assert.True(t, s.exists("cv.txt"))

	page := httptest.NewRecorder()
	s.h.Page(page, features.WithCookies(httptest.NewRequest(http.MethodGet, "/files", nil), rec))
	assert.Contains(t, page.Body.String(), "Uploaded cv.txt")
}

// =============================================================================
// Updates
// =============================================================================

func TestUpdates_RerendersTree(t *testing.T) {
	s := openSession(t)

	req := features.WithCookies(httptest.NewRequest(http.MethodGet, "/files/updates", nil), s.cookie)
	ctx, cancel := context.WithTimeout(req.Context(), 300*time.Millisecond)
	defer cancel()
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		s.h.Updates(rec, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	_, err := s.f.Platform.Blobs.Upload(context.Background(), "news.txt", []byte("x"))
	require.NoError(t, err)
	s.f.Notifier.Broadcast("faculty")
	s.f.Notifier.Broadcast(notifier.TopicFiles)
	<-done

	body := rec.Body.String()
	assert.Equal(t, 1, strings.Count(body, `id="file-tree"`))
	assert.Contains(t, body, "news.txt")
}

func TestUpdates_IgnoresOtherTopics(t *testing.T) {
	s := openSession(t)

	req := features.WithCookies(httptest.NewRequest(http.MethodGet, "/files/updates", nil), s.cookie)
	ctx, cancel := context.WithTimeout(req.Context(), 100*time.Millisecond)
	defer cancel()
	rec := httptest.NewRecorder()

	go func() {
		time.Sleep(20 * time.Millisecond)
		s.f.Notifier.Broadcast("projects")
	}()
	s.h.Updates(rec, req.WithContext(ctx))

	assert.NotContains(t, rec.Body.String(), "file-tree")
}
