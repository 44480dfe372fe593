// Package features provides shared test utilities for UI feature tests.
package features

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/require"

	"github.com/spcai/labcms/internal/config"
	"github.com/spcai/labcms/internal/entity"
	"github.com/spcai/labcms/internal/platform"
	"github.com/spcai/labcms/internal/testutil"
	"github.com/spcai/labcms/internal/ui/notifier"
	"github.com/spcai/labcms/pkg/core"
)

// TestPublicURL is the public base URL of fixture blob stores.
const TestPublicURL = "http://localhost:8765"

// TestFixture holds all dependencies needed for UI handler tests.
type TestFixture struct {
	Platform     *platform.Platform
	Registry     *entity.Registry
	Notifier     *notifier.Notifier
	SessionStore *sessions.CookieStore

	t *testing.T
}

// SetupTestFixture opens a platform over an in-memory SQLite row store and
// a filesystem blob store in a temp directory.
func SetupTestFixture(t *testing.T) *TestFixture {
	t.Helper()

	logger := testutil.NewTestLogger(t)
	p, err := platform.Open(context.Background(), config.PlatformConfig{
		Rows:  &config.RowsConfig{Driver: "sqlite", Path: ":memory:"},
		Blobs: &config.BlobsConfig{Driver: config.BlobDriverFS, Root: filepath.Join(t.TempDir(), "storage"), PublicURL: TestPublicURL},
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = p.Close()
	})

	return &TestFixture{
		Platform:     p,
		Registry:     entity.NewRegistry(p.Platform, logger),
		Notifier:     notifier.New(),
		SessionStore: NewTestSessionStore(),
		t:            t,
	}
}

// Insert stores a row and returns it with its generated id.
func (f *TestFixture) Insert(table string, fields ...core.Field) core.Record {
	f.t.Helper()
	rec, err := f.Platform.Rows.Insert(context.Background(), table, core.NewRecord("", fields...))
	require.NoError(f.t, err)
	return rec
}

// Upload stores an object in the blob store.
func (f *TestFixture) Upload(path string, data []byte) {
	f.t.Helper()
	_, err := f.Platform.Blobs.Upload(context.Background(), path, data)
	require.NoError(f.t, err)
}

// RequestWithPathParam wraps a request with chi URL params.
func RequestWithPathParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// RequestWithTimeout wraps a request with a context timeout.
func RequestWithTimeout(r *http.Request, timeout time.Duration) *http.Request {
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	// The timeout releases the context.
	_ = cancel
	return r.WithContext(ctx)
}

// SignalsRequest builds a datastar request posting signals as JSON.
func SignalsRequest(t *testing.T, target string, signals any) *http.Request {
	t.Helper()
	body, err := json.Marshal(signals)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Datastar-Request", "true")
	return req
}

// WithCookies copies the cookies set on rec onto req.
func WithCookies(req *http.Request, rec *httptest.ResponseRecorder) *http.Request {
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

// NewTestNotifier creates a notifier for testing.
func NewTestNotifier() *notifier.Notifier {
	return notifier.New()
}

// NewTestSessionStore creates a session store for testing.
func NewTestSessionStore() *sessions.CookieStore {
	return sessions.NewCookieStore([]byte("test-secret-key-32-bytes-long!!"))
}
