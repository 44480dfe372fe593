package storage

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/spcai/labcms/internal/testutil"
	"github.com/spcai/labcms/internal/ui/features"
)

func setupRouter(t *testing.T) (chi.Router, *features.TestFixture) {
	t.Helper()

	f := features.SetupTestFixture(t)
	f.Upload("faculty/ada lovelace.png", []byte("\x89PNG\r\n\x1a\n"))
	f.Upload("notes.txt", []byte("hello"))

	r := chi.NewRouter()
	assert.NoError(t, SetupRoutes(r, f.Platform.Blobs, testutil.NewTestLogger(t)))
	return r, f
}

func TestObject(t *testing.T) {
	r, f := setupRouter(t)
	bucket := f.Platform.Blobs.Bucket()

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantType   string
		wantBody   string
	}{
		{
			name:       "image with escaped name",
			target:     "/storage/v1/object/public/" + bucket + "/faculty/ada%20lovelace.png",
			wantStatus: http.StatusOK,
			wantType:   "image/png",
		},
		{
			name:       "text",
			target:     "/storage/v1/object/public/" + bucket + "/notes.txt",
			wantStatus: http.StatusOK,
			wantType:   "text/plain",
			wantBody:   "hello",
		},
		{
			name:       "missing object",
			target:     "/storage/v1/object/public/" + bucket + "/faculty/none.png",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "other bucket",
			target:     "/storage/v1/object/public/elsewhere/notes.txt",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "escaping the bucket",
			target:     "/storage/v1/object/public/" + bucket + "/faculty/%2E%2E/%2E%2E/secret",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantType != "" {
				assert.Contains(t, rec.Header().Get("Content-Type"), tt.wantType)
				assert.Equal(t, cacheControl, rec.Header().Get("Cache-Control"))
			}
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestObject_PublicURLRoundTrip(t *testing.T) {
	r, f := setupRouter(t)

	u := f.Platform.Blobs.PublicURL("faculty/ada lovelace.png")
	target := u[len(features.TestPublicURL):]

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
