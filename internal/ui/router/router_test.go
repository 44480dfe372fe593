package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spcai/labcms/internal/testutil"
	"github.com/spcai/labcms/internal/ui/features"
)

func TestSetupRoutes(t *testing.T) {
	f := features.SetupTestFixture(t)
	f.Upload("faculty/a.txt", []byte("hi"))

	r := chi.NewRouter()
	require.NoError(t, SetupRoutes(r, Options{
		Platform:     f.Platform.Platform,
		Registry:     f.Registry,
		SessionStore: f.SessionStore,
		Notifier:     f.Notifier,
		ItemsPerPage: 6,
		Logger:       testutil.NewTestLogger(t),
	}))

	tests := []struct {
		target     string
		wantStatus int
	}{
		{"/", http.StatusOK},
		{"/affiliations", http.StatusOK},
		{"/faculty", http.StatusOK},
		{"/members", http.StatusOK},
		{"/projects", http.StatusOK},
		{"/publications", http.StatusOK},
		{"/files", http.StatusOK},
		{"/static/app.css", http.StatusOK},
		{"/static/app.js", http.StatusOK},
		{"/storage/v1/object/public/" + f.Platform.Blobs.Bucket() + "/faculty/a.txt", http.StatusOK},
		{"/reload", http.StatusNotFound},
		{"/theses", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
