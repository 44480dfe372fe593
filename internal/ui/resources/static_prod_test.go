//go:build !dev

package resources

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler(t *testing.T) {
	tests := []struct {
		target     string
		wantStatus int
		wantBody   string
		wantCache  string
	}{
		{"/static/app.css", http.StatusOK, ".toast-error", "no-cache"},
		{"/static/app.js", http.StatusOK, ".list-add", "no-cache"},
		// Error responses from the file server drop caching headers.
		{"/static/missing.js", http.StatusNotFound, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Handler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			assert.Equal(t, tt.wantCache, rec.Header().Get("Cache-Control"))
		})
	}
}

func TestPath_VersionedAssetsAreImmutable(t *testing.T) {
	p := Path("app.js")
	require.True(t, strings.HasPrefix(p, "/static/app.js?v="), p)
	assert.Len(t, strings.TrimPrefix(p, "/static/app.js?v="), 8)
	assert.Equal(t, p, Path("/app.js"))

	rec := httptest.NewRecorder()
	Handler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, p, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Cache-Control"), "immutable")

	stale := httptest.NewRecorder()
	Handler(nil).ServeHTTP(stale, httptest.NewRequest(http.MethodGet, "/static/app.js?v=00000000", nil))
	assert.Equal(t, "no-cache", stale.Header().Get("Cache-Control"))
}

func TestPath_UnknownAsset(t *testing.T) {
	assert.Equal(t, "/static/nope.css", Path("nope.css"))
}
