package ui

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spcai/labcms/internal/testutil"
	"github.com/spcai/labcms/internal/ui/features"
	"github.com/spcai/labcms/internal/ui/notifier"
)

func TestNewServer_Defaults(t *testing.T) {
	f := features.SetupTestFixture(t)

	s := NewServer(Config{Platform: f.Platform, SessionSecret: "secret"})
	assert.Equal(t, DefaultShutdownTimeout, s.shutdownTimeout)
	assert.NotNil(t, s.registry)
	assert.False(t, s.IsDev())
}

func TestServer_Handler(t *testing.T) {
	f := features.SetupTestFixture(t)

	s := NewServer(Config{
		Platform:        f.Platform,
		Registry:        f.Registry,
		SessionSecret:   "secret",
		ItemsPerPage:    4,
		ShutdownTimeout: time.Second,
		Dev:             true,
		Logger:          testutil.NewTestLogger(t),
	})
	h, err := s.Handler()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/members", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "@get('/reload')")
}

func TestServer_NotifyFiles(t *testing.T) {
	f := features.SetupTestFixture(t)
	s := NewServer(Config{Platform: f.Platform, SessionSecret: "secret"})

	files := s.Notifier().Subscribe(notifier.TopicFiles)
	defer s.Notifier().Unsubscribe(files)
	tables := s.Notifier().Subscribe("faculty")
	defer s.Notifier().Unsubscribe(tables)

	s.notifyFiles()

	select {
	case <-files:
	default:
		t.Error("file subscribers should be notified")
	}
	select {
	case <-tables:
		t.Error("table subscribers should not be notified")
	default:
	}
}
