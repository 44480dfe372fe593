package entities

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spcai/labcms/internal/entity"
	"github.com/spcai/labcms/internal/testutil"
	"github.com/spcai/labcms/internal/ui/features"
	"github.com/spcai/labcms/pkg/core"
)

// =============================================================================
// Test Setup Helpers
// =============================================================================

func setupTestHandlers(t *testing.T, pick func(*entity.Registry) entity.Service) (*Handlers, *features.TestFixture) {
	t.Helper()

	fixture := features.SetupTestFixture(t)
	handlers := NewHandlers(
		pick(fixture.Registry),
		fixture.Registry,
		fixture.SessionStore,
		fixture.Notifier,
		2,
		false,
		testutil.NewTestLogger(t),
	)
	return handlers, fixture
}

func faculty(r *entity.Registry) entity.Service      { return r.Faculty }
func affiliations(r *entity.Registry) entity.Service { return r.Affiliations }

// brokenService fails the operations it has an error for.
type brokenService struct {
	entity.Service
	recordsErr error
	updateErr  error
	deleteErr  error
}

func (b brokenService) Records(ctx context.Context) ([]core.Record, error) {
	if b.recordsErr != nil {
		return nil, b.recordsErr
	}
	return b.Service.Records(ctx)
}

func (b brokenService) Update(ctx context.Context, id string, d []core.UpdateDirective) error {
	if b.updateErr != nil {
		return b.updateErr
	}
	return b.Service.Update(ctx, id, d)
}

func (b brokenService) Delete(ctx context.Context, id string) error {
	if b.deleteErr != nil {
		return b.deleteErr
	}
	return b.Service.Delete(ctx, id)
}

func name(v string) core.Field { return core.Field{Name: "name", Value: core.Text(v)} }

// =============================================================================
// Page
// =============================================================================

func TestPage(t *testing.T) {
	h, f := setupTestHandlers(t, faculty)
	f.Insert("faculty", name("Ada Lovelace"))
	f.Insert("faculty", name("Grace Hopper"))
	f.Insert("faculty", name("Barbara Liskov"))

	rec := httptest.NewRecorder()
	h.Page(rec, httptest.NewRequest(http.MethodGet, "/faculty", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	for _, want := range []string{
		"<title>Faculty - LabCMS</title>",
		`data-init="@get(&#39;/faculty/updates&#39;)"`,
		"Ada Lovelace",
		"Grace Hopper",
		"Page 1 of 2",
		`action="/faculty/add"`,
		"Add faculty member",
	} {
		assert.Contains(t, body, want)
	}
	assert.NotContains(t, body, "Barbara Liskov", "third record is on page two")
}

func TestPage_Empty(t *testing.T) {
	h, _ := setupTestHandlers(t, faculty)

	rec := httptest.NewRecorder()
	h.Page(rec, httptest.NewRequest(http.MethodGet, "/faculty", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No data available")
}

func TestPage_LoadError(t *testing.T) {
	h, _ := setupTestHandlers(t, func(r *entity.Registry) entity.Service {
		return brokenService{Service: r.Faculty, recordsErr: errors.New("relation faculty does not exist")}
	})

	rec := httptest.NewRecorder()
	h.Page(rec, httptest.NewRequest(http.MethodGet, "/faculty", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `id="load-error"`)
	assert.Contains(t, body, "relation faculty does not exist")
	assert.Contains(t, body, "Reload page")
	assert.Contains(t, body, "toast-error")
}

// =============================================================================
// Table interactions
// =============================================================================

func TestTable_Search(t *testing.T) {
	h, f := setupTestHandlers(t, faculty)
	f.Insert("faculty", name("Ada Lovelace"))
	f.Insert("faculty", name("Grace Hopper"))

	rec := httptest.NewRecorder()
	h.Table(rec, features.SignalsRequest(t, "/faculty/table", map[string]any{"search": "grace", "page": 1}))

	body := rec.Body.String()
	assert.Contains(t, body, "datastar-patch-elements")
	assert.Contains(t, body, "Grace Hopper")
	assert.NotContains(t, body, "Ada Lovelace")
}

func TestTable_ClampsPage(t *testing.T) {
	h, f := setupTestHandlers(t, faculty)
	f.Insert("faculty", name("Ada Lovelace"))

	rec := httptest.NewRecorder()
	h.Table(rec, features.SignalsRequest(t, "/faculty/table", map[string]any{"page": 7}))

	body := rec.Body.String()
	assert.Contains(t, body, "Page 1 of 1")
	assert.Contains(t, body, `"page":1`)
}

func TestEdit(t *testing.T) {
	h, f := setupTestHandlers(t, faculty)
	ada := f.Insert("faculty", name("Ada Lovelace"))

	req := features.RequestWithPathParam(
		features.SignalsRequest(t, "/faculty/edit/"+ada.ID, map[string]any{"page": 1}),
		"id", ada.ID,
	)
	rec := httptest.NewRecorder()
	h.Edit(rec, req)

	body := rec.Body.String()
	assert.Contains(t, body, `"editing":"`+ada.ID+`"`)
	assert.Contains(t, body, `"name":"Ada Lovelace"`)
	assert.Contains(t, body, `data-bind="edited.name"`)
	assert.NotContains(t, body, `data-bind="edited.image"`, "image column is not editable")
}

func TestEdit_UnknownRow(t *testing.T) {
	h, _ := setupTestHandlers(t, faculty)

	req := features.RequestWithPathParam(features.SignalsRequest(t, "/faculty/edit/nope", map[string]any{}), "id", "nope")
	rec := httptest.NewRecorder()
	h.Edit(rec, req)

	assert.Contains(t, rec.Body.String(), "toast-error")
	assert.Contains(t, rec.Body.String(), "not found")
}

func TestChange(t *testing.T) {
	h, _ := setupTestHandlers(t, faculty)

	req := features.RequestWithPathParam(features.SignalsRequest(t, "/faculty/change/email", map[string]any{
		"editing": "1",
		"edited":  map[string]string{"name": "Ada", "email": "ada@example.com"},
		"updated": []string{"name"},
	}), "field", "email")
	rec := httptest.NewRecorder()
	h.Change(rec, req)

	assert.Contains(t, rec.Body.String(), `"updated":["name","email"]`)
}

func TestSave(t *testing.T) {
	h, f := setupTestHandlers(t, faculty)
	ada := f.Insert("faculty", name("Ada Lovelace"), core.Field{Name: "email", Value: core.Text("ada@example.com")})

	updates := f.Notifier.Subscribe("faculty")
	defer f.Notifier.Unsubscribe(updates)

	rec := httptest.NewRecorder()
	h.Save(rec, features.SignalsRequest(t, "/faculty/save", map[string]any{
		"page":    1,
		"editing": ada.ID,
		"edited":  map[string]string{"name": "Ada King", "email": "ignored@example.com"},
		"updated": []string{"name"},
	}))

	body := rec.Body.String()
	assert.Contains(t, body, "Record updated successfully")
	assert.Contains(t, body, `"editing":""`)
	assert.Contains(t, body, "Ada King")

	rows, err := f.Platform.Rows.Select(context.Background(), "faculty", core.ByID(ada.ID))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Ada King", rows[0].Value("name").String())
	assert.Equal(t, "ada@example.com", rows[0].Value("email").String(), "unchanged fields are not sent")

	select {
	case <-updates:
	case <-time.After(100 * time.Millisecond):
		t.Error("save should broadcast the table")
	}
}

func TestSave_FailureStillEndsEdit(t *testing.T) {
	h, f := setupTestHandlers(t, func(r *entity.Registry) entity.Service {
		return brokenService{Service: r.Faculty, updateErr: errors.New("permission denied for table faculty")}
	})
	ada := f.Insert("faculty", name("Ada Lovelace"))

	rec := httptest.NewRecorder()
	h.Save(rec, features.SignalsRequest(t, "/faculty/save", map[string]any{
		"editing": ada.ID,
		"edited":  map[string]string{"name": "Ada King"},
		"updated": []string{"name"},
	}))

	body := rec.Body.String()
	assert.Contains(t, body, "permission denied for table faculty")
	assert.Contains(t, body, `"editing":""`)
	assert.Contains(t, body, "Ada Lovelace")
	assert.NotContains(t, body, `data-bind="edited.name"`)
}

func TestCancel(t *testing.T) {
	h, f := setupTestHandlers(t, faculty)
	ada := f.Insert("faculty", name("Ada Lovelace"))

	rec := httptest.NewRecorder()
	h.Cancel(rec, features.SignalsRequest(t, "/faculty/cancel", map[string]any{
		"editing": ada.ID,
		"edited":  map[string]string{"name": "Ada King"},
		"updated": []string{"name"},
	}))

	body := rec.Body.String()
	assert.Contains(t, body, `"editing":""`)
	assert.NotContains(t, body, "Ada King")
}

func TestDeleteAndConfirm(t *testing.T) {
	h, f := setupTestHandlers(t, faculty)
	ada := f.Insert("faculty", name("Ada Lovelace"))
	f.Insert("faculty", name("Grace Hopper"))

	rec := httptest.NewRecorder()
	h.Delete(rec, features.RequestWithPathParam(
		features.SignalsRequest(t, "/faculty/delete/"+ada.ID, map[string]any{"page": 1}), "id", ada.ID))
	assert.Contains(t, rec.Body.String(), "confirm-delete")
	assert.Contains(t, rec.Body.String(), `"pendingDelete":"`+ada.ID+`"`)

	rec = httptest.NewRecorder()
	h.Confirm(rec, features.SignalsRequest(t, "/faculty/confirm", map[string]any{"page": 1, "pendingDelete": ada.ID}))

	body := rec.Body.String()
	assert.Contains(t, body, "Record deleted successfully")
	assert.Contains(t, body, `"pendingDelete":""`)
	assert.NotContains(t, body, "Ada Lovelace")
	assert.Contains(t, body, "Grace Hopper")

	rows, err := f.Platform.Rows.Select(context.Background(), "faculty")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestDismiss(t *testing.T) {
	h, f := setupTestHandlers(t, faculty)
	ada := f.Insert("faculty", name("Ada Lovelace"))

	rec := httptest.NewRecorder()
	h.Dismiss(rec, features.SignalsRequest(t, "/faculty/dismiss", map[string]any{"pendingDelete": ada.ID}))

	body := rec.Body.String()
	assert.NotContains(t, body, "confirm-delete")
	assert.Contains(t, body, "Ada Lovelace")
}

func TestConfirm_Failure(t *testing.T) {
	h, f := setupTestHandlers(t, func(r *entity.Registry) entity.Service {
		return brokenService{Service: r.Faculty, deleteErr: errors.New("row is referenced")}
	})
	ada := f.Insert("faculty", name("Ada Lovelace"))

	rec := httptest.NewRecorder()
	h.Confirm(rec, features.SignalsRequest(t, "/faculty/confirm", map[string]any{"pendingDelete": ada.ID}))

	body := rec.Body.String()
	assert.Contains(t, body, "row is referenced")
	assert.Contains(t, body, "Ada Lovelace")
}

// =============================================================================
// Add form
// =============================================================================

func multipartRequest(t *testing.T, target string, fields map[string][]string, file string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, vs := range fields {
		for _, v := range vs {
			require.NoError(t, mw.WriteField(k, v))
		}
	}
	if file != "" {
		fw, err := mw.CreateFormFile("image", file)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestAdd_WithImage(t *testing.T) {
	h, f := setupTestHandlers(t, affiliations)

	rec := httptest.NewRecorder()
	h.Add(rec, multipartRequest(t, "/affiliations/add", map[string][]string{
		"name": {"MIT"},
		"type": {"university"},
		"url":  {"https://mit.edu"},
	}, "logo.png", []byte("\x89PNG\r\n\x1a\n")))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/affiliations", rec.Header().Get("Location"))

	rows, err := f.Platform.Rows.Select(context.Background(), "affiliations")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	image := rows[0].Value("image").String()
	assert.True(t, strings.HasPrefix(image, features.TestPublicURL+"/storage/v1/object/public/"), image)

	// The flash shows on the next page render.
	page := httptest.NewRecorder()
	h.Page(page, features.WithCookies(httptest.NewRequest(http.MethodGet, "/affiliations", nil), rec))
	assert.Contains(t, page.Body.String(), "Affiliation added successfully")
	assert.Contains(t, page.Body.String(), "MIT")
}

func TestAdd_ValidationError(t *testing.T) {
	h, f := setupTestHandlers(t, affiliations)

	rec := httptest.NewRecorder()
	h.Add(rec, multipartRequest(t, "/affiliations/add", map[string][]string{"type": {"university"}}, "", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	rows, err := f.Platform.Rows.Select(context.Background(), "affiliations")
	require.NoError(t, err)
	assert.Empty(t, rows)

	page := httptest.NewRecorder()
	h.Page(page, features.WithCookies(httptest.NewRequest(http.MethodGet, "/affiliations", nil), rec))
	assert.Contains(t, page.Body.String(), "toast-error")
}

// =============================================================================
// Updates
// =============================================================================

func TestUpdates_RefreshesOnOwnTopic(t *testing.T) {
	h, f := setupTestHandlers(t, faculty)

	req := httptest.NewRequest(http.MethodGet, "/faculty/updates", nil)
	ctx, cancel := context.WithTimeout(req.Context(), 300*time.Millisecond)
	defer cancel()
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.Updates(rec, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	f.Notifier.Broadcast("members")
	time.Sleep(20 * time.Millisecond)
	f.Notifier.Broadcast("faculty")
	<-done

	body := rec.Body.String()
	assert.Equal(t, 1, strings.Count(body, "table-refresh"), "only the faculty broadcast should refresh")
}

func TestFormFields(t *testing.T) {
	fields := formFields(entity.Publications)
	kinds := map[string]string{}
	for _, f := range fields {
		kinds[f.Name] = string(f.Kind)
	}
	assert.Equal(t, "month-year", kinds["date"])
	assert.Equal(t, "list", kinds["authors"])
	assert.Equal(t, "select", kinds["type"])
	assert.Equal(t, "text", kinds["title"])

	projects := formFields(entity.Projects)
	for _, f := range projects {
		if f.Name == "is_featured" {
			assert.Equal(t, "checkbox", string(f.Kind))
		}
		if f.Name == "short_description" {
			assert.Equal(t, "textarea", string(f.Kind))
		}
	}

	members := formFields(entity.Members)
	for _, f := range members {
		if f.Name == "image" {
			assert.Equal(t, "file", string(f.Kind))
		}
	}
}
