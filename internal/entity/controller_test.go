package entity

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spcai/labcms/internal/blob"
	"github.com/spcai/labcms/internal/testutil"
	"github.com/spcai/labcms/pkg/adapter"
	"github.com/spcai/labcms/pkg/adapters/sqlite"
	"github.com/spcai/labcms/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBucket = "spcai_images"

// faultyRows fails the operations named in fail.
type faultyRows struct {
	core.RowStore
	fail map[string]bool
}

func (f *faultyRows) Insert(ctx context.Context, table string, rec core.Record) (core.Record, error) {
	if f.fail["insert"] {
		return core.Record{}, errors.New("insert rejected")
	}
	return f.RowStore.Insert(ctx, table, rec)
}

func (f *faultyRows) Delete(ctx context.Context, table string, filter core.Filter) error {
	if f.fail["delete"] {
		return errors.New("delete rejected")
	}
	return f.RowStore.Delete(ctx, table, filter)
}

// faultyBlobs fails the operations named in fail.
type faultyBlobs struct {
	core.BlobStore
	fail map[string]bool
}

func (f *faultyBlobs) Remove(ctx context.Context, paths []string) error {
	if f.fail["remove"] {
		return errors.New("remove rejected")
	}
	return f.BlobStore.Remove(ctx, paths)
}

func (f *faultyBlobs) Upload(ctx context.Context, p string, data []byte) (string, error) {
	if f.fail["upload"] {
		return "", errors.New("upload rejected")
	}
	return f.BlobStore.Upload(ctx, p, data)
}

type fixture struct {
	rows  *faultyRows
	blobs *faultyBlobs
	reg   *Registry
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := testutil.NewTestLogger(t)

	rows := sqlite.New(logger)
	require.NoError(t, rows.Connect(ctx, adapter.Config{Path: ":memory:"}))
	require.NoError(t, rows.Migrate(ctx))
	t.Cleanup(func() { _ = rows.Close() })

	fs, err := blob.NewFSStore(blob.Config{Root: t.TempDir(), Bucket: testBucket, BaseURL: "http://localhost:8080"})
	require.NoError(t, err)

	f := &fixture{
		rows:  &faultyRows{RowStore: rows, fail: map[string]bool{}},
		blobs: &faultyBlobs{BlobStore: fs, fail: map[string]bool{}},
	}
	f.reg = NewRegistry(core.Platform{Rows: f.rows, Blobs: f.blobs}, logger)
	return f
}

func (f *fixture) objects(t *testing.T, prefix string) []string {
	t.Helper()
	entries, err := f.blobs.List(context.Background(), prefix, core.DefaultListOptions())
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	return names
}

var png = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func TestController_AddWithImage(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a, err := f.reg.Affiliations.Add(ctx, Affiliation{Name: "MIT", Type: "university"}, &ImageUpload{Filename: "logo.png", Data: png})
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	assert.True(t, strings.HasPrefix(a.Image, "http://localhost:8080/storage/v1/object/public/spcai_images/affiliations/"), a.Image)
	assert.True(t, strings.HasSuffix(a.Image, ".png"), a.Image)

	objects := f.objects(t, "affiliations")
	require.Len(t, objects, 1)

	p, ok := core.ParseStoragePath(a.Image, testBucket)
	require.True(t, ok)
	assert.Equal(t, "affiliations/"+objects[0], p)
}

func TestController_AddWithoutImage(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	m, err := f.reg.Members.Add(ctx, Member{Name: "Ada", ResearchInterests: []string{"Logic"}}, &ImageUpload{Filename: "", Data: nil})
	require.NoError(t, err)
	assert.Empty(t, m.Image)
	assert.Equal(t, []string{"Logic"}, m.ResearchInterests)
	assert.Empty(t, f.objects(t, ""))
}

func TestController_AddValidation(t *testing.T) {
	f := setup(t)
	_, err := f.reg.Faculty.Add(context.Background(), Faculty{}, &ImageUpload{Filename: "a.png", Data: png})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, f.objects(t, ""), "nothing is uploaded for invalid input")
}

func TestController_AddCompensatesFailedInsert(t *testing.T) {
	f := setup(t)
	f.rows.fail["insert"] = true

	_, err := f.reg.Faculty.Add(context.Background(), Faculty{Name: "Grace"}, &ImageUpload{Filename: "g.jpg", Data: png})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert rejected")
	assert.Empty(t, f.objects(t, "faculty"), "uploaded image is removed again")
}

func TestController_AddCompensationFailureIsReported(t *testing.T) {
	f := setup(t)
	f.rows.fail["insert"] = true
	f.blobs.fail["remove"] = true

	_, err := f.reg.Members.Add(context.Background(), Member{Name: "Alan"}, &ImageUpload{Filename: "a.png", Data: png})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert rejected")
	assert.Contains(t, err.Error(), "remove rejected")
}

func TestController_PublicationDate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	p, err := f.reg.Publications.Add(ctx, Publication{Title: "Paper", Month: "03", Year: "2024"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "03, 2024", p.Date)

	tests := []struct {
		name       string
		directives []core.UpdateDirective
		wantDate   string
		wantVenue  string
	}{
		{
			name: "month and year derive the date",
			directives: []core.UpdateDirective{
				{Column: "month", Value: core.Text("7")},
				{Column: "year", Value: core.Text("2023")},
				{Column: "venue", Value: core.Text("ICSE")},
			},
			wantDate:  "07, 2023",
			wantVenue: "ICSE",
		},
		{
			name: "month alone leaves the date",
			directives: []core.UpdateDirective{
				{Column: "month", Value: core.Text("11")},
				{Column: "venue", Value: core.Text("FSE")},
			},
			wantDate:  "07, 2023",
			wantVenue: "FSE",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, f.reg.Publications.Update(ctx, p.ID, tt.directives))
			got, err := f.reg.Publications.Get(ctx, p.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantDate, got.Date)
			assert.Equal(t, tt.wantVenue, got.Venue)
		})
	}
}

func TestController_Update(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	p, err := f.reg.Projects.Add(ctx, Project{Name: "Atlas", Status: "active"}, nil)
	require.NoError(t, err)

	err = f.reg.Projects.Update(ctx, p.ID, []core.UpdateDirective{
		{Column: "is_featured", Value: core.Bool(true), ConditionColumn: "id", ConditionValue: core.Text(p.ID)},
		{Column: "status", Value: core.Text("completed"), ConditionColumn: "id", ConditionValue: core.Text(p.ID)},
		{Column: "status", Value: core.Text("on_hold"), ConditionColumn: "id", ConditionValue: core.Text(p.ID)},
	})
	require.NoError(t, err)

	got, err := f.reg.Projects.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.IsFeatured)
	assert.Equal(t, "on_hold", got.Status, "the last directive for a column wins")
	assert.Equal(t, "Atlas", got.Name)

	err = f.reg.Projects.Update(ctx, p.ID, []core.UpdateDirective{{Column: "name", Value: core.Text("")}})
	assert.ErrorIs(t, err, ErrValidation)

	err = f.reg.Projects.Update(ctx, p.ID, []core.UpdateDirective{{Column: "owner; DROP TABLE projects", Value: core.Text("x")}})
	assert.ErrorIs(t, err, ErrValidation)

	assert.NoError(t, f.reg.Projects.Update(ctx, p.ID, nil), "nothing to update")
}

func TestController_DeleteRemovesImage(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	m, err := f.reg.Members.Add(ctx, Member{Name: "Ada"}, &ImageUpload{Filename: "ada.png", Data: png})
	require.NoError(t, err)
	require.Len(t, f.objects(t, "member"), 1)

	require.NoError(t, f.reg.Members.Delete(ctx, m.ID))
	assert.Empty(t, f.objects(t, "member"))

	_, err = f.reg.Members.Get(ctx, m.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestController_DeleteSkipsForeignImageURL(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a, err := f.reg.Affiliations.Add(ctx, Affiliation{Name: "Lab", Image: "not-a-real-url"}, nil)
	require.NoError(t, err)

	require.NoError(t, f.reg.Affiliations.Delete(ctx, a.ID))
	rows, err := f.reg.Affiliations.Records(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestController_DeleteImageFailureKeepsRow(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a, err := f.reg.Affiliations.Add(ctx, Affiliation{Name: "Lab"}, &ImageUpload{Filename: "l.gif", Data: png})
	require.NoError(t, err)

	f.blobs.fail["remove"] = true
	err = f.reg.Affiliations.Delete(ctx, a.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remove rejected")

	_, err = f.reg.Affiliations.Get(ctx, a.ID)
	assert.NoError(t, err, "row survives when the image cannot be removed")
}

func TestController_DeleteRestoresImage(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	fac, err := f.reg.Faculty.Add(ctx, Faculty{Name: "Grace"}, &ImageUpload{Filename: "g.png", Data: png})
	require.NoError(t, err)
	p, ok := core.ParseStoragePath(fac.Image, testBucket)
	require.True(t, ok)

	f.rows.fail["delete"] = true
	err = f.reg.Faculty.Delete(ctx, fac.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete rejected")

	data, err := f.blobs.Download(ctx, p)
	require.NoError(t, err, "image is uploaded again")
	assert.Equal(t, png, data)
}

func TestController_DeleteMissing(t *testing.T) {
	f := setup(t)
	err := f.reg.Projects.Delete(context.Background(), "nope")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRegistry(t *testing.T) {
	f := setup(t)
	assert.Equal(t, []string{"affiliations", "faculty", "members", "projects", "publications"}, f.reg.Tables())

	svc, ok := f.reg.Lookup("members")
	require.True(t, ok)
	assert.Equal(t, "member", svc.Descriptor().ImageFolder)

	_, ok = f.reg.Lookup("users")
	assert.False(t, ok)
}

func TestService_AddForm(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	svc, _ := f.reg.Lookup("publications")

	err := svc.AddForm(ctx, map[string][]string{
		"title": {"Paper"},
		"month": {"03"},
		"year":  {"2024"},
		"type":  {"journal"},
	}, nil)
	require.NoError(t, err)

	rows, err := svc.Records(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "03, 2024", rows[0].Value("date").AsString())
}
