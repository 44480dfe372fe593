package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spcai/labcms/internal/testutil"
	"github.com/spcai/labcms/pkg/adapter"
	"github.com/spcai/labcms/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *Adapter {
	t.Helper()
	a := New(testutil.NewTestLogger(t))
	ctx := context.Background()
	require.NoError(t, a.Connect(ctx, adapter.Config{Path: ":memory:"}))
	require.NoError(t, a.Migrate(ctx))
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestAdapter_Migrate(t *testing.T) {
	a := setupStore(t)
	ctx := context.Background()

	version, err := a.MigrationVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	// running again is a no-op
	require.NoError(t, a.Migrate(ctx))

	for _, table := range []string{"affiliations", "faculty", "members", "projects", "publications"} {
		rows, err := a.Select(ctx, table)
		require.NoError(t, err, table)
		assert.Empty(t, rows, table)
	}
}

func TestAdapter_CRUDRoundTrip(t *testing.T) {
	a := setupStore(t)
	ctx := context.Background()

	stored, err := a.Insert(ctx, "projects", core.NewRecord("",
		core.Field{Name: "name", Value: core.Text("Atlas")},
		core.Field{Name: "is_featured", Value: core.Bool(true)},
		core.Field{Name: "status", Value: core.Text("active")},
	))
	require.NoError(t, err)
	require.NotEmpty(t, stored.ID)

	// full column set comes back in declaration order
	assert.Equal(t, []string{
		"id", "name", "title", "short_description", "link",
		"is_featured", "is_open_source", "is_ours",
		"research_status", "status", "type",
	}, stored.Keys())
	assert.True(t, stored.Value("is_featured").AsBool())
	assert.Equal(t, core.KindBool, stored.Value("is_ours").Kind())
	assert.False(t, stored.Value("is_ours").AsBool())
	assert.True(t, stored.Value("link").IsNull())

	err = a.Update(ctx, "projects",
		core.NewRecord("", core.Field{Name: "status", Value: core.Text("on_hold")}),
		core.ByID(stored.ID))
	require.NoError(t, err)

	rows, err := a.Select(ctx, "projects", core.ByID(stored.ID))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "on_hold", rows[0].Value("status").String())

	require.NoError(t, a.Delete(ctx, "projects", core.ByID(stored.ID)))
	rows, err = a.Select(ctx, "projects")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestAdapter_ListColumns(t *testing.T) {
	a := setupStore(t)
	ctx := context.Background()

	stored, err := a.Insert(ctx, "publications", core.NewRecord("",
		core.Field{Name: "title", Value: core.Text("Paper")},
		core.Field{Name: "authors", Value: core.List("A. Lovelace", "C. Babbage")},
	))
	require.NoError(t, err)

	assert.Equal(t, []string{"A. Lovelace", "C. Babbage"}, stored.Value("authors").AsList())
	assert.Equal(t, core.KindList, stored.Value("tags").Kind(), "default list column decodes as a list")
	assert.Empty(t, stored.Value("tags").AsList())
}

func TestAdapter_IDsAreTimeOrdered(t *testing.T) {
	a := setupStore(t)
	ctx := context.Background()

	names := []string{"first", "second", "third"}
	for _, n := range names {
		_, err := a.Insert(ctx, "affiliations", core.NewRecord("", core.Field{Name: "name", Value: core.Text(n)}))
		require.NoError(t, err)
	}

	rows, err := a.Select(ctx, "affiliations")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i, n := range names {
		assert.Equal(t, n, rows[i].Value("name").String())
	}
}

func TestAdapter_FileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.db")
	ctx := context.Background()

	a := New(nil)
	require.NoError(t, a.Connect(ctx, adapter.Config{Path: path}))
	require.NoError(t, a.Migrate(ctx))
	_, err := a.Insert(ctx, "faculty", core.NewRecord("", core.Field{Name: "name", Value: core.Text("Dr. X")}))
	require.NoError(t, err)
	require.NoError(t, a.Close())

	b := New(nil)
	require.NoError(t, b.Connect(ctx, adapter.Config{Database: path}))
	defer func() { _ = b.Close() }()
	rows, err := b.Select(ctx, "faculty")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestAdapter_Registry(t *testing.T) {
	assert.True(t, adapter.IsRegistered("sqlite"))
}
