package platform

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spcai/labcms/internal/config"
	"github.com/spcai/labcms/internal/testutil"
	"github.com/spcai/labcms/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_FileStores(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	p, err := Open(ctx, config.PlatformConfig{
		Rows:  &config.RowsConfig{Driver: "sqlite", Path: filepath.Join(dir, "db", "content.db")},
		Blobs: &config.BlobsConfig{Driver: "fs", Root: filepath.Join(dir, "storage"), PublicURL: "http://localhost:8765"},
	}, testutil.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	assert.Equal(t, "sqlite", p.Dialect())
	assert.True(t, p.Watchable())
	assert.Equal(t, config.DefaultBucket, p.Blobs.Bucket())

	rec, err := p.Rows.Insert(ctx, "affiliations", core.NewRecord("", core.Field{Name: "name", Value: core.Text("Lab")}))
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)

	_, err = p.Blobs.Upload(ctx, "faculty/a.txt", []byte("x"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "storage", config.DefaultBucket, "faculty", "a.txt"))
	assert.NoError(t, err)
}

func TestOpen_SQLiteObjects(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	p, err := Open(ctx, config.PlatformConfig{
		Rows:  &config.RowsConfig{Driver: "sqlite", Path: ":memory:"},
		Blobs: &config.BlobsConfig{Driver: "sqlite", Path: filepath.Join(dir, "objects.db"), Bucket: "lab"},
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	assert.False(t, p.Watchable())
	_, err = p.Blobs.Upload(ctx, "member/x.png", []byte("png"))
	require.NoError(t, err)
	data, err := p.Blobs.Download(ctx, "member/x.png")
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))

	// Watch returns once the context ends when nothing can be watched.
	wctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	assert.NoError(t, p.Watch(wctx, func() {}))
}

func TestOpen_InvalidConfig(t *testing.T) {
	_, err := Open(context.Background(), config.PlatformConfig{
		Rows: &config.RowsConfig{Driver: "oracle"},
	}, nil)
	assert.Error(t, err)

	_, err = Open(context.Background(), config.PlatformConfig{
		Rows:  &config.RowsConfig{Driver: "sqlite", Path: ":memory:"},
		Blobs: &config.BlobsConfig{Driver: "s3"},
	}, nil)
	assert.Error(t, err)
}

func TestPlatform_Watch(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p, err := Open(ctx, config.PlatformConfig{
		Rows:  &config.RowsConfig{Driver: "sqlite", Path: ":memory:"},
		Blobs: &config.BlobsConfig{Driver: "fs", Root: dir},
	}, testutil.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	var changes atomic.Int32
	done := make(chan error, 1)
	go func() { done <- p.Watch(ctx, func() { changes.Add(1) }) }()

	// give the watcher time to register the bucket folder
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.DefaultBucket, "new.txt"), []byte("x"), 0o600))

	assert.Eventually(t, func() bool { return changes.Load() > 0 }, 2*time.Second, 20*time.Millisecond)
	cancel()
	<-done
}
