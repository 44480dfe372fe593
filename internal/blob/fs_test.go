package blob

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spcai/labcms/internal/testutil"
	"github.com/spcai/labcms/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *FSStore {
	t.Helper()
	s, err := NewFSStore(Config{
		Root:    t.TempDir(),
		Bucket:  "spcai_images",
		BaseURL: "http://localhost:8765",
		Logger:  testutil.NewTestLogger(t),
	})
	require.NoError(t, err)
	return s
}

func names(entries []core.ObjectEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func TestNewFSStore_InvalidBucket(t *testing.T) {
	for _, bucket := range []string{"", "a/b", ".."} {
		_, err := NewFSStore(Config{Root: t.TempDir(), Bucket: bucket})
		assert.Error(t, err, "bucket %q", bucket)
	}
}

func TestFSStore_UploadListDownload(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	stored, err := s.Upload(ctx, "/docs/readme.md", []byte("# hi"))
	require.NoError(t, err)
	assert.Equal(t, "docs/readme.md", stored)

	_, err = s.Upload(ctx, "logo.png", []byte{0x89, 'P', 'N', 'G'})
	require.NoError(t, err)
	_, err = s.Upload(ctx, "a.txt", []byte("a"))
	require.NoError(t, err)

	root, err := s.List(ctx, "", core.DefaultListOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "docs", "logo.png"}, names(root))

	assert.Nil(t, root[1].Metadata, "folders carry no metadata")
	require.NotNil(t, root[2].Metadata)
	assert.Equal(t, "image/png", root[2].Metadata.MimeType)
	assert.Equal(t, int64(4), root[2].Metadata.Size)

	docs, err := s.List(ctx, "docs", core.DefaultListOptions())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "readme.md", docs[0].Name)
	assert.Equal(t, "docs/readme.md", docs[0].ID)

	data, err := s.Download(ctx, "docs/readme.md")
	require.NoError(t, err)
	assert.Equal(t, "# hi", string(data))
}

func TestFSStore_UploadExisting(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	_, err := s.Upload(ctx, "a.txt", []byte("a"))
	require.NoError(t, err)
	_, err = s.Upload(ctx, "a.txt", []byte("b"))
	assert.ErrorIs(t, err, core.ErrAlreadyExists)
}

func TestFSStore_RejectsEscapingPaths(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	_, err := s.Upload(ctx, "../outside.txt", []byte("x"))
	assert.ErrorIs(t, err, core.ErrInvalidPath)

	_, err = s.Download(ctx, "")
	assert.ErrorIs(t, err, core.ErrInvalidPath)

	_, err = s.List(ctx, "../", core.DefaultListOptions())
	assert.ErrorIs(t, err, core.ErrInvalidPath)
}

func TestFSStore_ListMissingPrefix(t *testing.T) {
	s := setupStore(t)
	entries, err := s.List(context.Background(), "nope", core.DefaultListOptions())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFSStore_DownloadMissing(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	_, err := s.Download(ctx, "missing.txt")
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, os.MkdirAll(filepath.Join(s.Dir(), "folder"), 0750))
	_, err = s.Download(ctx, "folder")
	assert.ErrorIs(t, err, core.ErrNotFound, "folders cannot be downloaded")
}

func TestFSStore_Move(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	_, err := s.Upload(ctx, "a/b.txt", []byte("b"))
	require.NoError(t, err)
	_, err = s.Upload(ctx, "c/keep.txt", []byte("k"))
	require.NoError(t, err)

	require.NoError(t, s.Move(ctx, "a/b.txt", "c/b.txt"))

	_, err = s.Download(ctx, "c/b.txt")
	require.NoError(t, err)

	root, err := s.List(ctx, "", core.DefaultListOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, names(root), "emptied source folder is pruned")

	assert.ErrorIs(t, s.Move(ctx, "missing", "x"), core.ErrNotFound)
	assert.ErrorIs(t, s.Move(ctx, "c/b.txt", "c/keep.txt"), core.ErrAlreadyExists)
	assert.ErrorIs(t, s.Move(ctx, "c", "c/sub"), core.ErrInvalidPath)
}

func TestFSStore_Remove(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	for _, p := range []string{"x/1.txt", "x/y/2.txt", "z.txt"} {
		_, err := s.Upload(ctx, p, []byte(p))
		require.NoError(t, err)
	}

	// removing a non-empty folder path alone does not touch nested objects
	require.NoError(t, s.Remove(ctx, []string{"x"}))
	_, err := s.Download(ctx, "x/y/2.txt")
	require.NoError(t, err)

	require.NoError(t, s.Remove(ctx, []string{"x/1.txt", "x/y/2.txt", "missing.txt"}))

	root, err := s.List(ctx, "", core.DefaultListOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"z.txt"}, names(root))
}

func TestFSStore_PublicURL(t *testing.T) {
	s := setupStore(t)
	url := s.PublicURL("faculty/abc.png")
	assert.Equal(t, "http://localhost:8765/storage/v1/object/public/spcai_images/faculty/abc.png", url)

	p, ok := core.ParseStoragePath(url, s.Bucket())
	assert.True(t, ok)
	assert.Equal(t, "faculty/abc.png", p)
}

func TestDetectMimeType(t *testing.T) {
	assert.Equal(t, "image/png", DetectMimeType("a.PNG", nil))
	assert.Equal(t, "application/octet-stream", DetectMimeType(".keep", nil))
	assert.Equal(t, "text/plain; charset=utf-8", DetectMimeType("noext", []byte("hello")))
}

func TestFSStore_Watch(t *testing.T) {
	s := setupStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- s.Watch(ctx, 20*time.Millisecond, func() { calls.Add(1) })
	}()

	// give the watcher time to register
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "new.txt"), []byte("x"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "new2.txt"), []byte("x"), 0600))

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Watch did not stop after cancel")
	}
}
