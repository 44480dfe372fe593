package commands

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spcai/labcms/internal/cli/output"
	clitest "github.com/spcai/labcms/internal/cli/testutil"
	"github.com/spcai/labcms/internal/filetree"
)

func TestFiles_UploadListRemove(t *testing.T) {
	h := newHarness(t, "markdown")
	local := clitest.WriteFile(t, h.dir, "docs/cv.txt", "curriculum")

	var uploaded map[string]string
	h.runJSON(&uploaded, NewFilesCommand(), "upload", local, "/people/")
	assert.Equal(t, "people/cv.txt", uploaded["path"])
	assert.Equal(t, "http://cms.test/storage/v1/object/public/test_images/people/cv.txt", uploaded["public_url"])
	assert.FileExists(t, filepath.Join(h.dir, ".labcms", "storage", "test_images", "people", "cv.txt"))

	var root output.FilesOutput
	h.runJSON(&root, NewFilesCommand(), "ls")
	assert.Equal(t, "test_images", root.Bucket)
	require.Len(t, root.Objects, 1)
	assert.Equal(t, output.ObjectInfo{Name: "people", Path: "people", Folder: true}, root.Objects[0])

	var people output.FilesOutput
	h.runJSON(&people, NewFilesCommand(), "ls", "people")
	require.Len(t, people.Objects, 1)
	cv := people.Objects[0]
	assert.Equal(t, "people/cv.txt", cv.Path)
	assert.False(t, cv.Folder)
	assert.Equal(t, int64(len("curriculum")), cv.Size)
	assert.Contains(t, cv.MimeType, "text/plain")
	assert.NotNil(t, cv.UpdatedAt)
	assert.Equal(t, uploaded["public_url"], cv.PublicURL)

	out, err := h.run(NewFilesCommand(), "ls", "people")
	require.NoError(t, err)
	assert.Contains(t, out, "# test_images/people")
	assert.Contains(t, out, "cv.txt")

	var removed map[string]int
	h.runJSON(&removed, NewFilesCommand(), "rm", "people")
	assert.Equal(t, 1, removed["deleted"])

	out, err = h.run(NewFilesCommand(), "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "Empty folder")
}

func TestFiles_Mkdir(t *testing.T) {
	h := newHarness(t, "text")

	out, err := h.run(NewFilesCommand(), "mkdir", "faculty/2026")
	require.NoError(t, err)
	assert.Contains(t, out, "Created folder faculty/2026")
	assert.FileExists(t, filepath.Join(h.dir, ".labcms", "storage", "test_images", "faculty", "2026", filetree.KeepFile))

	_, err = h.run(NewFilesCommand(), "mkdir", "/")
	assert.Error(t, err, "a folder needs a name")
}

func TestFiles_Errors(t *testing.T) {
	h := newHarness(t, "text")

	_, err := h.run(NewFilesCommand(), "upload", filepath.Join(h.dir, "missing.txt"))
	assert.ErrorContains(t, err, "failed to read")

	_, err = h.run(NewFilesCommand(), "ls", "../etc")
	assert.Error(t, err)
}

func TestPlural(t *testing.T) {
	assert.Equal(t, "file", plural(1, "file", "files"))
	assert.Equal(t, "files", plural(0, "file", "files"))
	assert.Equal(t, "files", plural(3, "file", "files"))
}
