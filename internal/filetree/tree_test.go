package filetree

import (
	"testing"

	"github.com/spcai/labcms/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func file(name string) core.ObjectEntry {
	return core.ObjectEntry{ID: name, Name: name, Metadata: &core.ObjectMetadata{MimeType: "text/plain"}}
}

func folder(name string) core.ObjectEntry {
	return core.ObjectEntry{Name: name}
}

func TestBuild_NestedPaths(t *testing.T) {
	tree := Build([]core.ObjectEntry{file("a/b.txt"), file("a/c/d.txt")}, "")

	require.Len(t, tree, 1)
	a := tree[0]
	assert.Equal(t, "a", a.Name)
	assert.True(t, a.IsFolder)
	require.Len(t, a.Children, 2)

	b, c := a.Children[0], a.Children[1]
	assert.Equal(t, "b.txt", b.Name)
	assert.False(t, b.IsFolder)
	assert.Equal(t, "a/b.txt", b.Path)

	assert.Equal(t, "c", c.Name)
	assert.True(t, c.IsFolder)
	require.Len(t, c.Children, 1)
	assert.Equal(t, "a/c/d.txt", c.Children[0].Path)
	assert.False(t, c.Children[0].IsFolder)
}

func TestBuild_Idempotent(t *testing.T) {
	entries := []core.ObjectEntry{file("a/b.txt"), file("a/c/d.txt"), folder("e"), file("f.md")}

	first := Build(entries, "")
	second := Build(entries, "")
	assert.Equal(t, first, second)
	assert.Equal(t, 6, Count(first))
}

func TestBuild_ParentPath(t *testing.T) {
	tree := Build([]core.ObjectEntry{file("x.png"), folder("sub")}, "/faculty/")

	require.Len(t, tree, 2)
	assert.Equal(t, "faculty/x.png", tree[0].Path)
	assert.Equal(t, "faculty/sub", tree[1].ID)
	assert.True(t, tree[1].IsFolder)
}

func TestBuild_Markers(t *testing.T) {
	tests := []struct {
		name     string
		entries  []core.ObjectEntry
		wantName string
		folder   bool
		count    int
	}{
		{
			name:     "entry without mime type is a folder",
			entries:  []core.ObjectEntry{folder("empty")},
			wantName: "empty",
			folder:   true,
			count:    1,
		},
		{
			name:     "trailing slash only makes the folder",
			entries:  []core.ObjectEntry{file("docs/")},
			wantName: "docs",
			folder:   true,
			count:    1,
		},
		{
			name:     "duplicate prefixes share a node",
			entries:  []core.ObjectEntry{file("a/1.txt"), file("a/2.txt"), file("a//3.txt")},
			wantName: "a",
			folder:   true,
			count:    4,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := Build(tt.entries, "")
			require.Len(t, tree, 1)
			assert.Equal(t, tt.wantName, tree[0].Name)
			assert.Equal(t, tt.folder, tree[0].IsFolder)
			assert.Equal(t, tt.count, Count(tree))
		})
	}
}

func TestFind(t *testing.T) {
	tree := Build([]core.ObjectEntry{file("a/b.txt"), file("a/c/d.txt")}, "")

	assert.Equal(t, "d.txt", Find(tree, "a/c/d.txt").Name)
	assert.Equal(t, "c", Find(tree, "a/c").Name)
	assert.Nil(t, Find(tree, "a/x"))
	assert.Nil(t, Find(tree, "ab"))
}

func TestClone(t *testing.T) {
	tree := Build([]core.ObjectEntry{file("a/b.txt")}, "")
	cp := Clone(tree)
	cp[0].Children[0].Name = "changed"
	assert.Equal(t, "b.txt", tree[0].Children[0].Name)
}
