package filetree

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spcai/labcms/pkg/core"
)

// ErrNotFolder is returned when a folder operation targets a file.
var ErrNotFolder = errors.New("not a folder")

// KeepFile is the zero-byte marker that makes an empty folder visible.
const KeepFile = ".keep"

// Browser holds one client's view of a bucket. Mutations refresh the root
// listing when they succeed, which collapses the tree.
type Browser struct {
	store  core.BlobStore
	logger *slog.Logger

	mu      sync.Mutex
	roots   []*Node
	current string
}

// NewBrowser creates a browser over store.
func NewBrowser(store core.BlobStore, logger *slog.Logger) *Browser {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Browser{store: store, logger: logger, roots: []*Node{}}
}

// Tree returns a copy of the current tree.
func (b *Browser) Tree() []*Node {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Clone(b.roots)
}

// CurrentPath is the folder that uploads and new folders go into.
func (b *Browser) CurrentPath() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// SetCurrentPath changes the current folder.
func (b *Browser) SetCurrentPath(p string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = strings.Trim(p, "/")
}

// Refresh rebuilds the tree from the root listing.
func (b *Browser) Refresh(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refresh(ctx)
}

func (b *Browser) refresh(ctx context.Context) error {
	entries, err := b.store.List(ctx, "", core.DefaultListOptions())
	if err != nil {
		return fmt.Errorf("failed to list files and folders: %w", err)
	}
	b.roots = Build(entries, "")
	return nil
}

// Toggle opens or closes the folder at p and makes it the current folder.
// A folder without children is fetched before it opens.
func (b *Browser) Toggle(ctx context.Context, p string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	node, err := b.folder(p)
	if err != nil {
		return err
	}
	b.current = node.Path
	if len(node.Children) == 0 {
		if err := b.load(ctx, node); err != nil {
			return err
		}
	}
	node.Open = !node.Open
	return nil
}

// Expand opens the folder at p, fetching its children when it has none and
// has not been loaded before.
func (b *Browser) Expand(ctx context.Context, p string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	node, err := b.folder(p)
	if err != nil {
		return err
	}
	b.current = node.Path
	if len(node.Children) == 0 && !node.Loaded {
		if err := b.load(ctx, node); err != nil {
			return err
		}
	}
	node.Open = true
	return nil
}

func (b *Browser) load(ctx context.Context, node *Node) error {
	entries, err := b.store.List(ctx, node.Path, core.DefaultListOptions())
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", node.Path, err)
	}
	node.Children = Build(entries, node.Path)
	node.Loaded = true
	return nil
}

func (b *Browser) folder(p string) (*Node, error) {
	node := Find(b.roots, strings.Trim(p, "/"))
	if node == nil {
		return nil, fmt.Errorf("%s: %w", p, core.ErrNotFound)
	}
	if !node.IsFolder {
		return nil, fmt.Errorf("%s: %w", p, ErrNotFolder)
	}
	return node, nil
}

// ValidateName checks a file or folder name entered by the user.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: name is required", core.ErrInvalidPath)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: name must not contain a slash", core.ErrInvalidPath)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", core.ErrInvalidPath, name)
	}
	return nil
}

// Rename replaces the last segment of p with newName and returns the new
// path.
func (b *Browser) Rename(ctx context.Context, p, newName string) (string, error) {
	if err := ValidateName(newName); err != nil {
		return "", err
	}
	p = strings.Trim(p, "/")
	dest := core.JoinObjectPath(parentOf(p), newName)
	if dest == p {
		return p, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.store.Move(ctx, p, dest); err != nil {
		return "", fmt.Errorf("failed to rename %s: %w", baseName(p), err)
	}
	b.logger.Info("renamed", slog.String("from", p), slog.String("to", dest))
	return dest, b.refresh(ctx)
}

// Move moves src into the folder dstFolder and returns the new path.
func (b *Browser) Move(ctx context.Context, src, dstFolder string) (string, error) {
	src = strings.Trim(src, "/")
	dstFolder = strings.Trim(dstFolder, "/")

	b.mu.Lock()
	defer b.mu.Unlock()

	dst, err := b.folder(dstFolder)
	if err != nil {
		return "", fmt.Errorf("drop target: %w", err)
	}
	if dst.Path == src || strings.HasPrefix(dst.Path, src+"/") {
		return "", fmt.Errorf("%w: cannot move %s into itself", core.ErrInvalidPath, src)
	}

	dest := dst.Path + "/" + baseName(src)
	if dest == src {
		return src, nil
	}
	if err := b.store.Move(ctx, src, dest); err != nil {
		return "", fmt.Errorf("failed to move %s: %w", baseName(src), err)
	}
	b.logger.Info("moved", slog.String("from", src), slog.String("to", dest))
	return dest, b.refresh(ctx)
}

// Delete removes the file at p, or every object under the folder at p, in
// one batch. Folders are removed after their contents, deepest first, so
// a tree holding only empty folders disappears too. It returns the number
// of files removed.
func (b *Browser) Delete(ctx context.Context, p string) (int, error) {
	p = strings.Trim(p, "/")

	b.mu.Lock()
	defer b.mu.Unlock()

	isFolder := false
	if node := Find(b.roots, p); node != nil {
		isFolder = node.IsFolder
	} else {
		entries, err := b.store.List(ctx, p, core.DefaultListOptions())
		if err != nil {
			return 0, fmt.Errorf("failed to list %s: %w", p, err)
		}
		isFolder = len(entries) > 0
	}

	paths, files := []string{p}, 1
	if isFolder {
		var err error
		if paths, files, err = b.collect(ctx, p); err != nil {
			return 0, err
		}
		paths = append(paths, p)
	}

	if err := b.store.Remove(ctx, paths); err != nil {
		return 0, fmt.Errorf("failed to delete %s: %w", baseName(p), err)
	}
	b.logger.Info("deleted", slog.String("path", p), slog.Int("files", files), slog.Int("objects", len(paths)))
	return files, b.refresh(ctx)
}

// collect lists every object below prefix, files before the folder that
// holds them, and counts the files.
func (b *Browser) collect(ctx context.Context, prefix string) ([]string, int, error) {
	entries, err := b.store.List(ctx, prefix, core.DefaultListOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list %s: %w", prefix, err)
	}

	var paths []string
	files := 0
	for _, e := range entries {
		full := core.JoinObjectPath(prefix, e.Name)
		if e.IsFile() {
			paths = append(paths, full)
			files++
			continue
		}
		nested, n, err := b.collect(ctx, full)
		if err != nil {
			return nil, 0, err
		}
		paths = append(paths, nested...)
		paths = append(paths, full)
		files += n
	}
	return paths, files, nil
}

// Preview downloads the file at p for the viewer. Failures are reported in
// the returned preview, never as errors.
func (b *Browser) Preview(ctx context.Context, p string) Preview {
	p = strings.Trim(p, "/")
	name := baseName(p)

	data, err := b.store.Download(ctx, p)
	if err != nil {
		b.logger.Warn("failed to load file content", slog.String("path", p), slog.Any("error", err))
		return Preview{Kind: PreviewError, Name: name, Path: p, Error: MsgLoadFailed}
	}
	return classify(name, p, data)
}

// Upload stores data as name inside dir.
func (b *Browser) Upload(ctx context.Context, dir, name string, data []byte) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	stored, err := b.store.Upload(ctx, core.JoinObjectPath(dir, name), data)
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	b.logger.Info("uploaded", slog.String("path", stored), slog.Int("bytes", len(data)))
	return stored, b.refresh(ctx)
}

// CreateFolder creates dir/name by uploading an empty marker file.
func (b *Browser) CreateFolder(ctx context.Context, dir, name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	folder := core.JoinObjectPath(dir, name)

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.store.Upload(ctx, folder+"/"+KeepFile, []byte{}); err != nil {
		return "", fmt.Errorf("failed to create folder: %w", err)
	}
	b.logger.Info("created folder", slog.String("path", folder))
	return folder, b.refresh(ctx)
}
