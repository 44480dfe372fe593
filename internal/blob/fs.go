// Package blob provides a BlobStore backed by a directory on the local
// filesystem. Each bucket is a subdirectory of the storage root.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spcai/labcms/pkg/core"
)

// FSStore implements core.BlobStore on the local filesystem.
type FSStore struct {
	dir     string
	bucket  string
	baseURL string
	logger  *slog.Logger
}

// Config holds configuration for a filesystem blob store.
type Config struct {
	Root    string
	Bucket  string
	BaseURL string
	Logger  *slog.Logger
}

// NewFSStore creates the bucket directory under cfg.Root if needed.
func NewFSStore(cfg Config) (*FSStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if strings.ContainsAny(cfg.Bucket, `/\`) || cfg.Bucket == "." || cfg.Bucket == ".." {
		return nil, fmt.Errorf("invalid bucket name %q", cfg.Bucket)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	dir := filepath.Join(cfg.Root, cfg.Bucket)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create bucket directory: %w", err)
	}

	return &FSStore{
		dir:     dir,
		bucket:  cfg.Bucket,
		baseURL: cfg.BaseURL,
		logger:  logger,
	}, nil
}

// Bucket returns the bucket name.
func (s *FSStore) Bucket() string { return s.bucket }

// Dir returns the bucket directory.
func (s *FSStore) Dir() string { return s.dir }

// PublicURL returns the public URL of p.
func (s *FSStore) PublicURL(p string) string {
	return core.PublicURL(s.baseURL, s.bucket, p)
}

func (s *FSStore) resolve(p string) (string, string, error) {
	clean, err := core.CleanObjectPath(p)
	if err != nil {
		return "", "", err
	}
	return clean, filepath.Join(s.dir, filepath.FromSlash(clean)), nil
}

// List returns the immediate children of prefix. Directories are reported
// without metadata. A missing prefix lists as empty.
func (s *FSStore) List(ctx context.Context, prefix string, opts core.ListOptions) ([]core.ObjectEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean, err := core.CleanPrefix(prefix)
	if err != nil {
		return nil, err
	}
	dir := s.dir
	if clean != "" {
		dir = filepath.Join(s.dir, filepath.FromSlash(clean))
	}

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []core.ObjectEntry{}, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}

	entries := make([]core.ObjectEntry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() {
			entries = append(entries, core.ObjectEntry{Name: de.Name()})
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, core.ObjectEntry{
			ID:   core.JoinObjectPath(clean, de.Name()),
			Name: de.Name(),
			Metadata: &core.ObjectMetadata{
				MimeType:  DetectMimeType(de.Name(), nil),
				Size:      info.Size(),
				UpdatedAt: info.ModTime().UTC(),
			},
		})
	}

	core.SortEntries(entries, opts)
	return entries, nil
}

// Upload stores data at p. Existing objects are not overwritten.
func (s *FSStore) Upload(ctx context.Context, p string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean, full, err := s.resolve(p)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0750); err != nil {
		return "", fmt.Errorf("failed to create folder for %s: %w", clean, err)
	}

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0640) //nolint:gosec // path is confined to the bucket
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%s: %w", clean, core.ErrAlreadyExists)
		}
		return "", fmt.Errorf("failed to upload %s: %w", clean, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(full)
		return "", fmt.Errorf("failed to upload %s: %w", clean, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", clean, err)
	}

	s.logger.Debug("uploaded object", slog.String("path", clean), slog.Int("bytes", len(data)))
	return clean, nil
}

// Download returns the bytes stored at p.
func (s *FSStore) Download(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean, full, err := s.resolve(p)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("%s: %w", clean, core.ErrNotFound)
	}
	data, err := os.ReadFile(full) //nolint:gosec // path is confined to the bucket
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", clean, err)
	}
	return data, nil
}

// Move renames an object or folder. The destination must not exist.
func (s *FSStore) Move(ctx context.Context, from, to string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cleanFrom, fullFrom, err := s.resolve(from)
	if err != nil {
		return err
	}
	cleanTo, fullTo, err := s.resolve(to)
	if err != nil {
		return err
	}
	if cleanFrom == cleanTo {
		return nil
	}
	if strings.HasPrefix(cleanTo, cleanFrom+"/") {
		return fmt.Errorf("%w: cannot move %s into itself", core.ErrInvalidPath, cleanFrom)
	}
	if _, err := os.Stat(fullFrom); err != nil {
		return fmt.Errorf("%s: %w", cleanFrom, core.ErrNotFound)
	}
	if _, err := os.Stat(fullTo); err == nil {
		return fmt.Errorf("%s: %w", cleanTo, core.ErrAlreadyExists)
	}
	if err := os.MkdirAll(filepath.Dir(fullTo), 0750); err != nil {
		return fmt.Errorf("failed to create folder for %s: %w", cleanTo, err)
	}
	if err := os.Rename(fullFrom, fullTo); err != nil {
		return fmt.Errorf("failed to move %s: %w", cleanFrom, err)
	}
	s.pruneEmptyParents(path.Dir(cleanFrom))

	s.logger.Debug("moved object", slog.String("from", cleanFrom), slog.String("to", cleanTo))
	return nil
}

// Remove deletes the given objects. Missing objects and non-empty folders
// are skipped, matching object-store semantics where a folder is only a
// shared prefix. Folders left empty are pruned.
func (s *FSStore) Remove(ctx context.Context, paths []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var errs []error
	for _, p := range paths {
		clean, full, err := s.resolve(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		info, err := os.Stat(full)
		if err != nil {
			continue
		}
		if info.IsDir() {
			entries, err := os.ReadDir(full)
			if err != nil || len(entries) > 0 {
				continue
			}
		}
		if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", clean, err))
			continue
		}
		s.pruneEmptyParents(path.Dir(clean))
	}

	s.logger.Debug("removed objects", slog.Int("count", len(paths)))
	return errors.Join(errs...)
}

// pruneEmptyParents removes empty folders from dir up to the bucket root.
func (s *FSStore) pruneEmptyParents(dir string) {
	for dir != "." && dir != "/" && dir != "" {
		full := filepath.Join(s.dir, filepath.FromSlash(dir))
		entries, err := os.ReadDir(full)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(full); err != nil {
			return
		}
		dir = path.Dir(dir)
	}
}

// DetectMimeType guesses the MIME type from the extension, falling back to
// sniffing data and finally to application/octet-stream.
func DetectMimeType(name string, data []byte) string {
	if t := mime.TypeByExtension(strings.ToLower(path.Ext(name))); t != "" {
		return t
	}
	if len(data) > 0 {
		return http.DetectContentType(data)
	}
	return "application/octet-stream"
}
