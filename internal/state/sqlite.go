package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spcai/labcms/internal/blob"
	"github.com/spcai/labcms/pkg/core"

	// pure-Go SQLite driver, registered as "sqlite"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements core.BlobStore with objects stored as rows.
// Folders are implied by the slash-separated object names.
type SQLiteStore struct {
	db      *sql.DB
	path    string
	bucket  string
	baseURL string
	logger  *slog.Logger
}

// Config holds configuration for the SQLite object store.
type Config struct {
	Bucket  string
	BaseURL string
	Logger  *slog.Logger
}

// NewSQLiteStore creates a new SQLite object store instance.
func NewSQLiteStore(cfg Config) *SQLiteStore {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{bucket: cfg.Bucket, baseURL: cfg.BaseURL, logger: logger}
}

// Open opens a connection to the SQLite database.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Test connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Bucket returns the bucket name.
func (s *SQLiteStore) Bucket() string { return s.bucket }

// PublicURL returns the public URL of p.
func (s *SQLiteStore) PublicURL(p string) string {
	return core.PublicURL(s.baseURL, s.bucket, p)
}

// generateID creates a new UUID.
func generateID() string {
	return uuid.New().String()
}

// escapeLike escapes LIKE wildcards; queries use ESCAPE '\'.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// List returns the immediate children of prefix.
func (s *SQLiteStore) List(ctx context.Context, prefix string, opts core.ListOptions) ([]core.ObjectEntry, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	clean, err := core.CleanPrefix(prefix)
	if err != nil {
		return nil, err
	}

	pattern := "%"
	if clean != "" {
		pattern = escapeLike(clean+"/") + "%"
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, mime_type, size, updated_at FROM objects WHERE bucket = ? AND name LIKE ? ESCAPE '\' ORDER BY name`,
		s.bucket, pattern,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}
	defer func() { _ = rows.Close() }()

	entries := []core.ObjectEntry{}
	folders := make(map[string]bool)
	for rows.Next() {
		var (
			id, name, mimeType string
			size               int64
			updatedAt          time.Time
		)
		if err := rows.Scan(&id, &name, &mimeType, &size, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan object: %w", err)
		}

		rest := name
		if clean != "" {
			rest = strings.TrimPrefix(name, clean+"/")
		}
		if i := strings.Index(rest, "/"); i >= 0 {
			folder := rest[:i]
			if !folders[folder] {
				folders[folder] = true
				entries = append(entries, core.ObjectEntry{Name: folder})
			}
			continue
		}
		entries = append(entries, core.ObjectEntry{
			ID:   id,
			Name: rest,
			Metadata: &core.ObjectMetadata{
				MimeType:  mimeType,
				Size:      size,
				UpdatedAt: updatedAt.UTC(),
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}

	core.SortEntries(entries, opts)
	return entries, nil
}

// Upload stores data at p. Existing objects are not overwritten.
func (s *SQLiteStore) Upload(ctx context.Context, p string, data []byte) (string, error) {
	if s.db == nil {
		return "", fmt.Errorf("database not opened")
	}
	clean, err := core.CleanObjectPath(p)
	if err != nil {
		return "", err
	}
	if data == nil {
		data = []byte{}
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO objects (id, bucket, name, mime_type, size, data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT (bucket, name) DO NOTHING`,
		generateID(), s.bucket, clean, blob.DetectMimeType(clean, data), len(data), data, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", clean, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", fmt.Errorf("%s: %w", clean, core.ErrAlreadyExists)
	}

	s.logger.Debug("uploaded object", slog.String("path", clean), slog.Int("bytes", len(data)))
	return clean, nil
}

// Download returns the bytes stored at p.
func (s *SQLiteStore) Download(ctx context.Context, p string) ([]byte, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	clean, err := core.CleanObjectPath(p)
	if err != nil {
		return nil, err
	}

	var data []byte
	err = s.db.QueryRowContext(ctx,
		`SELECT data FROM objects WHERE bucket = ? AND name = ?`, s.bucket, clean,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", clean, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", clean, err)
	}
	return data, nil
}

// Move renames an object, or every object under a folder prefix.
func (s *SQLiteStore) Move(ctx context.Context, from, to string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	cleanFrom, err := core.CleanObjectPath(from)
	if err != nil {
		return err
	}
	cleanTo, err := core.CleanObjectPath(to)
	if err != nil {
		return err
	}
	if cleanFrom == cleanTo {
		return nil
	}
	if strings.HasPrefix(cleanTo, cleanFrom+"/") {
		return fmt.Errorf("%w: cannot move %s into itself", core.ErrInvalidPath, cleanFrom)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin move: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var taken int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM objects WHERE bucket = ? AND (name = ? OR name LIKE ? ESCAPE '\')`,
		s.bucket, cleanTo, escapeLike(cleanTo+"/")+"%",
	).Scan(&taken); err != nil {
		return fmt.Errorf("failed to check %s: %w", cleanTo, err)
	}
	if taken > 0 {
		return fmt.Errorf("%s: %w", cleanTo, core.ErrAlreadyExists)
	}

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`UPDATE objects SET name = ?, updated_at = ? WHERE bucket = ? AND name = ?`,
		cleanTo, now, s.bucket, cleanFrom,
	)
	if err != nil {
		return fmt.Errorf("failed to move %s: %w", cleanFrom, err)
	}
	moved, _ := res.RowsAffected()

	if moved == 0 {
		res, err = tx.ExecContext(ctx,
			`UPDATE objects SET name = ? || substr(name, ?), updated_at = ?
			 WHERE bucket = ? AND name LIKE ? ESCAPE '\'`,
			cleanTo, len(cleanFrom)+1, now, s.bucket, escapeLike(cleanFrom+"/")+"%",
		)
		if err != nil {
			return fmt.Errorf("failed to move %s: %w", cleanFrom, err)
		}
		moved, _ = res.RowsAffected()
	}
	if moved == 0 {
		return fmt.Errorf("%s: %w", cleanFrom, core.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit move: %w", err)
	}
	s.logger.Debug("moved objects", slog.String("from", cleanFrom), slog.String("to", cleanTo), slog.Int64("count", moved))
	return nil
}

// Remove deletes the given objects in one transaction. Missing objects are
// skipped.
func (s *SQLiteStore) Remove(ctx context.Context, paths []string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if len(paths) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin remove: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range paths {
		clean, err := core.CleanObjectPath(p)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM objects WHERE bucket = ? AND name = ?`, s.bucket, clean,
		); err != nil {
			return fmt.Errorf("failed to remove %s: %w", clean, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit remove: %w", err)
	}
	s.logger.Debug("removed objects", slog.Int("count", len(paths)))
	return nil
}
