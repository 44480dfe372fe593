package core

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors shared by store implementations.
var (
	// ErrNotFound is returned when a row or object does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidIdentifier is returned for table or column names that are not plain identifiers.
	ErrInvalidIdentifier = errors.New("invalid identifier")
	// ErrInvalidPath is returned for object paths that escape the bucket or are empty.
	ErrInvalidPath = errors.New("invalid object path")
	// ErrAlreadyExists is returned when an upload or move target is taken.
	ErrAlreadyExists = errors.New("the resource already exists")
)

// RowStore defines the row operations of the platform.
type RowStore interface {
	// Select returns every row of table matching all filters, ordered by id.
	Select(ctx context.Context, table string, filters ...Filter) ([]Record, error)

	// Insert stores rec and returns it with its generated id.
	Insert(ctx context.Context, table string, rec Record) (Record, error)

	// Update writes the fields of partial into the rows matching filter.
	Update(ctx context.Context, table string, partial Record, filter Filter) error

	// Delete removes the rows matching filter.
	Delete(ctx context.Context, table string, filter Filter) error
}

// SortBy orders a listing.
type SortBy struct {
	Column string
	Order  string
}

// ListOptions controls a blob listing.
type ListOptions struct {
	SortBy SortBy
}

// DefaultListOptions sorts entries by name, ascending.
func DefaultListOptions() ListOptions {
	return ListOptions{SortBy: SortBy{Column: "name", Order: "asc"}}
}

// ObjectMetadata describes a stored object. Folders carry no metadata.
type ObjectMetadata struct {
	MimeType  string
	Size      int64
	UpdatedAt time.Time
}

// ObjectEntry is one entry of a blob listing. Name is relative to the
// listed prefix.
type ObjectEntry struct {
	ID       string
	Name     string
	Metadata *ObjectMetadata
}

// IsFile reports whether the entry carries a MIME type.
func (e ObjectEntry) IsFile() bool {
	return e.Metadata != nil && e.Metadata.MimeType != ""
}

// BlobStore defines the object operations of the platform, bound to one bucket.
type BlobStore interface {
	// Bucket returns the bucket name.
	Bucket() string

	// List returns the immediate children of prefix.
	List(ctx context.Context, prefix string, opts ListOptions) ([]ObjectEntry, error)

	// Upload stores data at path and returns the stored path.
	Upload(ctx context.Context, path string, data []byte) (string, error)

	// Download returns the bytes stored at path.
	Download(ctx context.Context, path string) ([]byte, error)

	// Move renames an object.
	Move(ctx context.Context, from, to string) error

	// Remove deletes the given objects in one call.
	Remove(ctx context.Context, paths []string) error

	// PublicURL returns the public URL of path.
	PublicURL(path string) string
}

// Platform is the database-and-storage collaborator injected at the
// composition root.
type Platform struct {
	Rows  RowStore
	Blobs BlobStore
}
