package core

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"
)

// PublicObjectPrefix is the URL path segment under which public objects are served.
const PublicObjectPrefix = "/storage/v1/object/public/"

var publicURLPattern = regexp.MustCompile(`/storage/v1/object/public/([^/]+)/(.+)`)

// PublicURL builds the public URL of objectPath in bucket under baseURL.
func PublicURL(baseURL, bucket, objectPath string) string {
	segments := strings.Split(strings.Trim(objectPath, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(baseURL, "/") + PublicObjectPrefix + bucket + "/" + strings.Join(segments, "/")
}

// ParseStoragePath extracts the object path from a public URL of bucket.
// It reports false when the URL does not contain the public object pattern
// for that bucket.
func ParseStoragePath(publicURL, bucket string) (string, bool) {
	m := publicURLPattern.FindStringSubmatch(publicURL)
	if m == nil || m[1] != bucket {
		return "", false
	}
	objectPath := m[2]
	if i := strings.IndexAny(objectPath, "?#"); i >= 0 {
		objectPath = objectPath[:i]
	}
	if unescaped, err := url.PathUnescape(objectPath); err == nil {
		objectPath = unescaped
	}
	if objectPath == "" {
		return "", false
	}
	return objectPath, true
}

// CleanObjectPath normalizes a slash-separated object path. Empty paths and
// paths escaping the bucket are rejected.
func CleanObjectPath(p string) (string, error) {
	trimmed := strings.Trim(strings.ReplaceAll(p, "\\", "/"), "/")
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	for _, seg := range strings.Split(trimmed, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
		}
	}
	cleaned := path.Clean(trimmed)
	if cleaned == "." {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return cleaned, nil
}

// CleanPrefix normalizes a listing prefix. The empty prefix is the bucket root.
func CleanPrefix(prefix string) (string, error) {
	if strings.Trim(prefix, "/") == "" {
		return "", nil
	}
	return CleanObjectPath(prefix)
}

// JoinObjectPath joins a folder path and a name.
func JoinObjectPath(dir, name string) string {
	dir = strings.Trim(dir, "/")
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

// SortEntries orders a listing by opts. Only name and updated_at are
// supported; other columns fall back to name.
func SortEntries(entries []ObjectEntry, opts ListOptions) {
	desc := strings.EqualFold(opts.SortBy.Order, "desc")
	byTime := opts.SortBy.Column == "updated_at"
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if byTime {
			ta, tb := entryTime(a), entryTime(b)
			if !ta.Equal(tb) {
				if desc {
					return ta.After(tb)
				}
				return ta.Before(tb)
			}
		}
		if desc {
			return a.Name > b.Name
		}
		return a.Name < b.Name
	})
}

func entryTime(e ObjectEntry) time.Time {
	if e.Metadata == nil {
		return time.Time{}
	}
	return e.Metadata.UpdatedAt
}
