package output

import "time"

// RecordsOutput is the JSON result of `labcms list`.
type RecordsOutput struct {
	Table   string           `json:"table"`
	Total   int              `json:"total"`
	Records []map[string]any `json:"records"`
}

// ObjectInfo is one entry of `labcms files ls`.
type ObjectInfo struct {
	Name      string     `json:"name"`
	Path      string     `json:"path"`
	Folder    bool       `json:"folder"`
	MimeType  string     `json:"mime_type,omitempty"`
	Size      int64      `json:"size,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
	PublicURL string     `json:"public_url,omitempty"`
}

// FilesOutput is the JSON result of `labcms files ls`.
type FilesOutput struct {
	Bucket  string       `json:"bucket"`
	Prefix  string       `json:"prefix"`
	Objects []ObjectInfo `json:"objects"`
}

// SeedTable is the number of rows seeded into one table.
type SeedTable struct {
	Table string `json:"table"`
	Rows  int    `json:"rows"`
}

// SeedOutput is the JSON result of `labcms seed`.
type SeedOutput struct {
	File   string      `json:"file"`
	Tables []SeedTable `json:"tables"`
	Total  int         `json:"total"`
}

// MigrateOutput is the JSON result of `labcms migrate`.
type MigrateOutput struct {
	Rows   string `json:"rows"`
	Blobs  string `json:"blobs"`
	Bucket string `json:"bucket"`
}
