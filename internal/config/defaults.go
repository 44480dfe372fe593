package config

import "github.com/spcai/labcms/pkg/adapter"

// Default configuration values.
const (
	DefaultRowsDriver      = "sqlite"
	DefaultRowsPath        = ".labcms/content.db"
	DefaultBlobsDriver     = BlobDriverFS
	DefaultBlobsRoot       = ".labcms/storage"
	DefaultBlobsPath       = ".labcms/objects.db"
	DefaultBucket          = "spcai_images"
	DefaultUIPort          = 8765
	DefaultItemsPerPage    = 6
	DefaultShutdownSeconds = 5
)

// ApplyRowsDefaults applies default values to a RowsConfig based on the driver.
func ApplyRowsDefaults(r *RowsConfig) {
	if r == nil {
		return
	}
	if r.Driver == "" {
		r.Driver = DefaultRowsDriver
	}
	r.Driver = adapter.Canonical(r.Driver)
	switch r.Driver {
	case "sqlite":
		if r.Path == "" {
			r.Path = DefaultRowsPath
		}
	case "postgres":
		if r.Port == 0 {
			r.Port = 5432
		}
	}
}

// ApplyBlobsDefaults applies default values to a BlobsConfig.
func ApplyBlobsDefaults(b *BlobsConfig) {
	if b == nil {
		return
	}
	if b.Driver == "" {
		b.Driver = DefaultBlobsDriver
	}
	if b.Bucket == "" {
		b.Bucket = DefaultBucket
	}
	switch b.Driver {
	case BlobDriverFS:
		if b.Root == "" {
			b.Root = DefaultBlobsRoot
		}
	case BlobDriverSQLite:
		if b.Path == "" {
			b.Path = DefaultBlobsPath
		}
	}
}

// ApplyDefaults fills unset storage settings.
func (p *PlatformConfig) ApplyDefaults() {
	if p.Rows == nil {
		p.Rows = &RowsConfig{}
	}
	if p.Blobs == nil {
		p.Blobs = &BlobsConfig{}
	}
	ApplyRowsDefaults(p.Rows)
	ApplyBlobsDefaults(p.Blobs)
}
