// Package config provides shared configuration types for labcms.
// This package is decoupled from CLI concerns so the platform and UI can be
// configured without the command layer.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spcai/labcms/pkg/adapter"
)

// RowsConfig holds row store configuration.
type RowsConfig struct {
	Driver string `koanf:"driver"` // sqlite, postgres

	// File-based databases (SQLite)
	Path string `koanf:"path"`

	// Network databases
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Database string `koanf:"database"`

	// Additional driver-specific options
	Options map[string]string `koanf:"options"`
}

// AdapterConfig converts the row settings for the adapter registry.
func (r *RowsConfig) AdapterConfig() adapter.Config {
	return adapter.Config{
		Type:     strings.ToLower(r.Driver),
		Path:     r.Path,
		Host:     r.Host,
		Port:     r.Port,
		Database: r.Database,
		Username: r.User,
		Password: r.Password,
		Options:  r.Options,
	}
}

// Validate checks if the row store configuration is valid.
// The adapter registry decides which drivers are available.
func (r *RowsConfig) Validate() error {
	if r.Driver == "" {
		return fmt.Errorf("rows.driver is required")
	}
	if !adapter.IsRegistered(strings.ToLower(r.Driver)) {
		return &adapter.UnknownAdapterError{
			Type:      r.Driver,
			Available: adapter.ListAdapters(),
		}
	}
	return nil
}

// Blob store drivers.
const (
	BlobDriverFS     = "fs"
	BlobDriverSQLite = "sqlite"
)

// BlobsConfig holds object store configuration.
type BlobsConfig struct {
	Driver string `koanf:"driver"` // fs, sqlite

	// Root is the directory holding bucket folders (fs driver).
	Root string `koanf:"root"`

	// Path is the database file (sqlite driver).
	Path string `koanf:"path"`

	Bucket string `koanf:"bucket"`

	// PublicURL is the base of public object URLs, usually the UI address.
	PublicURL string `koanf:"public_url"`
}

// Validate checks if the object store configuration is valid.
func (b *BlobsConfig) Validate() error {
	switch b.Driver {
	case BlobDriverFS:
		if b.Root == "" {
			return fmt.Errorf("blobs.root is required for the fs driver")
		}
	case BlobDriverSQLite:
		if b.Path == "" {
			return fmt.Errorf("blobs.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown blobs.driver %q (available: %s, %s)", b.Driver, BlobDriverFS, BlobDriverSQLite)
	}
	if b.Bucket == "" {
		return fmt.Errorf("blobs.bucket is required")
	}
	return nil
}

// UIConfig holds configuration for the UI server.
type UIConfig struct {
	Port            int           `koanf:"port"`
	AutoOpen        bool          `koanf:"auto_open"`
	Watch           bool          `koanf:"watch"`
	ItemsPerPage    int           `koanf:"items_per_page"`
	SessionSecret   string        `koanf:"session_secret"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// PlatformConfig is the storage part of the configuration.
type PlatformConfig struct {
	Rows  *RowsConfig  `koanf:"rows"`
	Blobs *BlobsConfig `koanf:"blobs"`
}
