// Package config provides configuration management for the labcms CLI.
//
// It layers defaults, labcms.yaml, LABCMS_ environment variables and
// explicitly set flags over the shared storage types of internal/config.
package config

import (
	"time"

	sharedcfg "github.com/spcai/labcms/internal/config"
)

// RowsConfig is an alias for the shared row store configuration.
type RowsConfig = sharedcfg.RowsConfig

// BlobsConfig is an alias for the shared object store configuration.
type BlobsConfig = sharedcfg.BlobsConfig

// UIConfig is an alias for the shared UI server configuration.
type UIConfig = sharedcfg.UIConfig

// Config holds all CLI configuration options.
type Config struct {
	Rows         *RowsConfig  `koanf:"rows"`
	Blobs        *BlobsConfig `koanf:"blobs"`
	UI           *UIConfig    `koanf:"ui"`
	Verbose      bool         `koanf:"verbose"`
	OutputFormat string       `koanf:"output"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// Platform returns the storage part of the configuration.
func (c *Config) Platform() sharedcfg.PlatformConfig {
	return sharedcfg.PlatformConfig{Rows: c.Rows, Blobs: c.Blobs}
}

// GetUIConfig returns the UI config with defaults applied for any unset values.
func (c *Config) GetUIConfig() *UIConfig {
	if c.UI == nil {
		c.UI = &UIConfig{}
	}
	ui := c.UI
	if ui.Port == 0 {
		ui.Port = sharedcfg.DefaultUIPort
	}
	if ui.ItemsPerPage <= 0 {
		ui.ItemsPerPage = sharedcfg.DefaultItemsPerPage
	}
	if ui.ShutdownTimeout <= 0 {
		ui.ShutdownTimeout = sharedcfg.DefaultShutdownSeconds * time.Second
	}
	return ui
}

// Default configuration values.
const (
	DefaultOutput = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	EnvPrefix     = "LABCMS_"
)
