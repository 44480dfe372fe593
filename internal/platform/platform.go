// Package platform assembles the row store and blob store from
// configuration and ties their lifecycle to the application.
package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spcai/labcms/internal/blob"
	"github.com/spcai/labcms/internal/config"
	"github.com/spcai/labcms/internal/state"
	"github.com/spcai/labcms/pkg/adapter"
	"github.com/spcai/labcms/pkg/core"

	// Row store drivers register themselves with the adapter registry.
	_ "github.com/spcai/labcms/pkg/adapters/postgres"
	_ "github.com/spcai/labcms/pkg/adapters/sqlite"
)

// Platform is an opened row store and blob store.
type Platform struct {
	core.Platform

	rows    adapter.Adapter
	files   *blob.FSStore
	objects *state.SQLiteStore
	logger  *slog.Logger
}

// Open connects both stores described by cfg and runs pending migrations.
// Unset settings take their defaults.
func Open(ctx context.Context, cfg config.PlatformConfig, logger *slog.Logger) (*Platform, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cfg.ApplyDefaults()
	if err := cfg.Rows.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Blobs.Validate(); err != nil {
		return nil, err
	}

	p := &Platform{logger: logger}

	rowsCfg := cfg.Rows.AdapterConfig()
	rows, err := adapter.NewAdapter(rowsCfg, logger)
	if err != nil {
		return nil, err
	}
	if rowsCfg.Type == "sqlite" {
		if err := ensureParent(rowsCfg.Path); err != nil {
			return nil, err
		}
	}
	if err := rows.Connect(ctx, rowsCfg); err != nil {
		return nil, fmt.Errorf("failed to connect row store: %w", err)
	}
	p.rows = rows
	p.Rows = rows

	if err := rows.Migrate(ctx); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("failed to migrate row store: %w", err)
	}

	switch cfg.Blobs.Driver {
	case config.BlobDriverFS:
		files, err := blob.NewFSStore(blob.Config{
			Root:    cfg.Blobs.Root,
			Bucket:  cfg.Blobs.Bucket,
			BaseURL: cfg.Blobs.PublicURL,
			Logger:  logger,
		})
		if err != nil {
			_ = p.Close()
			return nil, err
		}
		p.files = files
		p.Blobs = files
	case config.BlobDriverSQLite:
		objects := state.NewSQLiteStore(state.Config{
			Bucket:  cfg.Blobs.Bucket,
			BaseURL: cfg.Blobs.PublicURL,
			Logger:  logger,
		})
		if err := ensureParent(cfg.Blobs.Path); err != nil {
			_ = p.Close()
			return nil, err
		}
		if err := objects.Open(cfg.Blobs.Path); err != nil {
			_ = p.Close()
			return nil, err
		}
		p.objects = objects
		p.Blobs = objects
		if err := objects.Migrate(ctx); err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("failed to migrate object store: %w", err)
		}
	}

	logger.Debug("platform opened",
		slog.String("rows", rows.DialectName()),
		slog.String("blobs", cfg.Blobs.Driver),
		slog.String("bucket", cfg.Blobs.Bucket))
	return p, nil
}

func ensureParent(path string) error {
	if path == "" || path == ":memory:" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	return nil
}

// Close releases both stores.
func (p *Platform) Close() error {
	var errs []error
	if p.rows != nil {
		errs = append(errs, p.rows.Close())
	}
	if p.objects != nil {
		errs = append(errs, p.objects.Close())
	}
	return errors.Join(errs...)
}

// Dialect names the row store backend.
func (p *Platform) Dialect() string {
	if p.rows == nil {
		return ""
	}
	return p.rows.DialectName()
}

// Watch calls onChange when files in the bucket change. Only the fs blob
// driver can be watched; for other drivers Watch blocks until ctx is done.
func (p *Platform) Watch(ctx context.Context, onChange func()) error {
	if p.files == nil {
		<-ctx.Done()
		return nil
	}
	return p.files.Watch(ctx, blob.DefaultDebounce, onChange)
}

// Watchable reports whether Watch observes changes.
func (p *Platform) Watchable() bool { return p.files != nil }
