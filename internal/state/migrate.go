// Package state provides a SQLite-backed object store with database migrations.
package state

import (
	"context"
	"embed"

	"github.com/spcai/labcms/pkg/adapter"
)

//go:embed migrations/*.sql
var migrations embed.FS

// migrationSet uses its own version table so the objects can share a
// database file with the content tables.
var migrationSet = adapter.MigrationSet{
	FS:      migrations,
	Dialect: "sqlite3",
	Table:   "objects_db_version",
}

// Migrate runs all pending database migrations.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	return adapter.Migrate(ctx, s.db, migrationSet)
}

// GetMigrationVersion returns the current migration version.
func (s *SQLiteStore) GetMigrationVersion(ctx context.Context) (int64, error) {
	return adapter.MigrationVersion(ctx, s.db, migrationSet)
}
