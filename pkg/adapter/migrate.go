package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"sync"

	"github.com/pressly/goose/v3"
)

// MigrationsDir is the directory name migrations are embedded under.
const MigrationsDir = "migrations"

// goose keeps its configuration in package globals.
var gooseMu sync.Mutex

// MigrationSet describes one set of embedded goose migrations.
type MigrationSet struct {
	FS      fs.FS
	Dialect string
	// Table is the goose version table, so several sets can share a database.
	Table string
}

func (m MigrationSet) configure() error {
	goose.SetBaseFS(m.FS)
	goose.SetLogger(goose.NopLogger())
	table := m.Table
	if table == "" {
		table = "goose_db_version"
	}
	goose.SetTableName(table)
	if err := goose.SetDialect(m.Dialect); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	return nil
}

// Migrate runs all pending migrations of the set.
func Migrate(ctx context.Context, db *sql.DB, set MigrationSet) error {
	if db == nil {
		return fmt.Errorf("database not opened")
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := set.configure(); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, MigrationsDir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// MigrationVersion returns the current migration version of the set.
func MigrationVersion(ctx context.Context, db *sql.DB, set MigrationSet) (int64, error) {
	if db == nil {
		return 0, fmt.Errorf("database not opened")
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := set.configure(); err != nil {
		return 0, err
	}
	return goose.GetDBVersionContext(ctx, db)
}
