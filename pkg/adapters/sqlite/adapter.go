// Package sqlite provides the SQLite row store driver for labcms.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	"github.com/spcai/labcms/pkg/adapter"

	// pure-Go SQLite driver, registered as "sqlite"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Adapter implements core.Adapter for SQLite.
type Adapter struct {
	adapter.BaseSQLStore
}

// New creates a new SQLite adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLStore: adapter.BaseSQLStore{
			Logger:  logger,
			Dialect: adapter.Dialect{Name: "sqlite", Placeholder: adapter.QuestionPlaceholder},
		},
	}
}

// DialectName returns the SQL dialect for this adapter.
func (a *Adapter) DialectName() string {
	return "sqlite"
}

// Connect opens the database file named by cfg.Path (or cfg.Database).
// Use ":memory:" for an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	path := cfg.Path
	if path == "" {
		path = cfg.Database
	}
	if path == "" {
		path = ":memory:"
	}

	a.Logger.Debug("connecting to sqlite", slog.String("path", path))

	db, err := sql.Open("sqlite", buildSQLiteDSN(path))
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// a second connection to :memory: would see a different database
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	a.Conn = db
	a.Cfg = cfg
	return nil
}

// Migrate creates or upgrades the content tables.
func (a *Adapter) Migrate(ctx context.Context) error {
	return adapter.Migrate(ctx, a.Conn, adapter.MigrationSet{FS: migrations, Dialect: "sqlite3"})
}

// MigrationVersion returns the applied schema version.
func (a *Adapter) MigrationVersion(ctx context.Context) (int64, error) {
	return adapter.MigrationVersion(ctx, a.Conn, adapter.MigrationSet{FS: migrations, Dialect: "sqlite3"})
}

func buildSQLiteDSN(path string) string {
	if path == ":memory:" {
		return path
	}
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}
