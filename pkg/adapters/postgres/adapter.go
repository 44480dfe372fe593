// Package postgres provides the PostgreSQL row store driver for labcms.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"

	// registers the "pgx" database/sql driver
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spcai/labcms/pkg/adapter"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Adapter implements core.Adapter for PostgreSQL.
type Adapter struct {
	adapter.BaseSQLStore
}

// New creates a new PostgreSQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLStore: adapter.BaseSQLStore{
			Logger: logger,
			Dialect: adapter.Dialect{
				Name:        "postgres",
				Placeholder: adapter.DollarPlaceholder,
				EncodeList: func(encoded []byte) any {
					return json.RawMessage(encoded)
				},
			},
		},
	}
}

// DialectName returns the SQL dialect for this adapter.
func (a *Adapter) DialectName() string {
	return "postgres"
}

// Connect establishes a connection to PostgreSQL.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	dsn := buildPostgresDSN(cfg)

	a.Logger.Debug("connecting to postgres", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	a.Conn = db
	a.Cfg = cfg
	return nil
}

// Migrate creates or upgrades the content tables.
func (a *Adapter) Migrate(ctx context.Context) error {
	return adapter.Migrate(ctx, a.Conn, adapter.MigrationSet{FS: migrations, Dialect: "postgres"})
}

// MigrationVersion returns the applied schema version.
func (a *Adapter) MigrationVersion(ctx context.Context) (int64, error) {
	return adapter.MigrationVersion(ctx, a.Conn, adapter.MigrationSet{FS: migrations, Dialect: "postgres"})
}

// buildPostgresDSN constructs a PostgreSQL connection string.
func buildPostgresDSN(cfg adapter.Config) string {
	// Build key=value format: host=localhost port=5432 user=postgres ...
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "disable"
	if cfg.Options != nil {
		if mode, ok := cfg.Options["sslmode"]; ok {
			sslmode = mode
		}
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s",
		host, port, cfg.Database, sslmode)

	if cfg.Username != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.Username)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}

	return dsn
}
