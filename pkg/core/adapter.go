package core

import (
	"context"
	"database/sql"
)

// Adapter is a SQL-backed RowStore with a connection lifecycle.
type Adapter interface {
	RowStore

	// Connect establishes a connection to the database.
	Connect(ctx context.Context, cfg AdapterConfig) error

	// Migrate applies the embedded schema migrations.
	Migrate(ctx context.Context) error

	// Close closes the database connection.
	Close() error

	// DB exposes the underlying connection for diagnostics.
	DB() *sql.DB

	// DialectName returns the SQL dialect name.
	DialectName() string
}

// AdapterConfig holds configuration for connecting to a database.
type AdapterConfig struct {
	Type     string
	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Options  map[string]string
}
