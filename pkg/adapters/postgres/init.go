// Package postgres provides the PostgreSQL row store driver for labcms.
//
// This file registers the driver with the adapter registry.
// Import this package with a blank identifier to register it:
//
//	import _ "github.com/spcai/labcms/pkg/adapters/postgres"
package postgres

import (
	"log/slog"

	"github.com/spcai/labcms/pkg/adapter"
)

func init() {
	adapter.Register("postgres", func(logger *slog.Logger) adapter.Adapter { return New(logger) }, "postgresql", "pg")
}
