// Package adapter provides the row store contract and a generic
// database/sql implementation shared by the concrete drivers.
//
// Concrete drivers are in pkg/adapters/ subdirectories and register
// themselves with this package from init().
package adapter

import "github.com/spcai/labcms/pkg/core"

// Type aliases so drivers can depend on this package alone.
type (
	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig

	// Adapter is an alias for core.Adapter.
	Adapter = core.Adapter
)
