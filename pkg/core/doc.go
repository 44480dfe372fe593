// Package core defines the shared language of the labcms dashboard.
//
// This package contains:
//   - Displayable values and records (Value, Field, Record)
//   - Row filters and update directives passed from the table to the stores
//   - Service interfaces (RowStore, BlobStore, Platform)
//   - Adapter configuration shared by the row store drivers
//
// The Golden Rule: pkg/core imports ONLY the standard library.
// All other packages depend on core, not the reverse.
package core
