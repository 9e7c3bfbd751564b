// Package sqlstore provides the public API for the SQL Cupboard backend.
// This package exposes the factory function for creating backends while
// keeping implementation details internal.
package sqlstore

import (
	"github.com/mesh-intelligence/pantry/internal/sqlstore"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Store is a Cupboard that can also be exported to and imported from JSONL.
type Store interface {
	types.Cupboard
	types.Archiver
}

// Option configures a backend.
type Option = sqlstore.Option

// WithLogger sets the logger used for migration and lifecycle events.
var WithLogger = sqlstore.WithLogger

// NewBackend creates a new SQL backend instance.
// The backend is not attached; call Attach with a Config to initialize.
//
// Example:
//
//	backend := sqlstore.NewBackend()
//	err := backend.Attach(ctx, types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".pantry",
//	})
//	defer backend.Detach()
func NewBackend(opts ...Option) Store {
	return sqlstore.NewBackend(opts...)
}
