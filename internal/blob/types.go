// Package blob re-exports core blob abstractions and wires the concrete
// backends. Packages outside internal/blob depend on blob.Store only.
package blob

import (
	"useeio/internal/blob/core"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// SignedURLOptions configures URL pre-signing.
	SignedURLOptions = core.SignedURLOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMinio      = core.DriverMinio
	DriverSQLite     = core.DriverSQLite
	DriverPostgres   = core.DriverPostgres
	DriverMemory     = core.DriverMemory
)

var (
	// ErrUnsupported indicates an operation isn't supported by a driver.
	ErrUnsupported = core.ErrUnsupported
	// ErrNotExist is wrapped by every driver for missing keys.
	ErrNotExist = core.ErrNotExist
)

// ContentTypeFor guesses a content type from a key's extension.
func ContentTypeFor(key string) string { return core.ContentTypeFor(key) }
