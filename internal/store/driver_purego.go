//go:build !cgo || purego

package store

// Compiled without CGO or with the purego tag. Uses the pure Go SQLite
// implementation: no C compiler required, cross-compiles everywhere.
//
// Build command:
//   CGO_ENABLED=0 go build -tags purego ./...

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use.
	DriverName = "sqlite"

	// BuildMode describes the current build configuration.
	BuildMode = "purego"
)
