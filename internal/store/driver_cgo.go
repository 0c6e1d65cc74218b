//go:build cgo && !purego

package store

// Compiled when CGO is available and the purego tag is not set.
// Uses the C SQLite driver for better throughput on large indexes.
//
// Build command:
//   CGO_ENABLED=1 go build ./...

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the SQLite driver to use.
	DriverName = "sqlite3"

	// BuildMode describes the current build configuration.
	BuildMode = "cgo"
)
