//go:build purego

package repository

// Pure Go SQLite for builds without a C toolchain.
//
//	CGO_ENABLED=0 go build -tags purego ./...

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the database/sql driver used by Open
	DriverName = "sqlite"

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)
