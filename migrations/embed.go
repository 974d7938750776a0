// Package migrations holds the bridge's SQL schema, compiled into the
// binary so a fresh install needs nothing but the executable.
package migrations

import "embed"

// FS contains every *.sql migration at its root. Pass it to
// (*database.DB).Migrate.
//
//go:embed *.sql
var FS embed.FS
