// Package migrations embeds the schema migrations applied at startup.
package migrations

import "embed"

// FS holds every SQL migration, embedded at compile time so the
// binaries are self-contained.
//
//go:embed *.sql
var FS embed.FS
