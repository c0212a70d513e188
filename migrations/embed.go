// Package migrations embeds the relay's SQL schema migrations.
package migrations

import "embed"

// FS holds the embedded migration files, applied at startup.
//
//go:embed *.sql
var FS embed.FS
