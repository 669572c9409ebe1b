package migrations

import "embed"

// FS contains embedded SQLite migrations for projector storage.
//
//go:embed *.sql
var FS embed.FS
