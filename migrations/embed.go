package migrations

import "embed"

// FS exposes the SQL migration files for the startup runner.
//
//go:embed *.sql
var FS embed.FS
