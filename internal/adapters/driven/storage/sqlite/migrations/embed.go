// Package migrations holds the numbered schema files applied by the SQLite
// store. NNN_name.up.sql files run in order; .down.sql files are kept for
// manual rollback.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
