// Package migrations holds the goose SQL migrations, embedded so the binary
// can apply them without a migrations directory on disk.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
