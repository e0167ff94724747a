// Package migrations embeds the schema files so the server can apply them
// at startup without depending on the working directory.
package migrations

import "embed"

// FS holds every .sql file in this directory, applied in name order.
//
//go:embed *.sql
var FS embed.FS
