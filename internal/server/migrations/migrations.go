// Package migrations embeds the goose SQL migrations for both supported
// row-store dialects.
package migrations

import "embed"

//go:embed postgres/*.sql
var Postgres embed.FS

//go:embed sqlite/*.sql
var SQLite embed.FS
