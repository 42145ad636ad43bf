// Package migrations embeds the versioned schema for every supported dialect.
package migrations

import "embed"

//go:embed sqlite3/*.sql postgres/*.sql
var FS embed.FS
