// Package migrations embeds the schema for every supported engine.
package migrations

import "embed"

// FS holds one directory of ordered .sql files per driver.
//
//go:embed mysql/*.sql postgres/*.sql sqlite/*.sql
var FS embed.FS
