// Package migrations embeds the goose migrations for the postgres tables mode.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
