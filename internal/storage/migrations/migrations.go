// Package migrations embeds the goose SQL migrations for the Postgres provider.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
