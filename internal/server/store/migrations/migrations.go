// Package migrations embeds the goose migration scripts for the server-side
// PostgreSQL store.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
