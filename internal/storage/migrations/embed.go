// Package migrations embeds the goose schema migrations for the client
// database. The schema version is the highest migration number; adding a
// collection means adding a new numbered file, never editing an applied one.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
