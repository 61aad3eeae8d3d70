// Package migrations embeds the goose schema migrations for the Postgres
// credential store.
package migrations

import "embed"

// Migrations is the embedded migration filesystem passed to goose.
//
//go:embed *.sql
var Migrations embed.FS
