// Package migrations embeds the goose SQL migrations defining the local
// store schema. Schema evolution is additive: a version bump introduces new
// collections or indexes in a new migration file and never rewrites data in
// place.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
