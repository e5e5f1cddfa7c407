// Package migrations embeds SQL migration files into the binary.
//
// SporeHut runs its migrations without the SQL files being present on the
// filesystem; pass FS as database.Config.Migrations.
package migrations

import "embed"

//go:embed *.sql
var files embed.FS

// FS holds every *.up.sql and *.down.sql file in this directory.
var FS = files
