// Package migrations embeds the SQL schema migrations applied by cmd/migrate
// and by the test database helper.
package migrations

import "embed"

// FS holds every *.up.sql and *.down.sql file.
//
//go:embed *.sql
var FS embed.FS
