// Package migrations compiles the SQL migration files into the binary
// so a deployed service needs no .sql files on disk. Importing it (for
// side effects) hands the embedded filesystem to the database package,
// which is what actually runs the migrations.
package migrations

import (
	"embed"

	"github.com/nerrad567/gray-logic-onewire/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	// The embedded paths have no directory prefix.
	database.MigrationsDir = "."
}
