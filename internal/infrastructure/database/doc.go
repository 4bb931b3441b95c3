// Package database owns the SQLite file backing sensor names and
// persisted settings.
//
// The store is deliberately small: one file, one writer, WAL mode so
// the occasional read never waits on a write, and schema migrations
// embedded into the binary so a deployment is a single artefact. The
// migrations directory registers itself through MigrationsFS via a
// blank import in the main package.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are additive: new columns arrive nullable or with
// defaults, and every up file ships with its down counterpart.
package database
