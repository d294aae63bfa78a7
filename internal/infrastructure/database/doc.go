// Package database provides the SQLite connection behind the simulator's
// reading and command history.
//
// The database is optional: with database.enabled false the simulator never
// opens it and the history endpoints answer 503.
//
// Usage:
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are embedded by the top-level migrations package, one
// .up.sql/.down.sql pair per version.
package database
