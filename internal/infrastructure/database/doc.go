// Package database provides the SQLite store used for SporeHut's audit trail.
//
// Device state is never persisted: every device starts off after a restart.
// The database only records history (who switched what, and when).
//
// # Usage
//
//	db, err := database.Open(database.Config{
//	    Path:       cfg.Database.Path,
//	    WALMode:    cfg.Database.WALMode,
//	    BusyTimeout: cfg.Database.BusyTimeout,
//	    Migrations: migrations.FS,
//	})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are plain SQL files embedded into the binary by the migrations
// package and applied in filename order, each in its own transaction.
package database
