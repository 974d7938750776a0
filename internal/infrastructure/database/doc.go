// Package database opens the bridge's SQLite database and applies its
// schema migrations.
//
// The database is small: it remembers the client identity and pre-shared
// key issued by each gateway so a restart does not have to register again.
// The file is created with mode 0600 because it holds those keys.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migrations are additive only. Each file pair is named
// YYYYMMDD_HHMMSS_description.up.sql / .down.sql.
package database
