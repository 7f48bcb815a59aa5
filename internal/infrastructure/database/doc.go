// Package database provides SQLite connectivity for the climate skill.
//
// The database holds the entity registry (rooms, devices, aliases) that is
// administered by external tooling, plus the command audit trail written by
// the skill itself.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Embedded schema migrations with up/down files
//   - Connection pooling and lifecycle management
//
// Usage:
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Migrations are additive-only: new columns must be NULLABLE or carry a
// DEFAULT, and each migration ships both .up.sql and .down.sql files.
package database
