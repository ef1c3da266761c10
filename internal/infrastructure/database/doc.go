// Package database provides the SQLite connection used by the audit trail.
//
// The database is optional: it is only opened when database.enabled is set.
// The registry itself lives in a JSON file and never touches SQLite.
//
// Security Considerations:
//   - All queries use parameterised statements
//   - The database file is chmod 0600 after creation
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: "data/audit.db", WALMode: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    log.Fatal(err)
//	}
//
// Migrations are plain "NNN_description.up.sql" files applied in version
// order inside one transaction each and recorded in schema_migrations.
package database
