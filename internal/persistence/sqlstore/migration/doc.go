// Package migration applies versioned SQL schema migrations.
//
// Migration files are read from an fs.FS (normally embedded) and must be named
// {version}_{description}.sql, for example "001_initial_schema.sql". Applied
// versions are tracked in a schema_migrations table together with the file
// checksum, so an edited migration that was already applied is reported
// instead of silently ignored.
//
// Example usage:
//
//	migrations, err := migration.Scan(fsys)
//	if err != nil {
//		return err
//	}
//	runner := migration.NewRunner(db, rebind, logger)
//	if _, err := runner.Run(ctx, migrations); err != nil {
//		return err
//	}
package migration
