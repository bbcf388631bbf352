package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"

	// File source driver for reading migration files from disk.
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// migrationsTable records the applied court schema version.
const migrationsTable = "courtside_schema_migrations"

// RunMigrations brings the court_documents table up to date from the
// migration files in dir. A dirty schema version stops startup instead of
// being migrated over.
func RunMigrations(db *sql.DB, dir string) error {
	driver, err := mysql.WithInstance(db, &mysql.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return fmt.Errorf("creating migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "mysql", driver)
	if err != nil {
		return fmt.Errorf("reading migrations from %s: %w", dir, err)
	}

	before, dirty := schemaVersion(m)
	if dirty {
		return fmt.Errorf("court schema version %d is dirty: repair court_documents and force the version", before)
	}

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		slog.Debug("court schema up to date", slog.Uint64("version", uint64(before)))
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrating court schema: %w", err)
	}

	after, _ := schemaVersion(m)
	slog.Info("court schema migrated",
		slog.Uint64("from", uint64(before)),
		slog.Uint64("to", uint64(after)),
	)
	return nil
}

// schemaVersion returns 0 before the first migration has run.
func schemaVersion(m *migrate.Migrate) (uint, bool) {
	v, dirty, err := m.Version()
	if err != nil {
		return 0, false
	}
	return v, dirty
}
