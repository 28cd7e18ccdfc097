package eventfile

import (
	"embed"
	"errors"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/banshee-data/cherenkov.pipe/internal/pipeerr"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrateUp applies all pending schema migrations of the configuration
// tables. Returns nil when the file is already at the latest version.
func (f *File) MigrateUp() error {
	if f.readOnly {
		return pipeerr.Wrap(pipeerr.CodeIO, "migrate", ErrReadOnly)
	}
	m, err := f.newMigrate()
	if err != nil {
		return err
	}
	// m is not closed: closing it would close the file's connection pool.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return pipeerr.Wrap(pipeerr.CodeIO, "migration up failed", err)
	}
	return nil
}

// SchemaVersion returns the applied migration version, 0 when none.
func (f *File) SchemaVersion() (uint, error) {
	var v uint
	err := f.db.QueryRow("SELECT version FROM schema_migrations LIMIT 1").Scan(&v)
	if err != nil {
		return 0, pipeerr.Wrap(pipeerr.CodeIO, "read schema version", err)
	}
	return v, nil
}

func (f *File) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(f.db, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = migrateLogger{}
	return m, nil
}

type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...any) {
	log.Printf("[migrate] "+format, v...)
}

func (migrateLogger) Verbose() bool { return false }
