package database

import (
	"embed"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pkg/errors"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// MigrationRunner applies the embedded schema migrations
type MigrationRunner struct {
	m *migrate.Migrate
}

// NewMigrationRunner opens a migration session against a postgres:// URL
func NewMigrationRunner(databaseURL string) (*MigrationRunner, error) {
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, errors.Wrap(err, "failed to open embedded migrations")
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize migrations")
	}
	return &MigrationRunner{m: m}, nil
}

// Up applies every pending migration
func (mr *MigrationRunner) Up() error {
	if err := mr.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "failed to apply migrations")
	}
	return nil
}

// Down rolls back the given number of migrations; steps <= 0 rolls back everything
func (mr *MigrationRunner) Down(steps int) error {
	var err error
	if steps <= 0 {
		err = mr.m.Down()
	} else {
		err = mr.m.Steps(-steps)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "failed to roll back migrations")
	}
	return nil
}

// Version returns the applied schema version. ok is false on an empty database.
func (mr *MigrationRunner) Version() (version uint, dirty bool, ok bool, err error) {
	version, dirty, err = mr.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, false, nil
	}
	if err != nil {
		return 0, false, false, errors.Wrap(err, "failed to read schema version")
	}
	return version, dirty, true, nil
}

// Close releases the migration session
func (mr *MigrationRunner) Close() error {
	sourceErr, dbErr := mr.m.Close()
	if sourceErr != nil {
		return errors.Wrap(sourceErr, "failed to close migration source")
	}
	if dbErr != nil {
		return errors.Wrap(dbErr, "failed to close migration database")
	}
	return nil
}

// RunMigrations applies every pending migration and closes the session
func RunMigrations(databaseURL string) error {
	runner, err := NewMigrationRunner(databaseURL)
	if err != nil {
		return err
	}
	defer runner.Close()

	return runner.Up()
}
