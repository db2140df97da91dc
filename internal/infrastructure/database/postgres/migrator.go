// Package postgres provides the PostgreSQL connection pool and schema
// migrations.  Migration files are embedded into the binary and applied with
// golang-migrate, either on startup or through `contractctl migrate`.
package postgres

import (
	"embed"
	stderrors "errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractKeeper/pkg/errors"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

func embeddedMigrations() (source.Driver, error) {
	d, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "embedded migrations unreadable")
	}
	return d, nil
}

// SchemaMigrator runs the embedded migrations against the database at DSN.
// Every call opens and closes its own connection.
type SchemaMigrator struct {
	DSN string
}

func (s SchemaMigrator) with(fn func(*migrate.Migrate) error) error {
	src, err := embeddedMigrations()
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, s.DSN)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "cannot open database for migration")
	}
	defer m.Close()
	return fn(m)
}

// Up applies every pending migration.  An up-to-date schema is not an error.
func (s SchemaMigrator) Up() error {
	return s.with(up)
}

// Down reverts the newest steps migrations.
func (s SchemaMigrator) Down(steps int) error {
	if steps < 1 {
		return errors.NewValidationOp("migrate", "steps", fmt.Sprintf("must be positive, got %d", steps))
	}
	return s.with(func(m *migrate.Migrate) error {
		err := m.Steps(-steps)
		if stderrors.Is(err, migrate.ErrNoChange) {
			return errors.New(errors.ErrCodeConflict, "nothing to roll back")
		}
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, fmt.Sprintf("rollback of %d step(s) failed", steps))
		}
		return nil
	})
}

// Status reports the applied version and whether an interrupted run left
// the schema dirty.  An empty database is version 0.
func (s SchemaMigrator) Status() (version uint, dirty bool, err error) {
	err = s.with(func(m *migrate.Migrate) error {
		version, dirty, err = currentVersion(m)
		return err
	})
	return version, dirty, err
}

// Force records version as applied without running anything, clearing the
// dirty flag after a manual repair.
func (s SchemaMigrator) Force(version int) error {
	return s.with(func(m *migrate.Migrate) error {
		if err := m.Force(version); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, fmt.Sprintf("force to version %d failed", version))
		}
		return nil
	})
}

// RunMigrations applies pending migrations over the open pool, which stays
// usable afterwards.
func (c *Connection) RunMigrations() error {
	driver, err := pgmigrate.WithInstance(c.db, &pgmigrate.Config{})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "migration driver unavailable")
	}
	src, err := embeddedMigrations()
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "cannot prepare migrations")
	}
	if err := up(m); err != nil {
		return err
	}

	version, dirty, err := currentVersion(m)
	if err != nil {
		c.logger.Warn("Schema version unknown", logging.Err(err))
	}
	c.logger.Info("Schema migrated", logging.Int64("version", int64(version)), logging.Bool("dirty", dirty))
	return nil
}

func up(m *migrate.Migrate) error {
	err := m.Up()
	if err == nil || stderrors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	v, _, _ := currentVersion(m)
	return errors.Wrap(err, errors.ErrCodeDatabaseError, fmt.Sprintf("migration failed at version %d", v))
}

func currentVersion(m *migrate.Migrate) (uint, bool, error) {
	v, dirty, err := m.Version()
	if stderrors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, errors.ErrCodeDatabaseError, "cannot read schema version")
	}
	return v, dirty, nil
}

//Personal.AI order the ending
