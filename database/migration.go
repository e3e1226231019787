package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/mbolis/crowdsourcing/log"
)

//go:embed migrations/*.sql
var schema embed.FS

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(schema, "migrations")
	if err != nil {
		return nil, err
	}
	dst, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return nil, err
	}
	return migrate.NewWithInstance("iofs", src, "sqlite3", dst)
}

// migrateDB brings the schema to the latest version. A dirty schema, left
// behind by a failed migration, is refused.
func migrateDB(db *sql.DB) error {
	m, err := newMigrator(db)
	if err != nil {
		return err
	}

	from, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
	case err != nil:
		return err
	case dirty:
		return errDirty(from)
	}

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		log.Debugf("database.migrate: schema up to date at version %d", from)
		return nil
	}
	if err != nil {
		return err
	}

	to, _, err := m.Version()
	if err != nil {
		return err
	}
	log.Infof("database.migrate: schema migrated from version %d to %d", from, to)
	return nil
}

// SchemaVersion reports the applied migration version.
func SchemaVersion(db *sql.DB) (uint, error) {
	m, err := newMigrator(db)
	if err != nil {
		return 0, err
	}
	version, dirty, err := m.Version()
	if err != nil {
		return 0, err
	}
	if dirty {
		return version, errDirty(version)
	}
	return version, nil
}

type errDirty uint

func (v errDirty) Error() string {
	return fmt.Sprintf("database schema is dirty at version %d, fix it and force the version", uint(v))
}
