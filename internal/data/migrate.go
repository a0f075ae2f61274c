package data

import (
	"database/sql"
	"embed"
	"errors"

	"nohate/internal/conf"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrations embed.FS

// RunMigrate applies the embedded schema migrations.
func RunMigrate(c *conf.Database) error {
	driverName := c.Driver
	if driverName == "" {
		driverName = "postgres"
	}
	db, err := sql.Open(driverName, c.Source)
	if err != nil {
		return err
	}
	defer db.Close()

	// Create an instance of the Postgres driver
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return err
	}
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, driverName, driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
