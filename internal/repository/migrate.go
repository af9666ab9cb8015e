package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"entgo.io/ent/dialect"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// Migrate applies pending migrations for the dialect. It uses its own
// connection because closing a migrate instance closes its database.
func (d *DB) Migrate(ctx context.Context) error {
	dir := "migrations/sqlite"
	driverName := "sqlite"
	if d.dialect == dialect.Postgres {
		dir = "migrations/postgres"
		driverName = "pgx"
	}

	// the pgx stdlib package registers the "pgx" database/sql driver
	db, err := sql.Open(driverName, d.dsn)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping migration connection: %w", err)
	}

	var drv database.Driver
	switch d.dialect {
	case dialect.Postgres:
		drv, err = migratepgx.WithInstance(db, &migratepgx.Config{})
	default:
		drv, err = migratesqlite.WithInstance(db, &migratesqlite.Config{})
	}
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("migration driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, dir)
	if err != nil {
		_ = drv.Close()
		return fmt.Errorf("migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, d.dialect, drv)
	if err != nil {
		_ = drv.Close()
		return fmt.Errorf("migrate: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			d.logger.Warn("migrate.close_failed", "source_error", srcErr, "db_error", dbErr)
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		d.logger.Error("migrate.up.failed", "dialect", d.dialect, "error", err)
		return fmt.Errorf("apply migrations: %w", err)
	}
	version, dirty, _ := m.Version()
	d.logger.Debug("migrate.up.done", "dialect", d.dialect, "version", version, "dirty", dirty)
	return nil
}
