package pgtree

import (
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrate applies the embedded schema migrations against the database.
func Migrate(databaseURL string) error {
	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("pgtree: load migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, normalizeMigrateURL(databaseURL))
	if err != nil {
		return fmt.Errorf("pgtree: init migrate: %w", err)
	}
	defer func() {
		_, _ = m.Close()
	}()
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("pgtree: apply migrations: %w", err)
	}
	return nil
}
