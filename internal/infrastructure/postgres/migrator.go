package postgres

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
)

// MigrationStatus describes the schema version of a database.
type MigrationStatus struct {
	Version uint
	Dirty   bool
	// Applied is false when no migration has run yet.
	Applied bool
}

func newMigrator(databaseURL, migrationsPath string) (*migrate.Migrate, error) {
	m, err := migrate.New("file://"+migrationsPath, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return m, nil
}

// RunMigrations applies every pending ledger schema migration.
func RunMigrations(databaseURL, migrationsPath string, logger zerolog.Logger) error {
	m, err := newMigrator(databaseURL, migrationsPath)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info().Msg("ledger schema up to date")
			return nil
		}
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	status, err := migrationStatus(m)
	if err != nil {
		return err
	}

	logger.Info().Uint("version", status.Version).Msg("ledger schema migrated")
	return nil
}

// RollbackMigrations reverts the given number of migrations.
func RollbackMigrations(databaseURL, migrationsPath string, steps int, logger zerolog.Logger) error {
	if steps <= 0 {
		return fmt.Errorf("rollback steps must be positive, got %d", steps)
	}

	m, err := newMigrator(databaseURL, migrationsPath)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Steps(-steps); err != nil {
		return fmt.Errorf("failed to rollback migration: %w", err)
	}

	logger.Info().Int("steps", steps).Msg("ledger schema rolled back")
	return nil
}

// GetMigrationStatus reports the current schema version.
func GetMigrationStatus(databaseURL, migrationsPath string) (MigrationStatus, error) {
	m, err := newMigrator(databaseURL, migrationsPath)
	if err != nil {
		return MigrationStatus{}, err
	}
	defer m.Close()

	return migrationStatus(m)
}

func migrationStatus(m *migrate.Migrate) (MigrationStatus, error) {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return MigrationStatus{}, nil
	}
	if err != nil {
		return MigrationStatus{}, fmt.Errorf("failed to read schema version: %w", err)
	}

	return MigrationStatus{Version: version, Dirty: dirty, Applied: true}, nil
}
