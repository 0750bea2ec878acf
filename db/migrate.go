package db

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/coshare/coshare-backend/logger"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// RunMigrations brings the analytics schema to the latest embedded version.
// Already-applied migrations are skipped, so it runs on every startup. A dirty
// schema left by a failed run is stepped back one version and retried.
func RunMigrations(dbURL string) error {
	log := logger.GetLogger()

	m, err := newMigrator(dbURL)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := recoverDirty(m, log); err != nil {
		return err
	}

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		log.Info("Analytics schema is up to date")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if version, dirty, verr := m.Version(); verr == nil {
		log.Infow("Analytics schema migrated", "version", version, "dirty", dirty)
	}
	return nil
}

func newMigrator(dbURL string) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, convertToPgx5URL(dbURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	return m, nil
}

// recoverDirty forces a dirty schema back to the last clean version, or to no
// version at all when the first migration failed.
func recoverDirty(m *migrate.Migrate, log *zap.SugaredLogger) error {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		log.Info("Empty schema, applying all migrations")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	if !dirty {
		log.Debugw("Schema version before migrating", "version", version)
		return nil
	}

	target := previousVersion(version)
	log.Warnw("Dirty schema detected, forcing previous version", "dirtyVersion", version, "forcedVersion", target)
	if err := m.Force(target); err != nil {
		return fmt.Errorf("failed to reset dirty migration: %w", err)
	}
	return nil
}

// previousVersion returns the version to force for a dirty one; -1 clears it.
func previousVersion(dirty uint) int {
	if dirty <= 1 {
		return -1
	}
	return int(dirty) - 1
}

// convertToPgx5URL converts a standard postgres:// URL to the pgx5:// scheme
// required by golang-migrate's pgx v5 driver.
func convertToPgx5URL(dbURL string) string {
	switch {
	case strings.HasPrefix(dbURL, "postgresql:"):
		return "pgx5:" + strings.TrimPrefix(dbURL, "postgresql:")
	case strings.HasPrefix(dbURL, "postgres:"):
		return "pgx5:" + strings.TrimPrefix(dbURL, "postgres:")
	}
	return dbURL
}
