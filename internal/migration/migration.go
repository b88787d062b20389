package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// RunMigrations applies the embedded schema, seeds the notification channel
// rows and activates the bootstrap state checked by the serve and scheduler
// processes.
func RunMigrations(ctx context.Context, db *sql.DB, log *zap.Logger) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("migration")

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	latest, err := LatestMigrationVersion()
	if err != nil {
		return err
	}
	checksum, err := MigrationsChecksum()
	if err != nil {
		return err
	}

	return withAdvisoryLock(ctx, db, func(conn *sql.Conn) error {
		migrator, err := newMigrator(ctx, conn)
		if err != nil {
			return err
		}

		before, err := cleanVersion(migrator)
		if err != nil {
			return err
		}

		if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("apply migrations: %w", err)
		}

		after, err := cleanVersion(migrator)
		if err != nil {
			return err
		}
		if after != latest {
			return fmt.Errorf("schema version mismatch after migrate: got %d want %d", after, latest)
		}
		log.Info("schema migrated", zap.Uint("from", before), zap.Uint("to", after))

		if err := seedSystemImmutableData(ctx, db); err != nil {
			return err
		}
		return activateBootstrapState(ctx, db, strconv.FormatUint(uint64(latest), 10), checksum)
	})
}

func newMigrator(ctx context.Context, conn *sql.Conn) (*migrate.Migrate, error) {
	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}
	driver, err := postgres.WithConnection(ctx, conn, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("create migration driver: %w", err)
	}
	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return migrator, nil
}

func cleanVersion(migrator *migrate.Migrate) (uint, error) {
	version, dirty, err := migrator.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read migration version: %w", err)
	}
	if dirty {
		return 0, fmt.Errorf("database migrations are dirty at version %d", version)
	}
	return version, nil
}
