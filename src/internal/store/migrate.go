package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies pending migrations. An empty dir uses the migrations compiled
// into the binary.
func Migrate(dsn, dir string, log *zap.Logger) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("migration open db: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("migration driver: %w", err)
	}

	var m *migrate.Migrate
	if dir != "" {
		log.Info("running migrations", zap.String("dir", dir))
		m, err = migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	} else {
		log.Info("running embedded migrations")
		src, srcErr := iofs.New(migrationsFS, "migrations")
		if srcErr != nil {
			_ = db.Close()
			return fmt.Errorf("migration source: %w", srcErr)
		}
		m, err = migrate.NewWithInstance("iofs", src, "postgres", driver)
	}
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("migration init: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			log.Warn("migration close failed", zap.NamedError("source", srcErr), zap.NamedError("database", dbErr))
		}
	}()

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up: %w", err)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		log.Info("no new migrations, already up to date")
	}

	return nil
}
