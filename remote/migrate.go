package remote

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations
var migrationsFS embed.FS

// IsPostgres reports whether databaseURL names a PostgreSQL database.
// Anything else is treated as a SQLite file path.
func IsPostgres(databaseURL string) bool {
	return strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://")
}

func sqlitePath(databaseURL string) string {
	return strings.TrimPrefix(databaseURL, "sqlite://")
}

// Migrate applies every pending migration for the database behind
// databaseURL.
func Migrate(databaseURL string, logger *zap.Logger) error {
	dir, target := "migrations/sqlite", "sqlite://"+sqlitePath(databaseURL)
	if IsPostgres(databaseURL) {
		dir = "migrations/postgres"
		target = "pgx5://" + databaseURL[strings.Index(databaseURL, "://")+3:]
	}
	src, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, target)
	if err != nil {
		return fmt.Errorf("migration init: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up: %w", err)
	}
	version, dirty, _ := m.Version()
	logger.Info("migrations applied", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

// Open migrates and opens the backend for databaseURL: a pgx pool for
// postgres URLs, a SQLite file otherwise.
func Open(ctx context.Context, databaseURL string, logger *zap.Logger) (Backend, error) {
	if IsPostgres(databaseURL) {
		if err := Migrate(databaseURL, logger); err != nil {
			return nil, err
		}
		return OpenPostgres(ctx, databaseURL, DefaultSchema)
	}
	path := sqlitePath(databaseURL)
	// OpenSQLite creates the data directory the migrator needs.
	b, err := OpenSQLite(path, DefaultSchema)
	if err != nil {
		return nil, err
	}
	if err := Migrate(path, logger); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}
