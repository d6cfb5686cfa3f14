package migrate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	// pgx5 driver registers the "pgx5" scheme for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	// file source reads .sql files from disk.
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/monitoringhub/auth-service/internal/logger"
)

// Up applies all pending schema migrations from the given directory.
// A database already at the latest version is not an error. A dirty
// database is: it needs manual intervention, not a retry loop.
func Up(dsn, migrationsDir string) error {
	m, err := migrate.New("file://"+migrationsDir, toPgx5DSN(dsn))
	if err != nil {
		return fmt.Errorf("migrate: init failed: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			logger.Log.Errorw("migration source close failed", "err", srcErr)
		}
		if dbErr != nil {
			logger.Log.Errorw("migration db close failed", "err", dbErr)
		}
	}()

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("migrate: version check failed: %w", err)
	}
	if dirty {
		return fmt.Errorf("migrate: database is dirty at version %d", version)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Log.Infow("migrations already up to date", "version", version)
			return nil
		}
		return fmt.Errorf("migrate: up failed: %w", err)
	}

	newVersion, _, _ := m.Version()
	logger.Log.Infow("migrations applied", "from", version, "to", newVersion)
	return nil
}

// toPgx5DSN rewrites postgres:// URLs to the pgx5:// scheme that the
// golang-migrate pgx/v5 driver registers.
func toPgx5DSN(dsn string) string {
	switch {
	case strings.HasPrefix(dsn, "pgx5://"):
		return dsn
	case strings.HasPrefix(dsn, "postgres://"):
		return "pgx5://" + strings.TrimPrefix(dsn, "postgres://")
	case strings.HasPrefix(dsn, "postgresql://"):
		return "pgx5://" + strings.TrimPrefix(dsn, "postgresql://")
	}
	return dsn
}
