package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

// MigrationTableName is the goose version table.
const MigrationTableName = "schema_migrations"

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationsDir is the directory of migrations inside the embedded filesystem.
const MigrationsDir = "migrations"

var (
	gooseOnce sync.Once
	gooseErr  error
)

func configureGoose(logger goose.Logger) error {
	gooseOnce.Do(func() {
		goose.SetBaseFS(migrationsFS)
		goose.SetTableName(MigrationTableName)
		if err := goose.SetDialect("postgres"); err != nil {
			gooseErr = fmt.Errorf("failed to set goose dialect: %w", err)
		}
	})
	if logger != nil {
		goose.SetLogger(logger)
	}
	return gooseErr
}

// RunMigrations executes a goose command (up, down, status, version, reset,
// redo) against db using the embedded migrations. A nil logger keeps goose's
// current logger.
func RunMigrations(ctx context.Context, db *sql.DB, logger goose.Logger, command string, args ...string) error {
	if err := configureGoose(logger); err != nil {
		return err
	}
	if err := goose.RunContext(ctx, command, db, MigrationsDir, args...); err != nil {
		return fmt.Errorf("goose %s failed: %w", command, err)
	}
	return nil
}
