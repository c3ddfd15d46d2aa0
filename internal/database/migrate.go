package database

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"promptlime/internal/middleware"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const migrationDir = "migrations"

// MigrationInfo describes one versioned SQL migration and whether it ran.
type MigrationInfo struct {
	Version int64
	Source  string
	Applied bool
}

type gooseLogger struct{}

func (gooseLogger) Fatalf(format string, v ...interface{}) {
	middleware.Logger.Error(fmt.Sprintf(format, v...))
}

func (gooseLogger) Printf(format string, v ...interface{}) {
	middleware.Logger.Info(fmt.Sprintf(format, v...))
}

func prepareGoose() error {
	goose.SetBaseFS(migrationFS)
	goose.SetLogger(gooseLogger{})
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("migration error setting dialect for db: %w", err)
	}
	return nil
}

// RunMigrations applies all pending SQL migrations.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if err := prepareGoose(); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, sqlDB, migrationDir); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	version, err := goose.GetDBVersionContext(ctx, sqlDB)
	if err == nil {
		middleware.Logger.Info("SQL migrations applied", slog.Int64("version", version))
	}
	return nil
}

// RollbackMigration reverts the most recently applied migration.
func RollbackMigration(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if err := prepareGoose(); err != nil {
		return err
	}
	if err := goose.DownContext(ctx, sqlDB, migrationDir); err != nil {
		return fmt.Errorf("rollback error: %w", err)
	}
	return nil
}

// MigrationStatus lists embedded migrations and whether each has been applied.
func MigrationStatus(ctx context.Context, db *gorm.DB) ([]MigrationInfo, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := prepareGoose(); err != nil {
		return nil, err
	}

	current, err := goose.GetDBVersionContext(ctx, sqlDB)
	if err != nil {
		return nil, fmt.Errorf("read db version: %w", err)
	}

	all, err := goose.CollectMigrations(migrationDir, 0, goose.MaxVersion)
	if err != nil {
		return nil, fmt.Errorf("collect migrations: %w", err)
	}

	out := make([]MigrationInfo, 0, len(all))
	for _, m := range all {
		out = append(out, MigrationInfo{
			Version: m.Version,
			Source:  m.Source,
			Applied: m.Version <= current,
		})
	}
	return out, nil
}
