package database

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"promptlime/internal/config"
	"promptlime/internal/middleware"

	"gorm.io/gorm"
)

// DB_SCHEMA_MODE values.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaStatus is what `migrate status` prints.
type SchemaStatus struct {
	Mode               string
	Environment        string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	Migrations         []MigrationInfo
	// MissingTables lists marketplace tables that do not exist yet.
	MissingTables []string
}

type schemaPlan struct {
	mode string
	sql  bool
	auto bool
}

var protectedEnvs = []string{"production", "prod", "staging", "stage"}

// planSchema decides which schema steps run for cfg. GORM AutoMigrate never
// runs against a protected environment unless explicitly allowed.
func planSchema(cfg *config.Config) (schemaPlan, error) {
	plan := schemaPlan{mode: strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode))}
	if plan.mode == "" {
		plan.mode = SchemaModeHybrid
	}
	protected := slices.Contains(protectedEnvs, strings.ToLower(strings.TrimSpace(cfg.Env)))

	switch plan.mode {
	case SchemaModeSQL:
		plan.sql = true
	case SchemaModeHybrid:
		plan.sql, plan.auto = true, !protected
	case SchemaModeAuto:
		if protected && !cfg.DBAutoMigrateAllowDestructive {
			return plan, fmt.Errorf("DB_SCHEMA_MODE=auto is not allowed in %q unless DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		plan.auto = true
	default:
		return plan, fmt.Errorf("unknown DB_SCHEMA_MODE %q", plan.mode)
	}
	return plan, nil
}

// ApplySchema brings the users, prompts, likes, reports and notification
// tables up to date following DB_SCHEMA_MODE.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := planSchema(cfg)
	if err != nil {
		return err
	}

	if plan.sql {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}
	if !plan.auto {
		return nil
	}

	if plan.mode == SchemaModeAuto && cfg.DBAutoMigrateAllowDestructive {
		middleware.Logger.Warn("auto-migrating a protected environment", slog.String("env", cfg.Env))
	}
	middleware.Logger.Info("auto-migrating models",
		slog.String("mode", plan.mode),
		slog.String("env", cfg.Env),
		slog.Int("models", len(PersistentModels())))
	if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// GetSchemaStatus describes what ApplySchema would do without changing anything.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := planSchema(cfg)
	if err != nil {
		return nil, err
	}

	status := &SchemaStatus{
		Mode:               plan.mode,
		Environment:        cfg.Env,
		WillRunSQL:         plan.sql,
		WillRunAutoMigrate: plan.auto,
		MissingTables:      missingTables(db),
	}
	if plan.sql {
		if status.Migrations, err = MigrationStatus(ctx, db); err != nil {
			return nil, err
		}
	}
	return status, nil
}

func missingTables(db *gorm.DB) []string {
	var missing []string
	m := db.Migrator()
	for _, model := range PersistentModels() {
		if m.HasTable(model) {
			continue
		}
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err == nil {
			missing = append(missing, stmt.Schema.Table)
		}
	}
	return missing
}
