// Package bootstrap wires the shared runtime used by the command-line tools.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"promptlime/internal/cache"
	"promptlime/internal/config"
	"promptlime/internal/database"
	"promptlime/internal/middleware"
	"promptlime/internal/repository"
	"promptlime/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	SeedCatalog bool
}

// InitRuntime connects to DB and Redis and optionally seeds the built-in catalog.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := EnsureAdmins(context.Background(), cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap admins: %w", err)
	}

	if opts.SeedCatalog {
		if err := seed.Catalog(db); err != nil {
			return nil, nil, fmt.Errorf("failed to seed built-in catalog: %w", err)
		}
	}

	return db, r, nil
}

// EnsureAdmins makes every ADMIN_EMAILS address an admin account, creating
// the account when it has never signed in.
func EnsureAdmins(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	users := repository.NewUserRepository(db)
	for _, email := range cfg.AdminEmailList() {
		u, err := users.UpsertIdentity(ctx, repository.Identity{Email: email, Admin: true})
		if err != nil {
			return fmt.Errorf("ensure admin %s: %w", email, err)
		}
		middleware.Logger.Info("admin account ensured",
			slog.Uint64("user_id", uint64(u.ID)), slog.String("email", u.Email))
	}
	return nil
}
