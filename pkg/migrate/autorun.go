package migrate

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pharmakart/cartsync/pkg/config"
	"github.com/pharmakart/cartsync/pkg/logger"
)

// MaybeRunDev executes migrations automatically when the app is running in
// dev mode and the feature flag is enabled.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, db *sql.DB) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	backend := cfg.Store.Normalized()
	if backend == config.StoreBackendRedis {
		return nil
	}

	meta := map[string]any{"env": cfg.App.Env, "dir": DefaultDir, "backend": backend}
	ctx = logg.WithFields(ctx, meta)
	logg.Info(ctx, "running snapshot store migrations (dev auto-run)")

	if err := Run(ctx, db, backend, DefaultDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "snapshot store migrations completed")
	return nil
}
