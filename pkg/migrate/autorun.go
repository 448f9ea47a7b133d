package migrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/snapwall/snapwall-backend/pkg/config"
	"github.com/snapwall/snapwall-backend/pkg/db"
	"github.com/snapwall/snapwall-backend/pkg/db/models"
	"github.com/snapwall/snapwall-backend/pkg/logger"
)

// MaybeRunDev applies the schema on boot for dev environments with auto-migrate enabled.
// sqlite gets the gorm models; postgres gets the embedded goose migrations.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "driver": cfg.DB.Driver})

	if strings.HasPrefix(strings.ToLower(cfg.DB.Driver), "sqlite") {
		logg.Info(ctx, "migrate.autorun.models")
		return AutoMigrateModels(client)
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	logg.Info(ctx, "migrate.autorun.goose")
	if err := (Runner{DB: sqlDB, Logger: logg}).Run(ctx, "up"); err != nil {
		return err
	}
	logg.Info(ctx, "migrate.autorun.done")
	return nil
}

// AutoMigrateModels creates the schema from the gorm models. The goose SQL files
// stay authoritative for Postgres; this path serves sqlite dev runs and tests.
func AutoMigrateModels(client *db.Client) error {
	if client == nil {
		return fmt.Errorf("db client is required")
	}
	if err := client.DB().AutoMigrate(&models.Event{}, &models.MediaItem{}, &models.QuotaAccount{}); err != nil {
		return fmt.Errorf("auto-migrating models: %w", err)
	}
	return nil
}
