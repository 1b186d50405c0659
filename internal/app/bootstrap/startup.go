// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	providerstore "github.com/dalemusser/eatandearn/internal/app/store/providers"
	"github.com/dalemusser/eatandearn/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Long:   appCfg.TimeoutLong,
	})

	if appCfg.SeedProviders {
		if err := seedProviders(ctx, deps, logger); err != nil {
			return err
		}
	}
	return nil
}

// seedProviders inserts the default shelter and food bank into an empty
// providers collection.
func seedProviders(ctx context.Context, deps DBDeps, logger *zap.Logger) error {
	added, err := providerstore.New(deps.MongoDatabase).Seed(ctx)
	if err != nil {
		logger.Error("seeding providers failed", zap.Error(err))
		return err
	}
	if added > 0 {
		logger.Info("seeded default providers", zap.Int("count", added))
	}
	return nil
}
