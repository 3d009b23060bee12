package migration

import (
	"strings"

	"github.com/smallbiznis/metrolab/internal/config"
	"github.com/smallbiznis/metrolab/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(Apply),
)

// Apply migrates the schema for the configured dialect and optionally seeds
// the standard catalog.
func Apply(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
	log = log.Named("migration")
	if cfg.DBAutoMigrate {
		if strings.EqualFold(strings.TrimSpace(cfg.DBType), "postgres") {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else if err := AutoMigrate(conn); err != nil {
			return err
		}
		log.Info("schema ready", zap.String("dialect", cfg.DBType))
	}

	if !cfg.SeedCatalog {
		return nil
	}
	if err := seed.EnsureCatalog(conn); err != nil {
		return err
	}
	log.Info("catalog seeded")
	return nil
}
