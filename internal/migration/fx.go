package migration

import (
	"github.com/smallbiznis/opsalert/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if !cfg.DBAutoMigrate {
			return nil
		}
		includeOperations := cfg.DBType == "sqlite"
		if err := RunMigrations(conn, includeOperations); err != nil {
			return err
		}
		log.Info("schema migrated",
			zap.String("db_type", cfg.DBType),
			zap.Bool("operational_tables", includeOperations),
		)
		return nil
	}),
)
