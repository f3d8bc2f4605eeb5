package migration

import (
	"github.com/numeratel/numera/internal/config"
	tenantdomain "github.com/numeratel/numera/internal/tenantconfig/domain"
	txdomain "github.com/numeratel/numera/internal/transaction/domain"
	webhookdomain "github.com/numeratel/numera/internal/webhook/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		// Versioned SQL migrations are written for PostgreSQL. The other
		// dialects are development conveniences and get the schema from
		// the models directly.
		if cfg.DBType != "postgres" {
			return conn.AutoMigrate(
				&tenantdomain.PaymentConfig{},
				&txdomain.Transaction{},
				&webhookdomain.EventRecord{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
