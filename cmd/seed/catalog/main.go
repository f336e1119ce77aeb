package main

import (
	"dailynutra-loyaltyplane/pkg/config"
	"dailynutra-loyaltyplane/pkg/db"
	"dailynutra-loyaltyplane/pkg/logger"
	"dailynutra-loyaltyplane/services/catalog"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Seeds the tier, reward and commission catalogs. Safe to run repeatedly.
func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		db.Module,
		fx.Invoke(func(gdb *gorm.DB, shutdowner fx.Shutdowner) error {
			if err := gdb.AutoMigrate(
				&catalog.LoyaltyTier{},
				&catalog.LoyaltyReward{},
				&catalog.CommissionTier{},
				&catalog.ProductCommission{},
			); err != nil {
				return err
			}
			if err := catalog.Seed(gdb); err != nil {
				return err
			}
			zap.L().Info("catalog seeded")
			return shutdowner.Shutdown()
		}),
		fx.NopLogger,
	)
	app.Run()
}
