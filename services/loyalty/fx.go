package loyalty

import (
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("loyalty",
	fx.Provide(NewService),
	fx.Invoke(migrate),
)

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Account{},
		&PointTransaction{},
		&ClaimedReward{},
	)
}
