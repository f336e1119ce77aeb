package promotion

import (
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("promotion",
	fx.Provide(
		NewEvaluator,
		NewRedisSeenStore,
		NewService,
	),
	fx.Invoke(migrate),
)

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Promotion{})
}
