package customer

import (
	"dailynutra-loyaltyplane/services/referral"

	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("customer",
	fx.Provide(
		NewResolver,
		func(r *Resolver) referral.CodeResolver { return r },
		NewService,
	),
	fx.Invoke(migrate),
)

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Customer{})
}
