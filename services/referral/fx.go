package referral

import (
	"dailynutra-loyaltyplane/services/loyalty"

	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("referral",
	fx.Provide(
		NewService,
		func(s *Service) loyalty.ReferralTracker { return s },
	),
	fx.Invoke(migrate),
)

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Referral{})
}
