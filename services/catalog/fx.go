package catalog

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("catalog",
	fx.Provide(Load),
)

type LoadParams struct {
	fx.In
	DB *gorm.DB
}

// Load migrates the catalog tables, seeds defaults on first boot and returns
// the in-memory snapshot the domain services resolve against.
func Load(p LoadParams) (*Catalog, error) {
	if err := p.DB.AutoMigrate(
		&LoyaltyTier{},
		&LoyaltyReward{},
		&CommissionTier{},
		&ProductCommission{},
	); err != nil {
		return nil, err
	}

	var tierCount int64
	if err := p.DB.Model(&LoyaltyTier{}).Count(&tierCount).Error; err != nil {
		return nil, err
	}
	if tierCount == 0 {
		zap.L().Info("catalog tables empty, seeding defaults")
		if err := Seed(p.DB); err != nil {
			return nil, err
		}
	}

	var (
		tiers              []LoyaltyTier
		rewards            []LoyaltyReward
		commissionTiers    []CommissionTier
		productCommissions []ProductCommission
	)

	if err := p.DB.Order("required_points asc").Find(&tiers).Error; err != nil {
		return nil, err
	}
	if err := p.DB.Find(&rewards).Error; err != nil {
		return nil, err
	}
	if err := p.DB.Order("min_referral_value asc").Find(&commissionTiers).Error; err != nil {
		return nil, err
	}
	if err := p.DB.Find(&productCommissions).Error; err != nil {
		return nil, err
	}

	return New(tiers, rewards, commissionTiers, productCommissions), nil
}
