package catalog

import (
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func benefits(items ...string) datatypes.JSON {
	b, _ := json.Marshal(items)
	return datatypes.JSON(b)
}

func ptr(v float64) *float64 { return &v }

// DefaultTiers is the DailyNutra loyalty ladder.
func DefaultTiers() []LoyaltyTier {
	return []LoyaltyTier{
		{Level: LevelBronze, RequiredPoints: 0, Benefits: benefits(
			"Member pricing on select products",
			"Birthday gift",
		)},
		{Level: LevelSilver, RequiredPoints: 500, Benefits: benefits(
			"Free shipping on orders over $50",
			"Early access to seasonal sales",
			"Birthday gift",
		)},
		{Level: LevelGold, RequiredPoints: 1500, Benefits: benefits(
			"Free shipping on all orders",
			"Quarterly wellness sample box",
			"Priority support",
		)},
		{Level: LevelPlatinum, RequiredPoints: 4000, Benefits: benefits(
			"Free expedited shipping",
			"Annual wellness consultation",
			"Exclusive product previews",
			"Dedicated support line",
		)},
	}
}

func DefaultRewards() []LoyaltyReward {
	return []LoyaltyReward{
		{ID: "reward-1", Title: "Free Shipping", Description: "Free standard shipping on your next order",
			PointsCost: 100, MinPurchaseAmount: ptr(25), RewardCode: "SHIP100", IsActive: true},
		{ID: "reward-2", Title: "15% Off Your Next Order", Description: "15% discount on a single order",
			PointsCost: 200, DiscountPercentage: ptr(15), RewardCode: "SAVE15", IsActive: true},
		{ID: "reward-3", Title: "$10 Cashback", Description: "Ten dollars back on a purchase of $40 or more",
			PointsCost: 350, CashbackAmount: ptr(10), MinPurchaseAmount: ptr(40), RewardCode: "CASH10", IsActive: true},
		{ID: "reward-4", Title: "Exclusive Wellness Box", Description: "Curated box of member-only products",
			PointsCost: 1000, RewardCode: "WELLBOX", IsActive: true},
	}
}

func DefaultCommissionTiers() []CommissionTier {
	return []CommissionTier{
		{ID: "ct-starter", Name: "Starter", MinReferralValue: 0, BaseCommissionRate: 0.05},
		{ID: "ct-advocate", Name: "Advocate", MinReferralValue: 1000, BaseCommissionRate: 0.075},
		{ID: "ct-ambassador", Name: "Ambassador", MinReferralValue: 5000, BaseCommissionRate: 0.10},
	}
}

func DefaultProductCommissions() []ProductCommission {
	return []ProductCommission{
		{ProductID: "1", CommissionRate: 0.10, FlatCommission: 4.99, IsActive: true},
		{ProductID: "2", CommissionRate: 0.08, FlatCommission: 3.50, IsActive: true},
		{ProductID: "3", CommissionRate: 0.12, FlatCommission: 6.00, IsActive: false},
	}
}

// Defaults returns an in-memory catalog snapshot of the seed data.
func Defaults() *Catalog {
	return New(DefaultTiers(), DefaultRewards(), DefaultCommissionTiers(), DefaultProductCommissions())
}

// Seed inserts the default catalogs, skipping rows that already exist.
func Seed(db *gorm.DB) error {
	for _, t := range DefaultTiers() {
		if err := db.Where(LoyaltyTier{Level: t.Level}).Attrs(t).FirstOrCreate(&t).Error; err != nil {
			return err
		}
	}
	for _, r := range DefaultRewards() {
		if err := db.Where(LoyaltyReward{ID: r.ID}).Attrs(r).FirstOrCreate(&r).Error; err != nil {
			return err
		}
	}
	for _, ct := range DefaultCommissionTiers() {
		if err := db.Where(CommissionTier{ID: ct.ID}).Attrs(ct).FirstOrCreate(&ct).Error; err != nil {
			return err
		}
	}
	for _, pc := range DefaultProductCommissions() {
		if err := db.Where(ProductCommission{ProductID: pc.ProductID}).Attrs(pc).FirstOrCreate(&pc).Error; err != nil {
			return err
		}
	}
	return nil
}
