package catalog

import (
	"time"

	"gorm.io/datatypes"
)

// Level is a loyalty status level unlocked by lifetime point accumulation.
type Level string

const (
	LevelBronze   Level = "bronze"
	LevelSilver   Level = "silver"
	LevelGold     Level = "gold"
	LevelPlatinum Level = "platinum"
)

func (l Level) String() string {
	switch l {
	case LevelBronze, LevelSilver, LevelGold, LevelPlatinum:
		return string(l)
	default:
		return ""
	}
}

// Rank orders levels for monotonicity checks. Unknown levels rank below bronze.
func (l Level) Rank() int {
	switch l {
	case LevelBronze:
		return 0
	case LevelSilver:
		return 1
	case LevelGold:
		return 2
	case LevelPlatinum:
		return 3
	default:
		return -1
	}
}

type LoyaltyTier struct {
	Level          Level          `gorm:"column:level;primaryKey;type:varchar(20)"`
	RequiredPoints int64          `gorm:"column:required_points;not null"`
	Benefits       datatypes.JSON `gorm:"column:benefits"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (LoyaltyTier) TableName() string { return "loyalty_tiers" }

type LoyaltyReward struct {
	ID                 string     `gorm:"column:id;primaryKey"`
	Title              string     `gorm:"column:title;not null"`
	Description        string     `gorm:"column:description"`
	PointsCost         int64      `gorm:"column:points_cost;not null"`
	DiscountPercentage *float64   `gorm:"column:discount_percentage"`
	CashbackAmount     *float64   `gorm:"column:cashback_amount"`
	MinPurchaseAmount  *float64   `gorm:"column:min_purchase_amount"`
	RewardCode         string     `gorm:"column:reward_code"`
	IsActive           bool       `gorm:"column:is_active;default:true"`
	ValidUntil         *time.Time `gorm:"column:valid_until"`
	CreatedAt          time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (LoyaltyReward) TableName() string { return "loyalty_rewards" }

// CommissionTier is a separate status ladder for referrers, unlocked by
// cumulative completed-referral purchase value.
type CommissionTier struct {
	ID                 string    `gorm:"column:id;primaryKey"`
	Name               string    `gorm:"column:name;not null"`
	MinReferralValue   float64   `gorm:"column:min_referral_value;not null"`
	BaseCommissionRate float64   `gorm:"column:base_commission_rate;not null"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (CommissionTier) TableName() string { return "commission_tiers" }

// ProductCommission governs the commission basis for one product.
type ProductCommission struct {
	ProductID      string    `gorm:"column:product_id;primaryKey"`
	CommissionRate float64   `gorm:"column:commission_rate;not null"`
	FlatCommission float64   `gorm:"column:flat_commission;not null;default:0"`
	IsActive       bool      `gorm:"column:is_active;default:true"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (ProductCommission) TableName() string { return "product_commissions" }
