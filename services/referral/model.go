package referral

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Referral links a referrer's loyalty account to a referred customer. Pending
// rows are created at registration; a completed row carries the purchase that
// earned commission.
type Referral struct {
	ID                 string     `gorm:"column:id;primaryKey"`
	ReferrerAccountID  string     `gorm:"column:referrer_account_id;index;not null"`
	ReferredCustomerID string     `gorm:"column:referred_customer_id;index"`
	Status             Status     `gorm:"column:status;type:varchar(20);not null"`
	ProductID          string     `gorm:"column:product_id"`
	PurchaseAmount     float64    `gorm:"column:purchase_amount;not null;default:0"`
	CommissionEarned   float64    `gorm:"column:commission_earned;not null;default:0"`
	CreatedAt          time.Time  `gorm:"column:created_at;autoCreateTime"`
	CompletedAt        *time.Time `gorm:"column:completed_at"`
}

func (Referral) TableName() string { return "referrals" }
