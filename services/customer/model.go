package customer

import "time"

type Customer struct {
	ID               string     `gorm:"column:id;primaryKey"`
	Email            string     `gorm:"column:email;uniqueIndex;not null"`
	Name             string     `gorm:"column:name"`
	Phone            string     `gorm:"column:phone"`
	BirthDate        *time.Time `gorm:"column:birth_date"`
	ReferralCode     string     `gorm:"column:referral_code;uniqueIndex"`
	ReferredBy       string     `gorm:"column:referred_by"` // referral code used at signup
	LoyaltyAccountID string     `gorm:"column:loyalty_account_id"`
	JoinedAt         time.Time  `gorm:"column:joined_at"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Customer) TableName() string { return "customers" }

type RegisterInput struct {
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	Phone        string     `json:"phone"`
	BirthDate    *time.Time `json:"birth_date,omitempty"`
	ReferralCode string     `json:"referral_code,omitempty"` // code of the referrer
}
