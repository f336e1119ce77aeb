package loyalty

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"dailynutra-loyaltyplane/services/catalog"

	"gorm.io/datatypes"
)

type TransactionType string

var (
	Earned   TransactionType = "earned"
	Redeemed TransactionType = "redeemed"
)

func (t TransactionType) String() string {
	switch t {
	case Earned, Redeemed:
		return string(t)
	default:
		return ""
	}
}

// Account is one customer's loyalty state. TotalPoints is lifetime-earned and
// never decreases; AvailablePoints is the spendable balance.
type Account struct {
	ID                 string        `gorm:"column:id;primaryKey"`
	CustomerID         string        `gorm:"column:customer_id;uniqueIndex;not null"`
	TotalPoints        int64         `gorm:"column:total_points;not null;default:0"`
	AvailablePoints    int64         `gorm:"column:available_points;not null;default:0"`
	Level              catalog.Level `gorm:"column:level;type:varchar(20)"`
	TotalReferralValue float64       `gorm:"column:total_referral_value;not null;default:0"`
	CommissionTierID   string        `gorm:"column:commission_tier_id"`
	JoinedAt           time.Time     `gorm:"column:joined_at"`
	CreatedAt          time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}

func (Account) TableName() string { return "loyalty_accounts" }

// PointTransaction is one entry in the append-only hash-chained point history.
type PointTransaction struct {
	ID              string          `gorm:"column:id;primaryKey"`
	AccountID       string          `gorm:"column:account_id;index;not null"`
	Type            TransactionType `gorm:"column:type;type:varchar(20);not null"`
	Points          int64           `gorm:"column:points;not null"` // +ve earned, -ve redeemed
	Description     string          `gorm:"column:description;type:text"`
	TransactionCode string          `gorm:"column:transaction_code"`
	ReferenceID     string          `gorm:"column:reference_id;index"`
	PreviousHash    string          `gorm:"column:previous_hash"`
	Hash            string          `gorm:"column:hash"`
	Metadata        datatypes.JSON  `gorm:"column:metadata"`
	CreatedAt       time.Time       `gorm:"column:created_at"`
}

func (PointTransaction) TableName() string { return "point_transactions" }

func (m *PointTransaction) HashFields() map[string]string {
	return map[string]string{
		"id":               m.ID,
		"account_id":       m.AccountID,
		"type":             m.Type.String(),
		"points":           fmt.Sprintf("%d", m.Points),
		"description":      m.Description,
		"transaction_code": m.TransactionCode,
		"reference_id":     m.ReferenceID,
		"created_at":       m.CreatedAt.UTC().Format(time.RFC3339Nano),
		"previous_hash":    m.PreviousHash,
	}
}

func (m *PointTransaction) GenerateHash() string {
	fields := m.HashFields()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, fields[k]))
	}

	joined := strings.Join(parts, "|")
	hash := sha256.Sum256([]byte(joined))
	return hex.EncodeToString(hash[:])
}

// ClaimedReward records a reward id in the account's claimed set. The unique
// pair index enforces one claim per reward per account.
type ClaimedReward struct {
	ID        string    `gorm:"column:id;primaryKey"`
	AccountID string    `gorm:"column:account_id;uniqueIndex:idx_account_reward;not null"`
	RewardID  string    `gorm:"column:reward_id;uniqueIndex:idx_account_reward;not null"`
	ClaimedAt time.Time `gorm:"column:claimed_at;autoCreateTime"`
}

func (ClaimedReward) TableName() string { return "claimed_rewards" }

// GenerateTransactionCode returns a human-scannable code like 20260828-A1B2C3.
func GenerateTransactionCode() (string, error) {
	datePart := time.Now().Format("20060102")

	r := make([]byte, 3) // 3 bytes = 6 hex chars
	if _, err := rand.Read(r); err != nil {
		return "", err
	}
	randomPart := strings.ToUpper(fmt.Sprintf("%x", r))

	return fmt.Sprintf("%s-%s", datePart, randomPart), nil
}
