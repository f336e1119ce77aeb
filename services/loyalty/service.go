package loyalty

import (
	"context"
	"errors"
	"fmt"
	"time"

	pkgdb "dailynutra-loyaltyplane/pkg/db"
	"dailynutra-loyaltyplane/pkg/errutil"
	"dailynutra-loyaltyplane/pkg/notify"
	"dailynutra-loyaltyplane/services/catalog"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const genesisHash = "GENESIS"

type Service struct {
	db       *gorm.DB
	node     *snowflake.Node
	catalog  *catalog.Catalog
	notifier notify.Notifier
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Node     *snowflake.Node
	Catalog  *catalog.Catalog
	Notifier notify.Notifier
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:       p.DB,
		node:     p.Node,
		catalog:  p.Catalog,
		notifier: p.Notifier,
	}
}

func traceFields(ctx context.Context) []zap.Field {
	span := trace.SpanFromContext(ctx)
	return []zap.Field{
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
	}
}

// CreateAccount opens a loyalty account for a customer and seeds the welcome
// bonus as the first earned transaction.
func (s *Service) CreateAccount(ctx context.Context, customerID string, welcomeBonus int64) (*Account, error) {
	zapLog := zap.L().With(traceFields(ctx)...).With(zap.String("customer_id", customerID))

	var account *Account
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		account, err = s.CreateAccountInTx(ctx, tx, customerID, welcomeBonus)
		return err
	}); err != nil {
		zapLog.Error("failed to create loyalty account", zap.Error(err))
		return nil, err
	}

	zapLog.Info("loyalty account created", zap.String("account_id", account.ID), zap.Int64("welcome_bonus", welcomeBonus))
	return account, nil
}

// CreateAccountInTx is CreateAccount inside a caller-owned transaction, so
// registration can commit the account and the customer row atomically.
func (s *Service) CreateAccountInTx(ctx context.Context, tx *gorm.DB, customerID string, welcomeBonus int64) (*Account, error) {
	var existing Account
	if err := tx.Where(&Account{CustomerID: customerID}).First(&existing).Error; err == nil {
		return nil, errutil.Conflict("loyalty account already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	account := &Account{
		ID:               s.node.Generate().String(),
		CustomerID:       customerID,
		Level:            s.catalog.ResolveTier(0).Level,
		CommissionTierID: s.catalog.TierForReferralValue(0).ID,
		JoinedAt:         now,
	}

	if err := tx.Create(account).Error; err != nil {
		return nil, err
	}

	if welcomeBonus > 0 {
		if _, err := s.appendTransaction(tx, account, welcomeBonus, Earned, "Welcome bonus", "", now); err != nil {
			return nil, err
		}

		account.TotalPoints = welcomeBonus
		account.AvailablePoints = welcomeBonus
		account.Level = s.catalog.ResolveTier(welcomeBonus).Level

		if err := tx.Model(&Account{}).Where("id = ?", account.ID).Updates(map[string]any{
			"total_points":     account.TotalPoints,
			"available_points": account.AvailablePoints,
			"level":            account.Level,
			"updated_at":       now,
		}).Error; err != nil {
			return nil, err
		}
	}

	return account, nil
}

// AddPoints appends an earned transaction and reports whether the account
// crossed a tier threshold. Callers rely on the level-up signal.
func (s *Service) AddPoints(ctx context.Context, accountID string, points int64, description string) (*Account, bool, catalog.Level, error) {
	return s.earn(ctx, accountID, points, description, "")
}

// RecordPurchase is AddPoints with an order reference for idempotency: a
// second event carrying the same order id is rejected with a conflict.
func (s *Service) RecordPurchase(ctx context.Context, accountID, orderID string, points int64, description string) (*Account, bool, catalog.Level, error) {
	if orderID == "" {
		return nil, false, "", errutil.BadRequest("order id is required")
	}

	var existing PointTransaction
	if err := s.db.WithContext(ctx).Where(&PointTransaction{ReferenceID: orderID}).First(&existing).Error; err == nil {
		return nil, false, "", errutil.Conflict("order already processed")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, "", err
	}

	return s.earn(ctx, accountID, points, description, orderID)
}

func (s *Service) earn(ctx context.Context, accountID string, points int64, description, referenceID string) (*Account, bool, catalog.Level, error) {
	zapLog := zap.L().With(traceFields(ctx)...).With(zap.String("account_id", accountID))

	var (
		account   Account
		leveledUp bool
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := pkgdb.LockForUpdate(tx).Where("id = ?", accountID).First(&account).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errutil.Unauthorized("loyalty account not found")
			}
			return err
		}

		now := time.Now().UTC()
		if _, err := s.appendTransaction(tx, &account, points, Earned, description, referenceID, now); err != nil {
			return err
		}

		prevLevel := account.Level
		account.TotalPoints += points
		account.AvailablePoints += points
		account.Level = s.catalog.ResolveTier(account.TotalPoints).Level
		leveledUp = account.Level != prevLevel

		return tx.Model(&Account{}).Where("id = ?", account.ID).Updates(map[string]any{
			"total_points":     account.TotalPoints,
			"available_points": account.AvailablePoints,
			"level":            account.Level,
			"updated_at":       now,
		}).Error
	})
	if err != nil {
		zapLog.Error("failed to add points", zap.Error(err))
		return nil, false, "", err
	}

	if leveledUp {
		s.notifier.Notify(ctx, "Tier upgraded",
			fmt.Sprintf("Congratulations, you reached %s status", account.Level), notify.Success)
	}

	return &account, leveledUp, account.Level, nil
}

// ClaimReward redeems a catalog reward against the available balance.
// Checks run in order: account, reward, prior claim, balance. TotalPoints is
// untouched so tier status survives spending.
func (s *Service) ClaimReward(ctx context.Context, accountID, rewardID string) (*Account, error) {
	zapLog := zap.L().With(traceFields(ctx)...).With(
		zap.String("account_id", accountID),
		zap.String("reward_id", rewardID),
	)

	var (
		account Account
		reward  *catalog.LoyaltyReward
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := pkgdb.LockForUpdate(tx).Where("id = ?", accountID).First(&account).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errutil.Unauthorized("loyalty account required")
			}
			return err
		}

		now := time.Now().UTC()

		var ok bool
		reward, ok = s.catalog.Reward(rewardID, now)
		if !ok {
			return errutil.NotFound("reward not found or no longer active")
		}

		var claimed ClaimedReward
		if err := tx.Where(&ClaimedReward{AccountID: account.ID, RewardID: rewardID}).First(&claimed).Error; err == nil {
			return errutil.Conflict("reward already claimed")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if account.AvailablePoints < reward.PointsCost {
			return errutil.UnprocessableEntity("insufficient points")
		}

		if _, err := s.appendTransaction(tx, &account, -reward.PointsCost, Redeemed,
			fmt.Sprintf("Redeemed: %s", reward.Title), "", now); err != nil {
			return err
		}

		if err := tx.Create(&ClaimedReward{
			ID:        s.node.Generate().String(),
			AccountID: account.ID,
			RewardID:  rewardID,
		}).Error; err != nil {
			return err
		}

		account.AvailablePoints -= reward.PointsCost

		return tx.Model(&Account{}).Where("id = ?", account.ID).Updates(map[string]any{
			"available_points": account.AvailablePoints,
			"updated_at":       now,
		}).Error
	})
	if err != nil {
		zapLog.Warn("reward claim rejected", zap.Error(err))
		return nil, err
	}

	s.notifier.Notify(ctx, "Reward claimed",
		fmt.Sprintf("%s is on its way", reward.Title), notify.Success)

	return &account, nil
}

func (s *Service) appendTransaction(tx *gorm.DB, account *Account, points int64, txnType TransactionType, description, referenceID string, now time.Time) (*PointTransaction, error) {
	previousHash := genesisHash

	// snowflake ids are monotonic, so they break created_at ties
	var last PointTransaction
	err := tx.Where(&PointTransaction{AccountID: account.ID}).
		Order("created_at desc, id desc").
		First(&last).Error
	if err == nil {
		previousHash = last.Hash
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	code, err := GenerateTransactionCode()
	if err != nil {
		return nil, err
	}

	entry := &PointTransaction{
		ID:              s.node.Generate().String(),
		AccountID:       account.ID,
		Type:            txnType,
		Points:          points,
		Description:     description,
		TransactionCode: code,
		ReferenceID:     referenceID,
		PreviousHash:    previousHash,
		CreatedAt:       now,
	}
	entry.Hash = entry.GenerateHash()

	if err := tx.Create(entry).Error; err != nil {
		return nil, err
	}

	return entry, nil
}

// Account returns the loyalty account by id.
func (s *Service) Account(ctx context.Context, accountID string) (*Account, error) {
	var account Account
	if err := s.db.WithContext(ctx).Where("id = ?", accountID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errutil.NotFound("loyalty account not found")
		}
		return nil, err
	}
	return &account, nil
}

// AccountByCustomer returns the loyalty account linked to a customer.
func (s *Service) AccountByCustomer(ctx context.Context, customerID string) (*Account, error) {
	var account Account
	if err := s.db.WithContext(ctx).Where(&Account{CustomerID: customerID}).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errutil.NotFound("loyalty account not found")
		}
		return nil, err
	}
	return &account, nil
}

// History returns the point transaction log in chronological order.
func (s *Service) History(ctx context.Context, accountID string) ([]PointTransaction, error) {
	var entries []PointTransaction
	if err := s.db.WithContext(ctx).
		Where(&PointTransaction{AccountID: accountID}).
		Order("created_at asc, id asc").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// ClaimedRewardIDs returns the account's claimed-reward set.
func (s *Service) ClaimedRewardIDs(ctx context.Context, accountID string) ([]string, error) {
	var claims []ClaimedReward
	if err := s.db.WithContext(ctx).
		Where(&ClaimedReward{AccountID: accountID}).
		Order("claimed_at asc").
		Find(&claims).Error; err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(claims))
	for _, c := range claims {
		ids = append(ids, c.RewardID)
	}
	return ids, nil
}

// VerifyChain recomputes the transaction hash chain and reports whether the
// stored history is intact.
func (s *Service) VerifyChain(ctx context.Context, accountID string) (bool, error) {
	entries, err := s.History(ctx, accountID)
	if err != nil {
		return false, err
	}

	lastHash := genesisHash
	for i := range entries {
		entry := entries[i]
		if entry.PreviousHash != lastHash || entry.Hash != entry.GenerateHash() {
			return false, nil
		}
		lastHash = entry.Hash
	}

	return true, nil
}
