package referral

import (
	"context"
	"errors"
	"fmt"
	"time"

	pkgdb "dailynutra-loyaltyplane/pkg/db"
	"dailynutra-loyaltyplane/pkg/errutil"
	"dailynutra-loyaltyplane/pkg/notify"
	"dailynutra-loyaltyplane/services/catalog"
	"dailynutra-loyaltyplane/services/loyalty"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CodeResolver maps a referral code to its owner. Implemented by the customer
// service.
type CodeResolver interface {
	ResolveReferralCode(ctx context.Context, code string) (customerID, accountID string, err error)
}

type Service struct {
	db       *gorm.DB
	node     *snowflake.Node
	catalog  *catalog.Catalog
	resolver CodeResolver
	notifier notify.Notifier
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Node     *snowflake.Node
	Catalog  *catalog.Catalog
	Resolver CodeResolver
	Notifier notify.Notifier
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:       p.DB,
		node:     p.Node,
		catalog:  p.Catalog,
		resolver: p.Resolver,
		notifier: p.Notifier,
	}
}

// CreatePending records a registration-time referral before any purchase has
// happened. It carries no value until a purchase completes it.
func (s *Service) CreatePending(ctx context.Context, referrerAccountID, referredCustomerID string) (*Referral, error) {
	ref := &Referral{
		ID:                 s.node.Generate().String(),
		ReferrerAccountID:  referrerAccountID,
		ReferredCustomerID: referredCustomerID,
		Status:             StatusPending,
	}
	if err := s.db.WithContext(ctx).Create(ref).Error; err != nil {
		return nil, err
	}
	return ref, nil
}

// Track credits the owner of a referral code for a referred purchase: it
// computes the commission at the referrer's current tier, appends a completed
// referral, then re-aggregates the referrer's lifetime referral value and
// reassigns the commission tier.
func (s *Service) Track(ctx context.Context, referralCode, productID string, purchaseAmount float64) error {
	if purchaseAmount <= 0 {
		return errutil.ValidationFailed("purchase amount must be positive")
	}

	span := trace.SpanFromContext(ctx)
	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("referral_code", referralCode),
		zap.String("product_id", productID),
	)

	_, accountID, err := s.resolver.ResolveReferralCode(ctx, referralCode)
	if err != nil {
		return err
	}

	var (
		commission float64
		newTier    catalog.CommissionTier
	)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var account loyalty.Account
		if err := pkgdb.LockForUpdate(tx).Where("id = ?", accountID).First(&account).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errutil.UnprocessableEntity("referrer has no loyalty account")
			}
			return err
		}

		tier := s.catalog.CommissionTierByID(account.CommissionTierID)
		pc := s.catalog.ProductCommissionFor(productID)
		commission = Commission(pc, purchaseAmount, tier)

		now := time.Now().UTC()
		ref := &Referral{
			ID:                 s.node.Generate().String(),
			ReferrerAccountID:  account.ID,
			Status:             StatusCompleted,
			ProductID:          productID,
			PurchaseAmount:     purchaseAmount,
			CommissionEarned:   commission,
			CompletedAt:        &now,
		}
		if err := tx.Create(ref).Error; err != nil {
			return err
		}

		var totalValue float64
		if err := tx.Model(&Referral{}).
			Where("referrer_account_id = ? AND status = ?", account.ID, StatusCompleted).
			Select("COALESCE(SUM(purchase_amount), 0)").
			Scan(&totalValue).Error; err != nil {
			return err
		}

		newTier = s.catalog.TierForReferralValue(totalValue)

		return tx.Model(&loyalty.Account{}).Where("id = ?", account.ID).Updates(map[string]any{
			"total_referral_value": totalValue,
			"commission_tier_id":   newTier.ID,
			"updated_at":           now,
		}).Error
	})
	if err != nil {
		zapLog.Error("failed to track referral", zap.Error(err))
		return err
	}

	zapLog.Info("referral commission earned",
		zap.String("account_id", accountID),
		zap.Float64("commission", commission),
		zap.String("commission_tier", newTier.ID),
	)

	if commission > 0 {
		s.notifier.Notify(ctx, "Referral reward",
			fmt.Sprintf("You earned $%.2f from a referred purchase", commission), notify.Success)
	}

	return nil
}

// ListByAccount returns the account's referrals, newest first.
func (s *Service) ListByAccount(ctx context.Context, accountID string) ([]Referral, error) {
	var refs []Referral
	if err := s.db.WithContext(ctx).
		Where(&Referral{ReferrerAccountID: accountID}).
		Order("created_at desc").
		Find(&refs).Error; err != nil {
		return nil, err
	}
	return refs, nil
}
