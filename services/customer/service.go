package customer

import (
	"context"
	"errors"
	"strings"
	"time"

	"dailynutra-loyaltyplane/pkg/config"
	"dailynutra-loyaltyplane/pkg/errutil"
	"dailynutra-loyaltyplane/pkg/sequence"
	"dailynutra-loyaltyplane/services/loyalty"
	"dailynutra-loyaltyplane/services/referral"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Resolver maps referral codes to their owners. It is a separate component so
// the referral service can depend on code resolution without depending on the
// full customer service.
type Resolver struct {
	db *gorm.DB
}

func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// ResolveReferralCode returns the owning customer and loyalty account ids.
// Satisfies referral.CodeResolver.
func (r *Resolver) ResolveReferralCode(ctx context.Context, code string) (string, string, error) {
	var cust Customer
	if err := r.db.WithContext(ctx).Where(&Customer{ReferralCode: code}).First(&cust).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", errutil.NotFound("invalid referral code")
		}
		return "", "", err
	}
	return cust.ID, cust.LoyaltyAccountID, nil
}

type Service struct {
	db        *gorm.DB
	node      *snowflake.Node
	codes     sequence.Generator
	resolver  *Resolver
	loyalty   *loyalty.Service
	referrals *referral.Service
	cfg       *config.Config
}

type ServiceParams struct {
	fx.In
	DB        *gorm.DB
	Node      *snowflake.Node
	Codes     sequence.Generator
	Resolver  *Resolver
	Loyalty   *loyalty.Service
	Referrals *referral.Service
	Config    *config.Config
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:        p.DB,
		node:      p.Node,
		codes:     p.Codes,
		resolver:  p.Resolver,
		loyalty:   p.Loyalty,
		referrals: p.Referrals,
		cfg:       p.Config,
	}
}

// Register creates a customer with a loyalty account, a unique referral code
// and the welcome bonus. When the signup carried another member's referral
// code a pending referral is recorded against the referrer; an unknown code
// is logged and ignored so a typo never blocks registration.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Customer, *loyalty.Account, error) {
	span := trace.SpanFromContext(ctx)
	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("email", in.Email),
	)

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, nil, errutil.ValidationFailed("email is required",
			errutil.WithDetails(errutil.Detail{Field: "email", Message: "must not be empty"}))
	}

	var existing Customer
	if err := s.db.WithContext(ctx).Where(&Customer{Email: email}).First(&existing).Error; err == nil {
		return nil, nil, errutil.Conflict("email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}

	customerID := s.node.Generate().String()

	code, err := s.codes.NextReferralCode(ctx, customerID)
	if err != nil {
		zapLog.Error("failed to generate referral code", zap.Error(err))
		return nil, nil, err
	}

	cust := &Customer{
		ID:           customerID,
		Email:        email,
		Name:         in.Name,
		Phone:        in.Phone,
		BirthDate:    in.BirthDate,
		ReferralCode: code,
		ReferredBy:   in.ReferralCode,
		JoinedAt:     time.Now().UTC(),
	}

	// account and customer commit together; a late unique-index loss rolls
	// back the welcome bonus instead of orphaning it
	var account *loyalty.Account
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		account, err = s.loyalty.CreateAccountInTx(ctx, tx, customerID, s.cfg.Loyalty.WelcomeBonusPoints)
		if err != nil {
			return err
		}
		cust.LoyaltyAccountID = account.ID
		return tx.Create(cust).Error
	}); err != nil {
		if relErr := s.codes.ReleaseReferralCode(ctx, code); relErr != nil {
			zapLog.Warn("failed to release referral code reservation",
				zap.String("referral_code", code), zap.Error(relErr))
		}
		return nil, nil, err
	}

	if in.ReferralCode != "" {
		_, referrerAccountID, err := s.resolver.ResolveReferralCode(ctx, in.ReferralCode)
		if err != nil {
			zapLog.Warn("signup carried unknown referral code",
				zap.String("referral_code", in.ReferralCode), zap.Error(err))
		} else if _, err := s.referrals.CreatePending(ctx, referrerAccountID, customerID); err != nil {
			zapLog.Warn("failed to record pending referral", zap.Error(err))
		}
	}

	zapLog.Info("customer registered",
		zap.String("customer_id", customerID),
		zap.String("referral_code", code),
	)

	return cust, account, nil
}

// Get returns the customer by id.
func (s *Service) Get(ctx context.Context, id string) (*Customer, error) {
	var cust Customer
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&cust).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errutil.NotFound("customer not found")
		}
		return nil, err
	}
	return &cust, nil
}
