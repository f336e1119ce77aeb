package customer

import (
	"context"
	"fmt"
	"testing"

	"dailynutra-loyaltyplane/pkg/config"
	"dailynutra-loyaltyplane/pkg/errutil"
	"dailynutra-loyaltyplane/pkg/notify"
	"dailynutra-loyaltyplane/pkg/sequence"
	"dailynutra-loyaltyplane/services/catalog"
	"dailynutra-loyaltyplane/services/loyalty"
	"dailynutra-loyaltyplane/services/referral"
	"dailynutra-loyaltyplane/services/testutil"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// fakeGenerator issues deterministic codes without redis. A non-empty fixed
// code is returned for every call, which lets tests force collisions.
type fakeGenerator struct {
	n        int
	fixed    string
	released []string
}

func (g *fakeGenerator) NextReferralCode(_ context.Context, customerID string) (string, error) {
	if g.fixed != "" {
		return g.fixed, nil
	}
	g.n++
	return sequence.FormatReferralCode(customerID, fmt.Sprintf("TST%02d", g.n)), nil
}

func (g *fakeGenerator) ReleaseReferralCode(_ context.Context, code string) error {
	g.released = append(g.released, code)
	return nil
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	return newTestServiceWithCodes(t, &fakeGenerator{})
}

func newTestServiceWithCodes(t *testing.T, codes sequence.Generator) (*Service, *gorm.DB) {
	t.Helper()

	db := testutil.NewTestDB(t,
		&Customer{},
		&loyalty.Account{},
		&loyalty.PointTransaction{},
		&loyalty.ClaimedReward{},
		&referral.Referral{},
	)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cat := catalog.Defaults()
	notifier := notify.Nop()

	loyaltySvc := loyalty.NewService(loyalty.ServiceParams{
		DB: db, Node: node, Catalog: cat, Notifier: notifier,
	})
	resolver := NewResolver(db)
	referralSvc := referral.NewService(referral.ServiceParams{
		DB: db, Node: node, Catalog: cat, Resolver: resolver, Notifier: notifier,
	})

	cfg := &config.Config{}
	cfg.Loyalty.WelcomeBonusPoints = 100
	cfg.Loyalty.PointsPerUnit = 1.0

	svc := NewService(ServiceParams{
		DB:        db,
		Node:      node,
		Codes:     codes,
		Resolver:  resolver,
		Loyalty:   loyaltySvc,
		Referrals: referralSvc,
		Config:    cfg,
	})
	return svc, db
}

func TestRegister(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cust, account, err := svc.Register(ctx, RegisterInput{
		Email: "jamie@example.com",
		Name:  "Jamie",
	})
	require.NoError(t, err)
	require.NotEmpty(t, cust.ID)
	require.Equal(t, "jamie@example.com", cust.Email)
	require.Regexp(t, `^DN-\w{1,4}-TST\d{2}$`, cust.ReferralCode)
	require.Equal(t, account.ID, cust.LoyaltyAccountID)

	require.Equal(t, int64(100), account.TotalPoints)
	require.Equal(t, int64(100), account.AvailablePoints)
	require.Equal(t, catalog.LevelBronze, account.Level)
}

func TestRegisterNormalizesEmail(t *testing.T) {
	svc, _ := newTestService(t)

	cust, _, err := svc.Register(context.Background(), RegisterInput{Email: "  Jamie@Example.COM "})
	require.NoError(t, err)
	require.Equal(t, "jamie@example.com", cust.Email)
}

func TestRegisterMissingEmail(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.Register(context.Background(), RegisterInput{Name: "No Email"})

	var be errutil.BaseError
	require.ErrorAs(t, err, &be)
	require.Equal(t, errutil.StatusValidationFailed, be.Code)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, RegisterInput{Email: "jamie@example.com"})
	require.NoError(t, err)

	_, _, err = svc.Register(ctx, RegisterInput{Email: "jamie@example.com"})

	var be errutil.BaseError
	require.ErrorAs(t, err, &be)
	require.Equal(t, errutil.StatusConflict, be.Code)
}

func TestRegisterWithReferralCode(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	referrer, referrerAccount, err := svc.Register(ctx, RegisterInput{Email: "referrer@example.com"})
	require.NoError(t, err)

	referred, _, err := svc.Register(ctx, RegisterInput{
		Email:        "referred@example.com",
		ReferralCode: referrer.ReferralCode,
	})
	require.NoError(t, err)
	require.Equal(t, referrer.ReferralCode, referred.ReferredBy)

	var refs []referral.Referral
	require.NoError(t, db.Where("referrer_account_id = ?", referrerAccount.ID).Find(&refs).Error)
	require.Len(t, refs, 1)
	require.Equal(t, referral.StatusPending, refs[0].Status)
	require.Equal(t, referred.ID, refs[0].ReferredCustomerID)
}

func TestRegisterWithUnknownReferralCode(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	// a typo in the code must not block registration
	cust, _, err := svc.Register(ctx, RegisterInput{
		Email:        "jamie@example.com",
		ReferralCode: "DN-0000-WRONG",
	})
	require.NoError(t, err)
	require.NotEmpty(t, cust.ID)

	var count int64
	require.NoError(t, db.Model(&referral.Referral{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestRegisterRollsBackOnCustomerInsertFailure(t *testing.T) {
	gen := &fakeGenerator{fixed: "DN-0000-FIXED"}
	svc, db := newTestServiceWithCodes(t, gen)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, RegisterInput{Email: "first@example.com"})
	require.NoError(t, err)

	// the second registration receives the same code and loses on the
	// referral_code unique index after its account was written
	_, _, err = svc.Register(ctx, RegisterInput{Email: "second@example.com"})
	require.Error(t, err)

	// the losing account and its welcome bonus rolled back with the insert
	var accounts, txns, customers int64
	require.NoError(t, db.Model(&loyalty.Account{}).Count(&accounts).Error)
	require.NoError(t, db.Model(&loyalty.PointTransaction{}).Count(&txns).Error)
	require.NoError(t, db.Model(&Customer{}).Count(&customers).Error)
	require.Equal(t, int64(1), accounts)
	require.Equal(t, int64(1), txns)
	require.Equal(t, int64(1), customers)

	// and the burned reservation was freed
	require.Equal(t, []string{"DN-0000-FIXED"}, gen.released)
}

func TestGet(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cust, _, err := svc.Register(ctx, RegisterInput{Email: "jamie@example.com"})
	require.NoError(t, err)

	got, err := svc.Get(ctx, cust.ID)
	require.NoError(t, err)
	require.Equal(t, cust.Email, got.Email)

	_, err = svc.Get(ctx, "missing")
	var be errutil.BaseError
	require.ErrorAs(t, err, &be)
	require.Equal(t, errutil.StatusNotFound, be.Code)
}

func TestResolverRoundTrip(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	cust, account, err := svc.Register(ctx, RegisterInput{Email: "jamie@example.com"})
	require.NoError(t, err)

	resolver := NewResolver(db)
	customerID, accountID, err := resolver.ResolveReferralCode(ctx, cust.ReferralCode)
	require.NoError(t, err)
	require.Equal(t, cust.ID, customerID)
	require.Equal(t, account.ID, accountID)

	_, _, err = resolver.ResolveReferralCode(ctx, "DN-0000-WRONG")
	var be errutil.BaseError
	require.ErrorAs(t, err, &be)
	require.Equal(t, errutil.StatusNotFound, be.Code)
}
