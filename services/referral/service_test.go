package referral

import (
	"context"
	"testing"
	"time"

	"dailynutra-loyaltyplane/pkg/errutil"
	"dailynutra-loyaltyplane/pkg/notify"
	"dailynutra-loyaltyplane/services/catalog"
	"dailynutra-loyaltyplane/services/loyalty"
	"dailynutra-loyaltyplane/services/testutil"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type stubResolver struct {
	codes map[string]string // referral code -> account id
}

func (r *stubResolver) ResolveReferralCode(_ context.Context, code string) (string, string, error) {
	accountID, ok := r.codes[code]
	if !ok {
		return "", "", errutil.NotFound("invalid referral code")
	}
	return "cust-" + accountID, accountID, nil
}

func newTestService(t *testing.T) (*Service, *gorm.DB, *stubResolver) {
	t.Helper()

	db := testutil.NewTestDB(t, &loyalty.Account{}, &Referral{})

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	resolver := &stubResolver{codes: map[string]string{}}
	svc := NewService(ServiceParams{
		DB:       db,
		Node:     node,
		Catalog:  catalog.Defaults(),
		Resolver: resolver,
		Notifier: notify.Nop(),
	})
	return svc, db, resolver
}

func seedAccount(t *testing.T, db *gorm.DB, id string) *loyalty.Account {
	t.Helper()
	account := &loyalty.Account{
		ID:               id,
		CustomerID:       "cust-" + id,
		Level:            catalog.LevelBronze,
		CommissionTierID: "ct-starter",
		JoinedAt:         time.Now().UTC(),
	}
	require.NoError(t, db.Create(account).Error)
	return account
}

func TestTrackEarnsCommission(t *testing.T) {
	svc, db, resolver := newTestService(t)
	ctx := context.Background()

	account := seedAccount(t, db, "acc-1")
	resolver.codes["DN-0001-AAAAA"] = account.ID

	require.NoError(t, svc.Track(ctx, "DN-0001-AAAAA", "1", 125))

	refs, err := svc.ListByAccount(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	require.Equal(t, StatusCompleted, refs[0].Status)
	require.InDelta(t, 12.5, refs[0].CommissionEarned, 1e-9)
	require.NotNil(t, refs[0].CompletedAt)

	var updated loyalty.Account
	require.NoError(t, db.First(&updated, "id = ?", account.ID).Error)
	require.InDelta(t, 125, updated.TotalReferralValue, 1e-9)
	require.Equal(t, "ct-starter", updated.CommissionTierID)
}

func TestTrackAggregatesValueAndPromotesTier(t *testing.T) {
	svc, db, resolver := newTestService(t)
	ctx := context.Background()

	account := seedAccount(t, db, "acc-1")
	resolver.codes["DN-0001-AAAAA"] = account.ID

	// three purchases totalling 1200 cross the Advocate threshold at 1000
	require.NoError(t, svc.Track(ctx, "DN-0001-AAAAA", "1", 400))
	require.NoError(t, svc.Track(ctx, "DN-0001-AAAAA", "1", 400))
	require.NoError(t, svc.Track(ctx, "DN-0001-AAAAA", "1", 400))

	var updated loyalty.Account
	require.NoError(t, db.First(&updated, "id = ?", account.ID).Error)
	require.InDelta(t, 1200, updated.TotalReferralValue, 1e-9)
	require.Equal(t, "ct-advocate", updated.CommissionTierID)

	// the next purchase is paid at the promoted tier's multiplier
	require.NoError(t, svc.Track(ctx, "DN-0001-AAAAA", "1", 100))

	refs, err := svc.ListByAccount(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, refs, 4)
	require.InDelta(t, 15.0, refs[0].CommissionEarned, 1e-9) // 100 * 0.10 * 1.5
}

func TestTrackCommissionUsesTierAtPurchaseTime(t *testing.T) {
	svc, db, resolver := newTestService(t)
	ctx := context.Background()

	account := seedAccount(t, db, "acc-1")
	account.CommissionTierID = "ct-ambassador"
	require.NoError(t, db.Save(account).Error)
	resolver.codes["DN-0001-AAAAA"] = account.ID

	require.NoError(t, svc.Track(ctx, "DN-0001-AAAAA", "1", 125))

	refs, err := svc.ListByAccount(ctx, account.ID)
	require.NoError(t, err)
	require.InDelta(t, 25.0, refs[0].CommissionEarned, 1e-9) // 2x multiplier
}

func TestTrackRejectsNonPositiveAmount(t *testing.T) {
	svc, db, resolver := newTestService(t)
	ctx := context.Background()

	account := seedAccount(t, db, "acc-1")
	resolver.codes["DN-0001-AAAAA"] = account.ID

	require.NoError(t, svc.Track(ctx, "DN-0001-AAAAA", "1", 400))

	for _, amount := range []float64{0, -300} {
		err := svc.Track(ctx, "DN-0001-AAAAA", "1", amount)

		var be errutil.BaseError
		require.ErrorAs(t, err, &be)
		require.Equal(t, errutil.StatusValidationFailed, be.Code)
	}

	// the aggregate only ever grows
	var updated loyalty.Account
	require.NoError(t, db.First(&updated, "id = ?", account.ID).Error)
	require.InDelta(t, 400, updated.TotalReferralValue, 1e-9)

	refs, err := svc.ListByAccount(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, refs, 1)
}

func TestTrackInvalidCode(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.Track(context.Background(), "DN-XXXX-YYYYY", "1", 125)

	var be errutil.BaseError
	require.ErrorAs(t, err, &be)
	require.Equal(t, errutil.StatusNotFound, be.Code)
}

func TestTrackReferrerAccountMissing(t *testing.T) {
	svc, _, resolver := newTestService(t)
	resolver.codes["DN-0001-AAAAA"] = "gone"

	err := svc.Track(context.Background(), "DN-0001-AAAAA", "1", 125)

	var be errutil.BaseError
	require.ErrorAs(t, err, &be)
	require.Equal(t, errutil.StatusUnprocessableEntity, be.Code)
}

func TestTrackInactiveProductStillCompletes(t *testing.T) {
	svc, db, resolver := newTestService(t)
	ctx := context.Background()

	account := seedAccount(t, db, "acc-1")
	resolver.codes["DN-0001-AAAAA"] = account.ID

	require.NoError(t, svc.Track(ctx, "DN-0001-AAAAA", "3", 500))

	refs, err := svc.ListByAccount(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	require.Zero(t, refs[0].CommissionEarned)

	// purchase value still counts toward tier progression
	var updated loyalty.Account
	require.NoError(t, db.First(&updated, "id = ?", account.ID).Error)
	require.InDelta(t, 500, updated.TotalReferralValue, 1e-9)
}

func TestCreatePending(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	ref, err := svc.CreatePending(ctx, "acc-1", "cust-9")
	require.NoError(t, err)
	require.Equal(t, StatusPending, ref.Status)
	require.Nil(t, ref.CompletedAt)

	refs, err := svc.ListByAccount(ctx, "acc-1")
	require.NoError(t, err)
	require.Len(t, refs, 1)
}
