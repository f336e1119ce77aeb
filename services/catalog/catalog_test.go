package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResolveTierThresholds(t *testing.T) {
	c := Defaults()

	cases := []struct {
		points int64
		want   Level
	}{
		{0, LevelBronze},
		{499, LevelBronze},
		{500, LevelSilver},
		{550, LevelSilver},
		{1499, LevelSilver},
		{1500, LevelGold},
		{3999, LevelGold},
		{4000, LevelPlatinum},
		{100000, LevelPlatinum},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, c.ResolveTier(tc.points).Level, "points=%d", tc.points)
	}
}

func TestResolveTierMonotonic(t *testing.T) {
	c := Defaults()

	prev := -1
	for points := int64(0); points <= 5000; points += 50 {
		rank := c.ResolveTier(points).Level.Rank()
		require.GreaterOrEqual(t, rank, prev, "points=%d", points)
		prev = rank
	}
}

func TestNextTier(t *testing.T) {
	c := Defaults()

	next := c.NextTier(LevelBronze)
	require.NotNil(t, next)
	require.Equal(t, LevelSilver, next.Level)

	next = c.NextTier(LevelGold)
	require.NotNil(t, next)
	require.Equal(t, LevelPlatinum, next.Level)

	require.Nil(t, c.NextTier(LevelPlatinum))
	require.Nil(t, c.NextTier(Level("unknown")))
}

func TestPointsToNextTier(t *testing.T) {
	c := Defaults()

	missing, ok := c.PointsToNextTier(550)
	require.True(t, ok)
	require.Equal(t, int64(950), missing) // gold at 1500

	_, ok = c.PointsToNextTier(4000)
	require.False(t, ok)
}

func TestRewardLookup(t *testing.T) {
	c := Defaults()
	now := time.Now()

	r, ok := c.Reward("reward-2", now)
	require.True(t, ok)
	require.Equal(t, int64(200), r.PointsCost)

	_, ok = c.Reward("missing", now)
	require.False(t, ok)
}

func TestRewardExpiry(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	c := New(DefaultTiers(), []LoyaltyReward{
		{ID: "expired", Title: "Expired", PointsCost: 50, IsActive: true, ValidUntil: &past},
		{ID: "inactive", Title: "Inactive", PointsCost: 50, IsActive: false},
	}, DefaultCommissionTiers(), nil)

	_, ok := c.Reward("expired", time.Now())
	require.False(t, ok)

	_, ok = c.Reward("inactive", time.Now())
	require.False(t, ok)
}

func TestTierForReferralValue(t *testing.T) {
	c := Defaults()

	require.Equal(t, "Starter", c.TierForReferralValue(0).Name)
	require.Equal(t, "Starter", c.TierForReferralValue(999.99).Name)
	require.Equal(t, "Advocate", c.TierForReferralValue(1000).Name)
	require.Equal(t, "Ambassador", c.TierForReferralValue(5000).Name)
	require.Equal(t, "Ambassador", c.TierForReferralValue(1e9).Name)
}

func TestEmptyCatalogResolvesZeroValues(t *testing.T) {
	c := New(nil, nil, nil, nil)

	require.Equal(t, LoyaltyTier{}, c.ResolveTier(1000))
	require.Equal(t, CommissionTier{}, c.TierForReferralValue(1000))
	require.Nil(t, c.NextTier(LevelBronze))
}

func TestCatalogSortsUnorderedInput(t *testing.T) {
	tiers := []LoyaltyTier{
		{Level: LevelPlatinum, RequiredPoints: 4000},
		{Level: LevelBronze, RequiredPoints: 0},
		{Level: LevelGold, RequiredPoints: 1500},
		{Level: LevelSilver, RequiredPoints: 500},
	}
	c := New(tiers, nil, DefaultCommissionTiers(), nil)

	require.Equal(t, LevelBronze, c.Tiers()[0].Level)
	require.Equal(t, LevelPlatinum, c.Tiers()[3].Level)
	require.Equal(t, LevelSilver, c.ResolveTier(700).Level)
}
