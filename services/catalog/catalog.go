package catalog

import (
	"sort"
	"time"
)

// FloorCommissionRate is the base rate of the lowest commission tier. Tier
// multipliers are normalized against it.
const FloorCommissionRate = 0.05

// Catalog is an immutable snapshot of the static tier, reward and commission
// catalogs. All resolution functions are pure reads over the snapshot.
type Catalog struct {
	tiers              []LoyaltyTier // ascending by RequiredPoints
	rewards            map[string]LoyaltyReward
	commissionTiers    []CommissionTier // ascending by MinReferralValue
	productCommissions map[string]ProductCommission
}

func New(tiers []LoyaltyTier, rewards []LoyaltyReward, commissionTiers []CommissionTier, productCommissions []ProductCommission) *Catalog {
	c := &Catalog{
		tiers:              append([]LoyaltyTier(nil), tiers...),
		rewards:            make(map[string]LoyaltyReward, len(rewards)),
		commissionTiers:    append([]CommissionTier(nil), commissionTiers...),
		productCommissions: make(map[string]ProductCommission, len(productCommissions)),
	}

	sort.Slice(c.tiers, func(i, j int) bool {
		return c.tiers[i].RequiredPoints < c.tiers[j].RequiredPoints
	})
	sort.Slice(c.commissionTiers, func(i, j int) bool {
		return c.commissionTiers[i].MinReferralValue < c.commissionTiers[j].MinReferralValue
	})

	for _, r := range rewards {
		c.rewards[r.ID] = r
	}
	for _, pc := range productCommissions {
		c.productCommissions[pc.ProductID] = pc
	}

	return c
}

// ResolveTier returns the highest tier whose threshold does not exceed
// totalPoints. The bronze floor always matches. An empty catalog resolves to
// the zero tier rather than panicking.
func (c *Catalog) ResolveTier(totalPoints int64) LoyaltyTier {
	for i := len(c.tiers) - 1; i >= 0; i-- {
		if c.tiers[i].RequiredPoints <= totalPoints {
			return c.tiers[i]
		}
	}
	if len(c.tiers) == 0 {
		return LoyaltyTier{}
	}
	return c.tiers[0]
}

// NextTier returns the tier immediately above level, or nil at the top.
func (c *Catalog) NextTier(level Level) *LoyaltyTier {
	for i, t := range c.tiers {
		if t.Level == level {
			if i+1 < len(c.tiers) {
				next := c.tiers[i+1]
				return &next
			}
			return nil
		}
	}
	return nil
}

// PointsToNextTier returns how many points are missing to the next tier.
// The second return is false when already at the top tier.
func (c *Catalog) PointsToNextTier(totalPoints int64) (int64, bool) {
	current := c.ResolveTier(totalPoints)
	next := c.NextTier(current.Level)
	if next == nil {
		return 0, false
	}
	return next.RequiredPoints - totalPoints, true
}

// Reward returns the reward when it exists, is active and has not expired.
func (c *Catalog) Reward(id string, at time.Time) (*LoyaltyReward, bool) {
	r, ok := c.rewards[id]
	if !ok || !r.IsActive {
		return nil, false
	}
	if r.ValidUntil != nil && at.After(*r.ValidUntil) {
		return nil, false
	}
	return &r, true
}

// TierForReferralValue returns the highest commission tier whose threshold
// does not exceed the cumulative completed-referral purchase value. The floor
// tier (min value 0) always matches.
func (c *Catalog) TierForReferralValue(total float64) CommissionTier {
	for i := len(c.commissionTiers) - 1; i >= 0; i-- {
		if c.commissionTiers[i].MinReferralValue <= total {
			return c.commissionTiers[i]
		}
	}
	if len(c.commissionTiers) == 0 {
		return CommissionTier{}
	}
	return c.commissionTiers[0]
}

// CommissionTierByID returns the tier or nil when unknown.
func (c *Catalog) CommissionTierByID(id string) *CommissionTier {
	for _, t := range c.commissionTiers {
		if t.ID == id {
			tier := t
			return &tier
		}
	}
	return nil
}

// ProductCommissionFor returns the product commission entry, nil when the
// product has none. Callers decide what an inactive entry means.
func (c *Catalog) ProductCommissionFor(productID string) *ProductCommission {
	pc, ok := c.productCommissions[productID]
	if !ok {
		return nil
	}
	return &pc
}

// Tiers exposes the ordered tier list for read-only iteration.
func (c *Catalog) Tiers() []LoyaltyTier {
	return c.tiers
}

// CommissionTiers exposes the ordered commission tier list.
func (c *Catalog) CommissionTiers() []CommissionTier {
	return c.commissionTiers
}

// Rewards lists every reward, cheapest first.
func (c *Catalog) Rewards() []LoyaltyReward {
	rewards := make([]LoyaltyReward, 0, len(c.rewards))
	for _, r := range c.rewards {
		rewards = append(rewards, r)
	}
	sort.Slice(rewards, func(i, j int) bool {
		return rewards[i].PointsCost < rewards[j].PointsCost
	})
	return rewards
}
