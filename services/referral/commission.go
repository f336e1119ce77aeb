package referral

import "dailynutra-loyaltyplane/services/catalog"

// Commission computes the payout for one referred purchase. The rate-based and
// flat amounts are both scaled by the referrer's tier multiplier and the
// larger one wins. Products without an active commission config pay nothing.
func Commission(pc *catalog.ProductCommission, amount float64, tier *catalog.CommissionTier) float64 {
	if pc == nil || !pc.IsActive {
		return 0
	}

	multiplier := 1.0
	if tier != nil {
		multiplier = tier.BaseCommissionRate / catalog.FloorCommissionRate
	}

	rateBased := amount * pc.CommissionRate * multiplier
	flat := pc.FlatCommission * multiplier

	if flat > rateBased {
		return flat
	}
	return rateBased
}
