package entity

// Tier is a referrer's reward-percentage bracket, recomputed from the
// cumulative referral count every time a calculation runs.
type Tier string

const (
	TierRookie Tier = "Rookie"
	TierPro    Tier = "Pro"
	TierLegend Tier = "Legend"
)

// TierForCount maps a cumulative referral count to a tier.
// Thresholds are strict: 10 referrals is still Rookie, 30 is still Pro.
func TierForCount(count int64) Tier {
	switch {
	case count > 30:
		return TierLegend
	case count > 10:
		return TierPro
	default:
		return TierRookie
	}
}

// Percent returns the referral bonus rate for the tier.
func (t Tier) Percent() float64 {
	switch t {
	case TierLegend:
		return 0.10
	case TierPro:
		return 0.07
	default:
		return 0.05
	}
}

// LoyaltyCashback reports whether a renewing member of this tier earns
// cashback. Rookie renewals get nothing.
func (t Tier) LoyaltyCashback() bool {
	return t == TierPro || t == TierLegend
}
