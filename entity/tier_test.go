package entity

import "testing"

func TestTierForCount(t *testing.T) {
	tests := []struct {
		count int64
		want  Tier
	}{
		{0, TierRookie},
		{1, TierRookie},
		{10, TierRookie}, // boundary stays Rookie
		{11, TierPro},
		{30, TierPro}, // boundary stays Pro
		{31, TierLegend},
		{100, TierLegend},
	}

	for _, tt := range tests {
		if got := TierForCount(tt.count); got != tt.want {
			t.Errorf("TierForCount(%d) = %s, want %s", tt.count, got, tt.want)
		}
	}
}

func TestTierPercent(t *testing.T) {
	tests := []struct {
		tier Tier
		want float64
	}{
		{TierRookie, 0.05},
		{TierPro, 0.07},
		{TierLegend, 0.10},
		{Tier(""), 0.05}, // unset level behaves like Rookie
	}

	for _, tt := range tests {
		if got := tt.tier.Percent(); got != tt.want {
			t.Errorf("%s.Percent() = %v, want %v", tt.tier, got, tt.want)
		}
	}
}

func TestLoyaltyCashback(t *testing.T) {
	if TierRookie.LoyaltyCashback() {
		t.Error("Rookie renewal must not earn cashback")
	}
	if !TierPro.LoyaltyCashback() || !TierLegend.LoyaltyCashback() {
		t.Error("Pro and Legend renewals must earn cashback")
	}
}
