package service

import (
	"testing"

	"github.com/refwallet-next/internal/config"
	"github.com/refwallet-next/internal/constants"

	"github.com/shopspring/decimal"
)

func newTestCatalog() *PlanCatalog {
	return NewPlanCatalog(
		config.MaintenanceConfig{FeePercent: 10},
		config.CommissionConfig{DirectBonusPercent: 10},
	)
}

func TestNormalizePlanIsCaseInsensitive(t *testing.T) {
	catalog := newTestCatalog()
	cases := map[string]string{
		"silver":    constants.PlanSilver,
		" SILVER ":  constants.PlanSilver,
		"gold 1":    constants.PlanGold1,
		"Premium 5": constants.PlanPremium5,
		"renew":     constants.PlanRenew,
		"bronze":    constants.PlanBronze,
	}
	for input, want := range cases {
		got, ok := catalog.NormalizePlan(input)
		if !ok || got != want {
			t.Fatalf("NormalizePlan(%q) want %q got %q ok=%v", input, want, got, ok)
		}
	}
	if _, ok := catalog.NormalizePlan("Platinum"); ok {
		t.Fatalf("unknown plan must not normalize")
	}
}

func TestPlanPriceTable(t *testing.T) {
	catalog := newTestCatalog()
	cases := map[string]string{
		constants.PlanSilver:   "60",
		constants.PlanGold1:    "100",
		constants.PlanGold2:    "200",
		constants.PlanPremium1: "500",
		constants.PlanPremium2: "1000",
		constants.PlanPremium3: "2000",
		constants.PlanPremium4: "5000",
		constants.PlanPremium5: "10000",
	}
	for plan, want := range cases {
		price, ok := catalog.PriceOf(plan)
		if !ok || !price.Equal(decimal.RequireFromString(want)) {
			t.Fatalf("PriceOf(%s) want %s got %s ok=%v", plan, want, price, ok)
		}
	}
	if _, ok := catalog.PriceOf(constants.PlanBronze); ok {
		t.Fatalf("Bronze must not have a price")
	}
}

func TestLevelShareRoundsIndependently(t *testing.T) {
	catalog := newTestCatalog()
	fee := catalog.MaintenanceFee(decimal.NewFromInt(100))
	if !fee.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("fee want 10 got %s", fee)
	}

	wants := []string{"3", "2", "1.5", "1", "0.5", "0.3", "0.2", "0.1", "0.05", "0.03"}
	for i, want := range wants {
		share := catalog.LevelShare(fee, i+1)
		if !share.Equal(decimal.RequireFromString(want)) {
			t.Fatalf("level %d share want %s got %s", i+1, want, share)
		}
	}
	if !catalog.LevelShare(fee, 11).IsZero() {
		t.Fatalf("level beyond table must be zero")
	}
	if !catalog.LevelShare(fee, 0).IsZero() {
		t.Fatalf("level 0 must be zero")
	}
}

func TestPlansAtOrAbove(t *testing.T) {
	catalog := newTestCatalog()
	plans := catalog.PlansAtOrAbove(constants.PlanGold1)
	want := map[string]bool{
		constants.PlanGold1: true, constants.PlanGold2: true,
		constants.PlanPremium1: true, constants.PlanPremium2: true,
		constants.PlanPremium3: true, constants.PlanPremium4: true,
		constants.PlanPremium5: true,
	}
	if len(plans) != len(want) {
		t.Fatalf("plans at or above Gold 1 want %d got %d (%v)", len(want), len(plans), plans)
	}
	for _, p := range plans {
		if !want[p] {
			t.Fatalf("unexpected plan %s", p)
		}
	}
}

func TestPlansListSortedByRank(t *testing.T) {
	catalog := newTestCatalog()
	plans := catalog.Plans()
	if len(plans) != 9 {
		t.Fatalf("plans want 9 got %d", len(plans))
	}
	if plans[0].Name != constants.PlanBronze || plans[0].Requirement != nil {
		t.Fatalf("first plan must be Bronze without requirement: %+v", plans[0])
	}
	for i := 1; i < len(plans); i++ {
		if plans[i].Rank <= plans[i-1].Rank {
			t.Fatalf("plans not sorted by rank at %d", i)
		}
	}
	last := plans[len(plans)-1]
	if last.Name != constants.PlanPremium5 || !last.MaintenanceFee.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("last plan unexpected: %+v", last)
	}
}
