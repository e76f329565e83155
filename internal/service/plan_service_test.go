package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/refwallet-next/internal/constants"
	"github.com/refwallet-next/internal/models"
)

func TestUpgradeSilverDebitsAndRewardsSponsor(t *testing.T) {
	env := newTestEnv(t)
	sponsor := env.createUser(t, "sponsor@example.com", "SPONSOR1", nil, constants.PlanBronze, 0, nil)
	buyer := env.createUser(t, "buyer@example.com", "BUYER001", &sponsor.ReferralCode, constants.PlanBronze, 100, nil)

	result, err := env.planSvc.Upgrade(buyer.ID, "silver")
	if err != nil {
		t.Fatalf("upgrade failed: %v", err)
	}
	if result.Purchase == nil || result.Purchase.Plan != constants.PlanSilver {
		t.Fatalf("purchase record missing or wrong plan: %+v", result.Purchase)
	}
	// 总支付 = 价格 60 + 维护费 6
	if !result.Purchase.TotalPaid.Decimal.Equal(mustDecimal(t, "66")) {
		t.Fatalf("total paid want 66 got %s", result.Purchase.TotalPaid)
	}
	if !env.balanceOf(t, buyer.ID).Equal(mustDecimal(t, "34")) {
		t.Fatalf("buyer balance want 34 got %s", env.balanceOf(t, buyer.ID))
	}

	reloaded := env.reloadUser(t, buyer.ID)
	if reloaded.CurrentPlan != constants.PlanSilver {
		t.Fatalf("plan want Silver got %s", reloaded.CurrentPlan)
	}
	if reloaded.PlanCycleStart == nil {
		t.Fatalf("cycle start must be set after purchase")
	}

	// 一级直推：维护费分成 6×30% = 1.80，直推奖励 60×10% = 6.00
	if !env.balanceOf(t, sponsor.ID).Equal(mustDecimal(t, "7.8")) {
		t.Fatalf("sponsor reward want 7.8 got %s", env.balanceOf(t, sponsor.ID))
	}
	var event models.CommissionEvent
	if err := env.db.Where("user_id = ? AND source_user_id = ?", sponsor.ID, buyer.ID).First(&event).Error; err != nil {
		t.Fatalf("commission event missing: %v", err)
	}
	if event.Kind != constants.CommissionKindDirectBonus || event.Level != 1 {
		t.Fatalf("event want level1 direct_bonus got level=%d kind=%s", event.Level, event.Kind)
	}
}

func TestUpgradeInsufficientBalanceLeavesNoTrace(t *testing.T) {
	env := newTestEnv(t)
	buyer := env.createUser(t, "poor@example.com", "POOR0001", nil, constants.PlanBronze, 50, nil)

	_, err := env.planSvc.Upgrade(buyer.ID, constants.PlanSilver)
	if !errors.Is(err, ErrWalletInsufficientBalance) {
		t.Fatalf("want ErrWalletInsufficientBalance got %v", err)
	}

	reloaded := env.reloadUser(t, buyer.ID)
	if reloaded.CurrentPlan != constants.PlanBronze {
		t.Fatalf("plan must stay Bronze, got %s", reloaded.CurrentPlan)
	}
	if reloaded.PlanCycleStart != nil {
		t.Fatalf("cycle start must stay nil")
	}
	if !reloaded.WalletBalance.Decimal.Equal(mustDecimal(t, "50")) {
		t.Fatalf("balance must stay 50, got %s", reloaded.WalletBalance)
	}
	if got := env.countTransactions(t, buyer.ID); got != 0 {
		t.Fatalf("transactions want 0 got %d", got)
	}
	var purchases int64
	if err := env.db.Model(&models.PlanPurchase{}).Where("user_id = ?", buyer.ID).Count(&purchases).Error; err != nil {
		t.Fatalf("count purchases failed: %v", err)
	}
	if purchases != 0 {
		t.Fatalf("purchases want 0 got %d", purchases)
	}
}

func TestUpgradeSamePlanBlocked(t *testing.T) {
	env := newTestEnv(t)
	buyer := env.createUser(t, "owned@example.com", "OWNED001", nil, constants.PlanSilver, 500, daysAgo(1))

	if _, err := env.planSvc.Upgrade(buyer.ID, constants.PlanSilver); !errors.Is(err, ErrPlanAlreadyOwned) {
		t.Fatalf("want ErrPlanAlreadyOwned got %v", err)
	}
}

func TestUpgradeUnknownAndUnpurchasablePlans(t *testing.T) {
	env := newTestEnv(t)
	buyer := env.createUser(t, "odd@example.com", "ODD00001", nil, constants.PlanBronze, 500, nil)

	if _, err := env.planSvc.Upgrade(buyer.ID, "Platinum"); !errors.Is(err, ErrPlanUnknown) {
		t.Fatalf("unknown plan want ErrPlanUnknown got %v", err)
	}
	if _, err := env.planSvc.Upgrade(buyer.ID, constants.PlanBronze); !errors.Is(err, ErrPlanNotPurchasable) {
		t.Fatalf("bronze purchase want ErrPlanNotPurchasable got %v", err)
	}
}

func TestUpgradeEligibilityGate(t *testing.T) {
	env := newTestEnv(t)
	buyer := env.createUser(t, "gated@example.com", "GATED001", nil, constants.PlanSilver, 1000, daysAgo(1))

	// Gold 1 需要 5 个 Silver 及以上直推
	if _, err := env.planSvc.Upgrade(buyer.ID, constants.PlanGold1); !errors.Is(err, ErrPlanNotEligible) {
		t.Fatalf("want ErrPlanNotEligible got %v", err)
	}

	for i := 0; i < 5; i++ {
		env.createUser(t, fmt.Sprintf("ref%d@example.com", i), fmt.Sprintf("GATEDR%02d", i),
			&buyer.ReferralCode, constants.PlanSilver, 0, daysAgo(1))
	}

	eligibility, err := env.planSvc.Eligibility(buyer.ID, constants.PlanGold1)
	if err != nil {
		t.Fatalf("eligibility failed: %v", err)
	}
	if !eligibility.Eligible || eligibility.CurrentCount != 5 || eligibility.RequiredCount != 5 {
		t.Fatalf("eligibility unexpected: %+v", eligibility)
	}

	result, err := env.planSvc.Upgrade(buyer.ID, constants.PlanGold1)
	if err != nil {
		t.Fatalf("upgrade failed: %v", err)
	}
	// 返回的用户须反映本次升级后的状态，而不是加锁时的旧行
	if result.User.CurrentPlan != constants.PlanGold1 {
		t.Fatalf("plan want Gold 1 got %s", result.User.CurrentPlan)
	}
	if result.User.PlanCycleStart == nil {
		t.Fatalf("returned user must carry the new cycle start")
	}
	if !result.User.WalletBalance.Decimal.Equal(mustDecimal(t, "890")) {
		t.Fatalf("returned balance want 890 got %s", result.User.WalletBalance)
	}
	// 110 = 100 + 10% 维护费
	if !env.balanceOf(t, buyer.ID).Equal(mustDecimal(t, "890")) {
		t.Fatalf("balance want 890 got %s", env.balanceOf(t, buyer.ID))
	}
}

func TestUpgradeEligibilityCountsOnlyQualifyingTiers(t *testing.T) {
	env := newTestEnv(t)
	buyer := env.createUser(t, "mixed@example.com", "MIXED001", nil, constants.PlanSilver, 1000, daysAgo(1))

	// 6 个直推，但只有 3 个达到 Silver 及以上
	for i := 0; i < 3; i++ {
		env.createUser(t, fmt.Sprintf("mixs%d@example.com", i), fmt.Sprintf("MIXEDS%02d", i),
			&buyer.ReferralCode, constants.PlanSilver, 0, daysAgo(1))
	}
	for i := 0; i < 3; i++ {
		env.createUser(t, fmt.Sprintf("mixb%d@example.com", i), fmt.Sprintf("MIXEDB%02d", i),
			&buyer.ReferralCode, constants.PlanBronze, 0, nil)
	}

	eligibility, err := env.planSvc.Eligibility(buyer.ID, constants.PlanGold1)
	if err != nil {
		t.Fatalf("eligibility failed: %v", err)
	}
	if eligibility.Eligible || eligibility.CurrentCount != 3 || eligibility.RequiredCount != 5 {
		t.Fatalf("mixed-tier eligibility unexpected: %+v", eligibility)
	}
	if _, err := env.planSvc.Upgrade(buyer.ID, constants.PlanGold1); !errors.Is(err, ErrPlanNotEligible) {
		t.Fatalf("want ErrPlanNotEligible got %v", err)
	}
}

func TestRenewKeepsPlanAndResetsCycle(t *testing.T) {
	env := newTestEnv(t)
	bronze := env.createUser(t, "norenew@example.com", "NOREN001", nil, constants.PlanBronze, 500, nil)
	if _, err := env.planSvc.Upgrade(bronze.ID, constants.PlanRenew); !errors.Is(err, ErrPlanRenewWithoutPlan) {
		t.Fatalf("bronze renew want ErrPlanRenewWithoutPlan got %v", err)
	}

	silver := env.createUser(t, "renew@example.com", "RENEW001", nil, constants.PlanSilver, 200, daysAgo(20))
	result, err := env.planSvc.Upgrade(silver.ID, "renew")
	if err != nil {
		t.Fatalf("renew failed: %v", err)
	}
	if result.Purchase.Plan != constants.PlanSilver {
		t.Fatalf("renew purchase plan want Silver got %s", result.Purchase.Plan)
	}
	reloaded := env.reloadUser(t, silver.ID)
	if reloaded.CurrentPlan != constants.PlanSilver {
		t.Fatalf("renew must keep plan, got %s", reloaded.CurrentPlan)
	}
	if reloaded.PlanCycleStart == nil || cycleDays(result.Purchase.CreatedAt, *reloaded.PlanCycleStart) != 0 {
		t.Fatalf("renew must reset cycle start, got %v", reloaded.PlanCycleStart)
	}
	if !reloaded.WalletBalance.Decimal.Equal(mustDecimal(t, "134")) {
		t.Fatalf("balance want 134 got %s", reloaded.WalletBalance)
	}
}

func TestUpgradeToGold1BumpsSponsorMilestoneCounter(t *testing.T) {
	env := newTestEnv(t)
	sponsor := env.createUser(t, "team@example.com", "TEAM0001", nil, constants.PlanBronze, 0, nil)
	buyer := env.createUser(t, "climber@example.com", "CLIMB001", &sponsor.ReferralCode, constants.PlanSilver, 1000, daysAgo(1))
	for i := 0; i < 5; i++ {
		env.createUser(t, fmt.Sprintf("cref%d@example.com", i), fmt.Sprintf("CLIMBR%02d", i),
			&buyer.ReferralCode, constants.PlanSilver, 0, daysAgo(1))
	}

	if _, err := env.planSvc.Upgrade(buyer.ID, constants.PlanGold1); err != nil {
		t.Fatalf("upgrade failed: %v", err)
	}
	if got := env.reloadUser(t, sponsor.ID).Gold1Count; got != 1 {
		t.Fatalf("sponsor gold1 count want 1 got %d", got)
	}

	// 续费不重复累加
	if _, err := env.planSvc.Upgrade(buyer.ID, constants.PlanRenew); err != nil {
		t.Fatalf("renew failed: %v", err)
	}
	if got := env.reloadUser(t, sponsor.ID).Gold1Count; got != 1 {
		t.Fatalf("renew must not bump counter, got %d", got)
	}
}

func TestPlanStatusReflectsCycle(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "status@example.com", "STATUS01", nil, constants.PlanGold1, 77, daysAgo(12))

	status, err := env.planSvc.Status(user.ID)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if status.CurrentPlan != constants.PlanGold1 {
		t.Fatalf("plan want Gold 1 got %s", status.CurrentPlan)
	}
	if status.DaysPassed != 12 || status.DaysUntilDue != 18 {
		t.Fatalf("days want 12/18 got %d/%d", status.DaysPassed, status.DaysUntilDue)
	}
	if !status.NextFee.Decimal.Equal(mustDecimal(t, "10")) {
		t.Fatalf("next fee want 10 got %s", status.NextFee)
	}

	bronze := env.createUser(t, "status-b@example.com", "STATUS02", nil, constants.PlanBronze, 0, nil)
	bronzeStatus, err := env.planSvc.Status(bronze.ID)
	if err != nil {
		t.Fatalf("bronze status failed: %v", err)
	}
	if bronzeStatus.CycleStart != nil || bronzeStatus.DaysPassed != 0 {
		t.Fatalf("bronze status must have no cycle: %+v", bronzeStatus)
	}
}
