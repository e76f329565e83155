package service

import (
	"context"
	"testing"
	"time"

	"github.com/refwallet-next/internal/constants"
	"github.com/refwallet-next/internal/models"
)

func TestMaintenanceSkipsFreshCycle(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "fresh@example.com", "CODE0001", nil, constants.PlanSilver, 100, daysAgo(3))

	result, err := env.maintenanceSvc.ProcessUser(context.Background(), user.ID, time.Now())
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if result.Outcome != constants.SettleOutcomeNone {
		t.Fatalf("outcome want none got %s", result.Outcome)
	}
	if got := env.countNotifications(t, user.ID, ""); got != 0 {
		t.Fatalf("notifications want 0 got %d", got)
	}
}

func TestMaintenanceWarnWindowFiresOncePerCycle(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "warn@example.com", "CODE0002", nil, constants.PlanSilver, 100, daysAgo(26))

	result, err := env.maintenanceSvc.ProcessUser(context.Background(), user.ID, time.Now())
	if err != nil {
		t.Fatalf("first process failed: %v", err)
	}
	if result.Outcome != constants.SettleOutcomeWarned {
		t.Fatalf("outcome want warned got %s", result.Outcome)
	}

	// 同一周期重复扫描不再产生新提醒
	again, err := env.maintenanceSvc.ProcessUser(context.Background(), user.ID, time.Now())
	if err != nil {
		t.Fatalf("second process failed: %v", err)
	}
	if again.Outcome != constants.SettleOutcomeNone {
		t.Fatalf("repeat outcome want none got %s", again.Outcome)
	}
	if got := env.countNotifications(t, user.ID, constants.NotificationKindWarning); got != 1 {
		t.Fatalf("warning notifications want 1 got %d", got)
	}
	// 提醒不扣费
	if !env.balanceOf(t, user.ID).Equal(mustDecimal(t, "100")) {
		t.Fatalf("warn must not touch balance, got %s", env.balanceOf(t, user.ID))
	}
}

func TestMaintenanceSettleSufficientDistributesToUplines(t *testing.T) {
	env := newTestEnv(t)
	// 三级推荐链：u3 -> u2 -> u1，payer 挂在 u3 下
	u1 := env.createUser(t, "up1@example.com", "UPCODE01", nil, constants.PlanSilver, 0, daysAgo(1))
	u2 := env.createUser(t, "up2@example.com", "UPCODE02", &u1.ReferralCode, constants.PlanSilver, 0, daysAgo(1))
	u3 := env.createUser(t, "up3@example.com", "UPCODE03", &u2.ReferralCode, constants.PlanSilver, 0, daysAgo(1))
	payer := env.createUser(t, "payer@example.com", "PAYCODE1", &u3.ReferralCode, constants.PlanGold1, 50, daysAgo(31))

	result, err := env.maintenanceSvc.ProcessUser(context.Background(), payer.ID, time.Now())
	if err != nil {
		t.Fatalf("settle failed: %v", err)
	}
	if result.Outcome != constants.SettleOutcomeSettled {
		t.Fatalf("outcome want settled got %s", result.Outcome)
	}
	// Gold 1 价格 100，维护费 10%
	if !result.Fee.Decimal.Equal(mustDecimal(t, "10")) {
		t.Fatalf("fee want 10 got %s", result.Fee)
	}
	if result.Shares != 3 {
		t.Fatalf("shares want 3 got %d", result.Shares)
	}

	if !env.balanceOf(t, payer.ID).Equal(mustDecimal(t, "40")) {
		t.Fatalf("payer balance want 40 got %s", env.balanceOf(t, payer.ID))
	}
	// 分配比例 30/20/15：一级在链中是 u3
	if !env.balanceOf(t, u3.ID).Equal(mustDecimal(t, "3")) {
		t.Fatalf("level1 share want 3 got %s", env.balanceOf(t, u3.ID))
	}
	if !env.balanceOf(t, u2.ID).Equal(mustDecimal(t, "2")) {
		t.Fatalf("level2 share want 2 got %s", env.balanceOf(t, u2.ID))
	}
	if !env.balanceOf(t, u1.ID).Equal(mustDecimal(t, "1.5")) {
		t.Fatalf("level3 share want 1.5 got %s", env.balanceOf(t, u1.ID))
	}

	// 周期重置：结算后再扫描直接跳过
	reloaded := env.reloadUser(t, payer.ID)
	if reloaded.PlanCycleStart == nil {
		t.Fatalf("cycle start must be reset, got nil")
	}
	if time.Since(*reloaded.PlanCycleStart) > time.Minute {
		t.Fatalf("cycle start should be reset to now, got %v", reloaded.PlanCycleStart)
	}

	var events int64
	if err := env.db.Model(&models.CommissionEvent{}).Where("source_user_id = ?", payer.ID).Count(&events).Error; err != nil {
		t.Fatalf("count events failed: %v", err)
	}
	if events != 3 {
		t.Fatalf("commission events want 3 got %d", events)
	}
	if got := env.countNotifications(t, payer.ID, constants.NotificationKindDeduction); got != 1 {
		t.Fatalf("deduction notifications want 1 got %d", got)
	}
	if got := env.countNotifications(t, u3.ID, constants.NotificationKindIncome); got != 1 {
		t.Fatalf("income notifications want 1 got %d", got)
	}
}

func TestMaintenanceSettleIdempotentByReference(t *testing.T) {
	env := newTestEnv(t)
	upline := env.createUser(t, "idem-up@example.com", "IDEMUP01", nil, constants.PlanSilver, 0, daysAgo(1))
	cycleStart := *daysAgo(31)
	payer := env.createUser(t, "idem@example.com", "IDEMPAY1", &upline.ReferralCode, constants.PlanSilver, 100, &cycleStart)

	if _, err := env.maintenanceSvc.ProcessUser(context.Background(), payer.ID, time.Now()); err != nil {
		t.Fatalf("first settle failed: %v", err)
	}
	afterFirst := env.balanceOf(t, payer.ID)

	// 模拟重复投递：把周期起点改回旧值，同一参考号的结算不会再扣一次
	if err := env.db.Model(&models.User{}).Where("id = ?", payer.ID).
		Update("plan_cycle_start", cycleStart).Error; err != nil {
		t.Fatalf("rewind cycle start failed: %v", err)
	}
	result, err := env.maintenanceSvc.ProcessUser(context.Background(), payer.ID, time.Now())
	if err != nil {
		t.Fatalf("second settle failed: %v", err)
	}
	if result.Outcome != constants.SettleOutcomeNone {
		t.Fatalf("repeat outcome want none got %s", result.Outcome)
	}
	if !env.balanceOf(t, payer.ID).Equal(afterFirst) {
		t.Fatalf("balance changed on repeat settle: %s -> %s", afterFirst, env.balanceOf(t, payer.ID))
	}
	if !env.balanceOf(t, upline.ID).Equal(mustDecimal(t, "1.8")) {
		t.Fatalf("upline share want 1.8 got %s", env.balanceOf(t, upline.ID))
	}
}

func TestMaintenanceSettleInsufficientDowngrades(t *testing.T) {
	env := newTestEnv(t)
	upline := env.createUser(t, "down-up@example.com", "DOWNUP01", nil, constants.PlanSilver, 0, daysAgo(1))
	payer := env.createUser(t, "down@example.com", "DOWNPAY1", &upline.ReferralCode, constants.PlanGold1, 4, daysAgo(32))

	result, err := env.maintenanceSvc.ProcessUser(context.Background(), payer.ID, time.Now())
	if err != nil {
		t.Fatalf("settle failed: %v", err)
	}
	if result.Outcome != constants.SettleOutcomeDowngrade {
		t.Fatalf("outcome want downgraded got %s", result.Outcome)
	}

	reloaded := env.reloadUser(t, payer.ID)
	if reloaded.CurrentPlan != constants.PlanBronze {
		t.Fatalf("plan want Bronze got %s", reloaded.CurrentPlan)
	}
	if reloaded.PlanCycleStart != nil {
		t.Fatalf("cycle start must be cleared on downgrade")
	}
	// 维护费照扣，允许为负
	if !reloaded.WalletBalance.Decimal.Equal(mustDecimal(t, "-6")) {
		t.Fatalf("balance want -6 got %s", reloaded.WalletBalance)
	}

	// 上级无分成，只有提示通知
	if !env.balanceOf(t, upline.ID).Equal(mustDecimal(t, "0")) {
		t.Fatalf("upline must not earn on downgrade, got %s", env.balanceOf(t, upline.ID))
	}
	var events int64
	if err := env.db.Model(&models.CommissionEvent{}).Where("source_user_id = ?", payer.ID).Count(&events).Error; err != nil {
		t.Fatalf("count events failed: %v", err)
	}
	if events != 0 {
		t.Fatalf("commission events want 0 got %d", events)
	}
	if got := env.countNotifications(t, payer.ID, constants.NotificationKindDowngrade); got != 1 {
		t.Fatalf("downgrade notifications want 1 got %d", got)
	}
	if got := env.countNotifications(t, upline.ID, constants.NotificationKindInfo); got != 1 {
		t.Fatalf("no-income notifications want 1 got %d", got)
	}
}

func TestMaintenanceScanOnlyPicksCycleUsers(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "bronze@example.com", "SCAN0001", nil, constants.PlanBronze, 10, nil)
	paid1 := env.createUser(t, "paid1@example.com", "SCAN0002", nil, constants.PlanSilver, 10, daysAgo(5))
	paid2 := env.createUser(t, "paid2@example.com", "SCAN0003", nil, constants.PlanGold1, 10, daysAgo(20))

	var visited []uint
	count, err := env.maintenanceSvc.ScanCycleUsers(func(userID uint) error {
		visited = append(visited, userID)
		return nil
	})
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if count != 2 || len(visited) != 2 {
		t.Fatalf("scan want 2 users got count=%d visited=%v", count, visited)
	}
	if visited[0] != paid1.ID || visited[1] != paid2.ID {
		t.Fatalf("scan order want [%d %d] got %v", paid1.ID, paid2.ID, visited)
	}
}

func TestCycleDays(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		now  time.Time
		want int
	}{
		{start.Add(23 * time.Hour), 0},
		{start.Add(24 * time.Hour), 1},
		{start.Add(30*24*time.Hour - time.Second), 29},
		{start.Add(30 * 24 * time.Hour), 30},
		{start.Add(-time.Hour), 0},
	}
	for _, c := range cases {
		if got := cycleDays(c.now, start); got != c.want {
			t.Fatalf("cycleDays(%v) want %d got %d", c.now, c.want, got)
		}
	}
}
