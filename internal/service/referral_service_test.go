package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/refwallet-next/internal/constants"
)

func TestReferralApplyBindsOnce(t *testing.T) {
	env := newTestEnv(t)
	parent := env.createUser(t, "parent@example.com", "PARENT01", nil, constants.PlanBronze, 0, nil)
	child := env.createUser(t, "child@example.com", "CHILD001", nil, constants.PlanBronze, 0, nil)

	bound, err := env.referralSvc.Apply(child.ID, "parent01") // 大小写不敏感
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if bound.ParentReferralCode == nil || *bound.ParentReferralCode != parent.ReferralCode {
		t.Fatalf("parent code not bound: %v", bound.ParentReferralCode)
	}
	if got := env.reloadUser(t, parent.ID).DirectReferralCount; got != 1 {
		t.Fatalf("direct referral count want 1 got %d", got)
	}

	// 一次性绑定，不可更换
	other := env.createUser(t, "other@example.com", "OTHER001", nil, constants.PlanBronze, 0, nil)
	_ = other
	if _, err := env.referralSvc.Apply(child.ID, "OTHER001"); !errors.Is(err, ErrReferralAlreadyBound) {
		t.Fatalf("rebind want ErrReferralAlreadyBound got %v", err)
	}
	if got := env.reloadUser(t, parent.ID).DirectReferralCount; got != 1 {
		t.Fatalf("count must stay 1 after rejected rebind, got %d", got)
	}
}

func TestReferralApplyRejectsSelfAndUnknown(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "self@example.com", "SELFCODE", nil, constants.PlanBronze, 0, nil)

	if _, err := env.referralSvc.Apply(user.ID, "SELFCODE"); !errors.Is(err, ErrReferralSelfApply) {
		t.Fatalf("self apply want ErrReferralSelfApply got %v", err)
	}
	if _, err := env.referralSvc.Apply(user.ID, "NOPE9999"); !errors.Is(err, ErrReferralCodeNotFound) {
		t.Fatalf("unknown code want ErrReferralCodeNotFound got %v", err)
	}
	if _, err := env.referralSvc.Apply(user.ID, "   "); !errors.Is(err, ErrReferralCodeNotFound) {
		t.Fatalf("blank code want ErrReferralCodeNotFound got %v", err)
	}
}

func TestReferralSummaryCountsByPlan(t *testing.T) {
	env := newTestEnv(t)
	root := env.createUser(t, "root@example.com", "ROOT0001", nil, constants.PlanBronze, 0, nil)
	env.createUser(t, "m1@example.com", "MEMB0001", &root.ReferralCode, constants.PlanSilver, 0, daysAgo(1))
	env.createUser(t, "m2@example.com", "MEMB0002", &root.ReferralCode, constants.PlanSilver, 0, daysAgo(1))
	env.createUser(t, "m3@example.com", "MEMB0003", &root.ReferralCode, constants.PlanBronze, 0, nil)

	summary, err := env.referralSvc.Summary(root.ID)
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if summary.Total != 3 {
		t.Fatalf("total want 3 got %d", summary.Total)
	}
	if summary.ByPlan[constants.PlanSilver] != 2 || summary.ByPlan[constants.PlanBronze] != 1 {
		t.Fatalf("by_plan unexpected: %v", summary.ByPlan)
	}
	if len(summary.Members) != 3 {
		t.Fatalf("members want 3 got %d", len(summary.Members))
	}
}

func TestUplineChainCapsAtTenLevels(t *testing.T) {
	env := newTestEnv(t)
	// 自顶向下建 13 人链
	var parentCode *string
	users := make([]uint, 0, 13)
	for i := 0; i < 13; i++ {
		code := fmt.Sprintf("CHAIN%03d", i)
		u := env.createUser(t, fmt.Sprintf("chain%d@example.com", i), code, parentCode, constants.PlanBronze, 0, nil)
		users = append(users, u.ID)
		c := code
		parentCode = &c
	}

	bottom := env.reloadUser(t, users[len(users)-1])
	chain, err := env.referralSvc.UplineChain(bottom, constants.MaxUplineLevels)
	if err != nil {
		t.Fatalf("upline chain failed: %v", err)
	}
	if len(chain) != constants.MaxUplineLevels {
		t.Fatalf("chain length want %d got %d", constants.MaxUplineLevels, len(chain))
	}
	// 第 1 级是直接上级
	if chain[0].ReferralCode != "CHAIN011" {
		t.Fatalf("level1 want CHAIN011 got %s", chain[0].ReferralCode)
	}
}

func TestUplineChainStopsOnBrokenLink(t *testing.T) {
	env := newTestEnv(t)
	ghost := "GHOST001" // 不存在的上级码
	mid := env.createUser(t, "mid@example.com", "MIDCODE1", &ghost, constants.PlanBronze, 0, nil)
	leaf := env.createUser(t, "leaf@example.com", "LEAFCOD1", &mid.ReferralCode, constants.PlanBronze, 0, nil)

	chain, err := env.referralSvc.UplineChain(leaf, constants.MaxUplineLevels)
	if err != nil {
		t.Fatalf("upline chain failed: %v", err)
	}
	if len(chain) != 1 {
		t.Fatalf("broken chain length want 1 got %d", len(chain))
	}
}

func TestGenerateCodeShape(t *testing.T) {
	env := newTestEnv(t)
	code, err := env.referralSvc.GenerateCode()
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if len(code) != referralCodeLength {
		t.Fatalf("code length want %d got %d (%s)", referralCodeLength, len(code), code)
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < '2' || r > '9') {
			t.Fatalf("unexpected rune %q in code %s", r, code)
		}
	}
}
