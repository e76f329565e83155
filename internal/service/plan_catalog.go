package service

import (
	"sort"
	"strings"

	"github.com/refwallet-next/internal/config"
	"github.com/refwallet-next/internal/constants"

	"github.com/shopspring/decimal"
)

// planRanks 等级序（资格比较与升降级判断共用）
var planRanks = map[string]int{
	constants.PlanBronze:   0,
	constants.PlanSilver:   1,
	constants.PlanGold1:    2,
	constants.PlanGold2:    3,
	constants.PlanPremium1: 4,
	constants.PlanPremium2: 5,
	constants.PlanPremium3: 6,
	constants.PlanPremium4: 7,
	constants.PlanPremium5: 8,
}

// planPrices 付费等级价格表（升级扣款与维护费共用唯一一张表）
var planPrices = map[string]decimal.Decimal{
	constants.PlanSilver:   decimal.NewFromInt(60),
	constants.PlanGold1:    decimal.NewFromInt(100),
	constants.PlanGold2:    decimal.NewFromInt(200),
	constants.PlanPremium1: decimal.NewFromInt(500),
	constants.PlanPremium2: decimal.NewFromInt(1000),
	constants.PlanPremium3: decimal.NewFromInt(2000),
	constants.PlanPremium4: decimal.NewFromInt(5000),
	constants.PlanPremium5: decimal.NewFromInt(10000),
}

// EligibilityRule 升级资格规则：直推中当前等级不低于 Plan 的人数须达到 Count
type EligibilityRule struct {
	Plan  string `json:"plan"`
	Count int    `json:"count"`
}

// planEligibilityRules 各等级的升级门槛；Silver 与 Renew 不设门槛
var planEligibilityRules = map[string]EligibilityRule{
	constants.PlanGold1:    {Plan: constants.PlanSilver, Count: 5},
	constants.PlanGold2:    {Plan: constants.PlanSilver, Count: 10},
	constants.PlanPremium1: {Plan: constants.PlanGold1, Count: 25},
	constants.PlanPremium2: {Plan: constants.PlanGold1, Count: 50},
	constants.PlanPremium3: {Plan: constants.PlanGold1, Count: 100},
	constants.PlanPremium4: {Plan: constants.PlanGold1, Count: 200},
	constants.PlanPremium5: {Plan: constants.PlanGold1, Count: 500},
}

// PlanCatalog 套餐目录：价格、等级序、资格规则与分配比例的唯一出处
type PlanCatalog struct {
	feePercent         decimal.Decimal
	directBonusPercent decimal.Decimal
	levelPercents      []decimal.Decimal
}

// NewPlanCatalog 创建套餐目录
func NewPlanCatalog(maintenance config.MaintenanceConfig, commission config.CommissionConfig) *PlanCatalog {
	feePercent := decimal.NewFromFloat(maintenance.FeePercent)
	if feePercent.LessThanOrEqual(decimal.Zero) {
		feePercent = decimal.NewFromInt(10)
	}
	bonusPercent := decimal.NewFromFloat(commission.DirectBonusPercent)
	if bonusPercent.LessThan(decimal.Zero) {
		bonusPercent = decimal.Zero
	}
	percents := commission.LevelPercents
	if len(percents) == 0 {
		percents = []float64{30, 20, 15, 10, 5, 3, 2, 1, 0.5, 0.25}
	}
	if len(percents) > constants.MaxUplineLevels {
		percents = percents[:constants.MaxUplineLevels]
	}
	levels := make([]decimal.Decimal, 0, len(percents))
	for _, p := range percents {
		levels = append(levels, decimal.NewFromFloat(p))
	}
	return &PlanCatalog{
		feePercent:         feePercent,
		directBonusPercent: bonusPercent,
		levelPercents:      levels,
	}
}

// NormalizePlan 规范化等级名称（大小写不敏感）
func (c *PlanCatalog) NormalizePlan(plan string) (string, bool) {
	trimmed := strings.TrimSpace(plan)
	if strings.EqualFold(trimmed, constants.PlanRenew) {
		return constants.PlanRenew, true
	}
	for name := range planRanks {
		if strings.EqualFold(trimmed, name) {
			return name, true
		}
	}
	return "", false
}

// PriceOf 查询付费等级价格；Bronze 等非卖品返回 false
func (c *PlanCatalog) PriceOf(plan string) (decimal.Decimal, bool) {
	price, ok := planPrices[plan]
	return price, ok
}

// RankOf 查询等级序；未知等级按 Bronze 处理
func (c *PlanCatalog) RankOf(plan string) int {
	if rank, ok := planRanks[plan]; ok {
		return rank
	}
	return 0
}

// IsPaidPlan 判断是否为付费等级
func (c *PlanCatalog) IsPaidPlan(plan string) bool {
	_, ok := planPrices[plan]
	return ok
}

// RuleOf 查询升级资格规则；无门槛的等级返回 false
func (c *PlanCatalog) RuleOf(plan string) (EligibilityRule, bool) {
	rule, ok := planEligibilityRules[plan]
	return rule, ok
}

// PlansAtOrAbove 列出等级序不低于给定等级的所有等级名
func (c *PlanCatalog) PlansAtOrAbove(plan string) []string {
	min := c.RankOf(plan)
	result := make([]string, 0, len(planRanks))
	for name, rank := range planRanks {
		if rank >= min {
			result = append(result, name)
		}
	}
	return result
}

// MaintenanceFee 计算维护费（套餐价 × 费率，保留 2 位）
func (c *PlanCatalog) MaintenanceFee(price decimal.Decimal) decimal.Decimal {
	return price.Mul(c.feePercent).Div(decimal.NewFromInt(100)).Round(2)
}

// DirectBonus 计算升级时一级直推奖励（套餐价 × 奖励率，保留 2 位）
func (c *PlanCatalog) DirectBonus(price decimal.Decimal) decimal.Decimal {
	return price.Mul(c.directBonusPercent).Div(decimal.NewFromInt(100)).Round(2)
}

// LevelPercents 返回 1..N 级分配比例（百分比）
func (c *PlanCatalog) LevelPercents() []decimal.Decimal {
	return c.levelPercents
}

// LevelShare 计算某一级应得份额（基数 × 比例，独立保留 2 位）
func (c *PlanCatalog) LevelShare(base decimal.Decimal, level int) decimal.Decimal {
	if level < 1 || level > len(c.levelPercents) {
		return decimal.Zero
	}
	return base.Mul(c.levelPercents[level-1]).Div(decimal.NewFromInt(100)).Round(2)
}

// PlanInfo 套餐目录条目
type PlanInfo struct {
	Name           string           `json:"name"`
	Rank           int              `json:"rank"`
	Price          decimal.Decimal  `json:"price"`
	MaintenanceFee decimal.Decimal  `json:"maintenance_fee"`
	Requirement    *EligibilityRule `json:"requirement,omitempty"`
}

// Plans 按等级序列出全部套餐（含免费的 Bronze）
func (c *PlanCatalog) Plans() []PlanInfo {
	items := make([]PlanInfo, 0, len(planRanks))
	for name, rank := range planRanks {
		info := PlanInfo{Name: name, Rank: rank}
		if price, ok := planPrices[name]; ok {
			info.Price = price
			info.MaintenanceFee = c.MaintenanceFee(price)
		}
		if rule, ok := planEligibilityRules[name]; ok {
			r := rule
			info.Requirement = &r
		}
		items = append(items, info)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Rank < items[j].Rank })
	return items
}

// FeePercent 返回维护费率（百分比）
func (c *PlanCatalog) FeePercent() decimal.Decimal {
	return c.feePercent
}
