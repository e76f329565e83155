package service

import (
	"fmt"
	"time"

	"github.com/refwallet-next/internal/config"
	"github.com/refwallet-next/internal/constants"
	"github.com/refwallet-next/internal/models"
	"github.com/refwallet-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PlanService 套餐升级与续费服务
type PlanService struct {
	userRepo        repository.UserRepository
	purchaseRepo    repository.PlanPurchaseRepository
	commissionRepo  repository.CommissionRepository
	catalog         *PlanCatalog
	referralSvc     *ReferralService
	walletSvc       *WalletService
	notificationSvc *NotificationService
	rewardSvc       *RewardService
	maintenanceCfg  config.MaintenanceConfig
}

// EligibilityResult 升级资格查询结果
type EligibilityResult struct {
	Plan          string `json:"plan"`
	Eligible      bool   `json:"eligible"`
	RequiredPlan  string `json:"required_plan,omitempty"`
	RequiredCount int    `json:"required_count,omitempty"`
	CurrentCount  int64  `json:"current_count"`
}

// UpgradeResult 升级结果
type UpgradeResult struct {
	User     *models.User         `json:"user"`
	Purchase *models.PlanPurchase `json:"purchase"`
	Shares   int                  `json:"shares"`
}

// PlanStatus 套餐状态
type PlanStatus struct {
	CurrentPlan   string       `json:"current_plan"`
	CycleStart    *time.Time   `json:"cycle_start,omitempty"`
	DaysPassed    int          `json:"days_passed"`
	DaysUntilDue  int          `json:"days_until_due"`
	NextFee       models.Money `json:"next_fee"`
	WalletBalance models.Money `json:"wallet_balance"`
}

// NewPlanService 创建套餐服务
func NewPlanService(
	userRepo repository.UserRepository,
	purchaseRepo repository.PlanPurchaseRepository,
	commissionRepo repository.CommissionRepository,
	catalog *PlanCatalog,
	referralSvc *ReferralService,
	walletSvc *WalletService,
	notificationSvc *NotificationService,
	rewardSvc *RewardService,
	maintenanceCfg config.MaintenanceConfig,
) *PlanService {
	return &PlanService{
		userRepo:        userRepo,
		purchaseRepo:    purchaseRepo,
		commissionRepo:  commissionRepo,
		catalog:         catalog,
		referralSvc:     referralSvc,
		walletSvc:       walletSvc,
		notificationSvc: notificationSvc,
		rewardSvc:       rewardSvc,
		maintenanceCfg:  maintenanceCfg,
	}
}

// Eligibility 查询升级资格：直推中等级不低于门槛的人数须达标
func (s *PlanService) Eligibility(userID uint, planName string) (*EligibilityResult, error) {
	plan, ok := s.catalog.NormalizePlan(planName)
	if !ok {
		return nil, ErrPlanUnknown
	}
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if plan == constants.PlanRenew {
		return &EligibilityResult{
			Plan:     plan,
			Eligible: user.CurrentPlan != constants.PlanBronze,
		}, nil
	}
	if !s.catalog.IsPaidPlan(plan) {
		return nil, ErrPlanNotPurchasable
	}

	rule, gated := s.catalog.RuleOf(plan)
	if !gated {
		return &EligibilityResult{Plan: plan, Eligible: true}, nil
	}
	count, err := s.userRepo.CountDirectReferralsAtOrAbove(user.ReferralCode, s.catalog.PlansAtOrAbove(rule.Plan))
	if err != nil {
		return nil, err
	}
	return &EligibilityResult{
		Plan:          plan,
		Eligible:      count >= int64(rule.Count),
		RequiredPlan:  rule.Plan,
		RequiredCount: rule.Count,
		CurrentCount:  count,
	}, nil
}

// Upgrade 购买或续费套餐：同步扣款并完成分配
//
// 扣款金额为套餐价加一次性维护费（价格 × 费率）；余额不足时整单拒绝，不产生任何变更。
func (s *PlanService) Upgrade(userID uint, planName string) (*UpgradeResult, error) {
	plan, ok := s.catalog.NormalizePlan(planName)
	if !ok {
		return nil, ErrPlanUnknown
	}
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	isRenew := plan == constants.PlanRenew
	target := plan
	if isRenew {
		if user.CurrentPlan == constants.PlanBronze {
			return nil, ErrPlanRenewWithoutPlan
		}
		target = user.CurrentPlan
	} else {
		if !s.catalog.IsPaidPlan(target) {
			return nil, ErrPlanNotPurchasable
		}
		if target == user.CurrentPlan {
			return nil, ErrPlanAlreadyOwned
		}
		eligibility, err := s.Eligibility(userID, target)
		if err != nil {
			return nil, err
		}
		if !eligibility.Eligible {
			return nil, ErrPlanNotEligible
		}
	}

	price, ok := s.catalog.PriceOf(target)
	if !ok {
		return nil, ErrPlanNotPurchasable
	}
	fee := s.catalog.MaintenanceFee(price)
	total := price.Add(fee).Round(2)

	result := &UpgradeResult{}
	if err := s.userRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.userRepo.WithTx(tx)
		locked, err := repo.GetByIDForUpdate(userID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrUserNotFound
		}
		if !isRenew && locked.CurrentPlan == target {
			return ErrPlanAlreadyOwned
		}
		if locked.WalletBalance.Decimal.LessThan(total) {
			return ErrWalletInsufficientBalance
		}

		now := time.Now()
		reference := fmt.Sprintf("plan:purchase:%d:%d", locked.ID, now.UnixNano())
		previousPlan := locked.CurrentPlan

		debited, _, err := s.walletSvc.ChangeBalanceInTx(tx, WalletChangeInput{
			UserID:    locked.ID,
			Delta:     total.Neg(),
			TxnType:   constants.WalletTxnTypePlanPurchase,
			Reference: reference,
			Remark:    fmt.Sprintf("购买 %s 套餐", target),
		})
		if err != nil {
			return err
		}
		locked.WalletBalance = debited.WalletBalance

		updates := map[string]interface{}{
			"plan_cycle_start": now,
			"updated_at":       now,
		}
		if !isRenew {
			updates["current_plan"] = target
		}
		if err := tx.Model(&models.User{}).Where("id = ?", locked.ID).Updates(updates).Error; err != nil {
			return ErrUserUpdateFailed
		}
		locked.CurrentPlan = target
		locked.PlanCycleStart = &now
		locked.UpdatedAt = now

		purchase := &models.PlanPurchase{
			UserID:    locked.ID,
			Plan:      target,
			Price:     models.NewMoneyFromDecimal(price),
			FeeAmount: models.NewMoneyFromDecimal(fee),
			TotalPaid: models.NewMoneyFromDecimal(total),
			Reference: reference,
			CreatedAt: now,
		}
		if err := s.purchaseRepo.WithTx(tx).Create(purchase); err != nil {
			return ErrPlanPurchaseCreateFailed
		}

		purchaseMsg := fmt.Sprintf("已购买 %s 套餐，支付 %s（含维护费 %s）。", target, total.StringFixed(2), fee.StringFixed(2))
		if _, _, err := s.notificationSvc.NotifyInTx(tx, locked.ID, constants.NotificationKindInfo,
			purchaseMsg, "notify:"+reference); err != nil {
			return err
		}

		shares, err := s.distributePurchase(tx, locked, price, fee, reference)
		if err != nil {
			return err
		}

		// 直推首次达到 Gold 1 时触发推荐人的团队里程碑
		if !isRenew && target == constants.PlanGold1 &&
			s.catalog.RankOf(previousPlan) < s.catalog.RankOf(constants.PlanGold1) &&
			locked.ParentReferralCode != nil {
			if err := s.rewardSvc.HandleGold1PromotionInTx(tx, *locked.ParentReferralCode); err != nil {
				return err
			}
		}

		result.User = locked
		result.Purchase = purchase
		result.Shares = shares
		return nil
	}); err != nil {
		return nil, err
	}
	return result, nil
}

// distributePurchase 升级分配：一级直推奖励（套餐价 × 奖励率）加逐级维护费分成
func (s *PlanService) distributePurchase(tx *gorm.DB, buyer *models.User, price, fee decimal.Decimal, reference string) (int, error) {
	uplines, err := s.referralSvc.UplineChainTx(tx, buyer, constants.MaxUplineLevels)
	if err != nil {
		return 0, err
	}
	percents := s.catalog.LevelPercents()
	shares := 0
	for i, upline := range uplines {
		level := i + 1
		amount := s.catalog.LevelShare(fee, level)
		kind := constants.CommissionKindLevelCommission
		base := fee
		rate := percents[i]
		if level == 1 {
			bonus := s.catalog.DirectBonus(price)
			amount = amount.Add(bonus).Round(2)
			kind = constants.CommissionKindDirectBonus
			base = price.Add(fee).Round(2)
		}
		if amount.LessThanOrEqual(decimal.Zero) {
			continue
		}
		shareRef := fmt.Sprintf("%s:l%d", reference, level)
		if _, _, err := s.walletSvc.ChangeBalanceInTx(tx, WalletChangeInput{
			UserID:    upline.ID,
			Delta:     amount,
			TxnType:   constants.WalletTxnTypeCommission,
			Reference: shareRef,
			Remark:    fmt.Sprintf("下级购买套餐，第 %d 级佣金", level),
		}); err != nil {
			return shares, err
		}
		event := &models.CommissionEvent{
			UserID:       upline.ID,
			SourceUserID: buyer.ID,
			Level:        level,
			Kind:         kind,
			BaseAmount:   models.NewMoneyFromDecimal(base),
			RatePercent:  models.NewMoneyFromDecimal(rate),
			Amount:       models.NewMoneyFromDecimal(amount),
			Reference:    shareRef,
			CreatedAt:    time.Now(),
		}
		if err := s.commissionRepo.WithTx(tx).CreateEvent(event); err != nil {
			if !isUniqueViolation(err) {
				return shares, ErrCommissionEventCreateFailed
			}
		}
		incomeMsg := fmt.Sprintf("收到下级购买套餐佣金 %s（第 %d 级）。", amount.StringFixed(2), level)
		if _, _, err := s.notificationSvc.NotifyInTx(tx, upline.ID, constants.NotificationKindIncome,
			incomeMsg, "notify:"+shareRef); err != nil {
			return shares, err
		}
		shares++
	}
	return shares, nil
}

// Status 查询套餐状态
func (s *PlanService) Status(userID uint) (*PlanStatus, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	status := &PlanStatus{
		CurrentPlan:   user.CurrentPlan,
		CycleStart:    user.PlanCycleStart,
		WalletBalance: user.WalletBalance,
	}
	if user.PlanCycleStart != nil {
		status.DaysPassed = cycleDays(time.Now(), *user.PlanCycleStart)
		dueDay := s.maintenanceCfg.DueDay
		if dueDay <= 0 {
			dueDay = 30
		}
		status.DaysUntilDue = dueDay - status.DaysPassed
		if price, ok := s.catalog.PriceOf(user.CurrentPlan); ok {
			status.NextFee = models.NewMoneyFromDecimal(s.catalog.MaintenanceFee(price))
		}
	}
	return status, nil
}

// ListPurchases 查询购买记录
func (s *PlanService) ListPurchases(filter repository.PlanPurchaseListFilter) ([]models.PlanPurchase, int64, error) {
	return s.purchaseRepo.List(filter)
}
