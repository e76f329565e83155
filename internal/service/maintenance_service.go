package service

import (
	"context"
	"fmt"
	"time"

	"github.com/refwallet-next/internal/config"
	"github.com/refwallet-next/internal/constants"
	"github.com/refwallet-next/internal/logger"
	"github.com/refwallet-next/internal/models"
	"github.com/refwallet-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MaintenanceService 维护费引擎：提醒窗口、到期结算、逐级分配与降级
//
// 扫描任务本身无状态，安全性全部来自结算过程的幂等：
// 每个周期的扣费、分配、通知都以结构化参考号写入，重复执行不会产生副作用。
type MaintenanceService struct {
	userRepo        repository.UserRepository
	walletRepo      repository.WalletRepository
	commissionRepo  repository.CommissionRepository
	catalog         *PlanCatalog
	referralSvc     *ReferralService
	walletSvc       *WalletService
	notificationSvc *NotificationService
	cfg             config.MaintenanceConfig
}

// MaintenanceResult 单用户处理结果
type MaintenanceResult struct {
	UserID     uint         `json:"user_id"`
	Outcome    string       `json:"outcome"`
	DaysPassed int          `json:"days_passed"`
	Fee        models.Money `json:"fee"`
	Shares     int          `json:"shares"`
}

// NewMaintenanceService 创建维护费引擎
func NewMaintenanceService(
	userRepo repository.UserRepository,
	walletRepo repository.WalletRepository,
	commissionRepo repository.CommissionRepository,
	catalog *PlanCatalog,
	referralSvc *ReferralService,
	walletSvc *WalletService,
	notificationSvc *NotificationService,
	cfg config.MaintenanceConfig,
) *MaintenanceService {
	if cfg.WarnStartDay <= 0 {
		cfg.WarnStartDay = 25
	}
	if cfg.WarnEndDay < cfg.WarnStartDay {
		cfg.WarnEndDay = 29
	}
	if cfg.DueDay <= cfg.WarnEndDay {
		cfg.DueDay = 30
	}
	if cfg.SettleTimeoutSeconds <= 0 {
		cfg.SettleTimeoutSeconds = 30
	}
	return &MaintenanceService{
		userRepo:        userRepo,
		walletRepo:      walletRepo,
		commissionRepo:  commissionRepo,
		catalog:         catalog,
		referralSvc:     referralSvc,
		walletSvc:       walletSvc,
		notificationSvc: notificationSvc,
		cfg:             cfg,
	}
}

// ScanCycleUsers 按批遍历处于维护周期中的用户，逐个交给回调处理
func (s *MaintenanceService) ScanCycleUsers(handle func(userID uint) error) (int, error) {
	batchSize := s.cfg.ScanBatchSize
	if batchSize <= 0 {
		batchSize = 500
	}
	var afterID uint
	total := 0
	for {
		ids, err := s.userRepo.ListCycleUserIDs(afterID, batchSize)
		if err != nil {
			return total, err
		}
		if len(ids) == 0 {
			return total, nil
		}
		for _, id := range ids {
			afterID = id
			if err := handle(id); err != nil {
				// 单个用户失败不影响其他用户
				logger.Warnw("maintenance_scan_user_failed", "user_id", id, "error", err)
				continue
			}
			total++
		}
	}
}

// ProcessUser 处理单个用户：按周期天数决定提醒、结算或跳过
func (s *MaintenanceService) ProcessUser(ctx context.Context, userID uint, now time.Time) (*MaintenanceResult, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.CurrentPlan == constants.PlanBronze || user.PlanCycleStart == nil {
		return &MaintenanceResult{UserID: userID, Outcome: constants.SettleOutcomeNone}, nil
	}

	days := cycleDays(now, *user.PlanCycleStart)
	switch {
	case days >= s.cfg.DueDay:
		return s.settle(ctx, userID, now)
	case days >= s.cfg.WarnStartDay && days <= s.cfg.WarnEndDay:
		return s.warn(user, days, now)
	default:
		return &MaintenanceResult{UserID: userID, Outcome: constants.SettleOutcomeNone, DaysPassed: days}, nil
	}
}

// warn 提醒窗口：每个周期最多一条提醒，靠结构化参考号去重
func (s *MaintenanceService) warn(user *models.User, days int, now time.Time) (*MaintenanceResult, error) {
	key := cycleKey(*user.PlanCycleStart)
	reference := fmt.Sprintf("maintenance:warn:%d:%s", user.ID, key)
	daysLeft := s.cfg.DueDay - days
	message := fmt.Sprintf("您的 %s 套餐维护费将在 %d 天后扣除，请确保钱包余额充足。", user.CurrentPlan, daysLeft)

	_, created, err := s.notificationSvc.NotifyInTx(nil, user.ID, constants.NotificationKindWarning, message, reference)
	if err != nil {
		return nil, err
	}
	outcome := constants.SettleOutcomeNone
	if created {
		outcome = constants.SettleOutcomeWarned
	}
	return &MaintenanceResult{UserID: user.ID, Outcome: outcome, DaysPassed: days}, nil
}

// settle 到期结算：单用户单事务，锁定付费用户行，超时受配置约束
func (s *MaintenanceService) settle(ctx context.Context, userID uint, now time.Time) (*MaintenanceResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	timeout := time.Duration(s.cfg.SettleTimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result := &MaintenanceResult{UserID: userID, Outcome: constants.SettleOutcomeNone}
	if err := s.userRepo.Transaction(func(tx *gorm.DB) error {
		tx = tx.WithContext(ctx)
		repo := s.userRepo.WithTx(tx)

		user, err := repo.GetByIDForUpdate(userID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		if user.CurrentPlan == constants.PlanBronze || user.PlanCycleStart == nil {
			return nil
		}
		cycleStart := *user.PlanCycleStart
		days := cycleDays(now, cycleStart)
		result.DaysPassed = days
		if days < s.cfg.DueDay {
			return nil
		}

		price, ok := s.catalog.PriceOf(user.CurrentPlan)
		if !ok {
			logger.Warnw("maintenance_plan_price_missing", "user_id", user.ID, "plan", user.CurrentPlan)
			return nil
		}
		fee := s.catalog.MaintenanceFee(price)
		key := cycleKey(cycleStart)
		settleRef := fmt.Sprintf("maintenance:settle:%d:%s", user.ID, key)

		// 幂等：该周期已经扣过费则什么都不做
		existing, err := s.walletRepo.WithTx(tx).GetTransactionByReference(settleRef)
		if err != nil {
			return err
		}
		if existing != nil {
			return nil
		}

		uplines, err := s.referralSvc.UplineChainTx(tx, user, constants.MaxUplineLevels)
		if err != nil {
			return err
		}

		if user.WalletBalance.Decimal.GreaterThanOrEqual(fee) {
			return s.settleSufficient(tx, user, uplines, fee, settleRef, key, now, result)
		}
		return s.settleInsufficient(tx, user, uplines, fee, settleRef, key, result)
	}); err != nil {
		return nil, err
	}
	return result, nil
}

// settleSufficient 余额充足：扣费、重置周期、逐级分配
func (s *MaintenanceService) settleSufficient(
	tx *gorm.DB,
	user *models.User,
	uplines []models.User,
	fee decimal.Decimal,
	settleRef, key string,
	now time.Time,
	result *MaintenanceResult,
) error {
	if _, _, err := s.walletSvc.ChangeBalanceInTx(tx, WalletChangeInput{
		UserID:    user.ID,
		Delta:     fee.Neg(),
		TxnType:   constants.WalletTxnTypeMaintenanceFee,
		Reference: settleRef,
		Remark:    fmt.Sprintf("%s 套餐维护费", user.CurrentPlan),
	}); err != nil {
		return err
	}

	if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"plan_cycle_start": now,
		"updated_at":       now,
	}).Error; err != nil {
		return ErrUserUpdateFailed
	}

	deductMsg := fmt.Sprintf("已扣除 %s 套餐维护费 %s。", user.CurrentPlan, fee.StringFixed(2))
	if _, _, err := s.notificationSvc.NotifyInTx(tx, user.ID, constants.NotificationKindDeduction,
		deductMsg, fmt.Sprintf("maintenance:deduct:%d:%s", user.ID, key)); err != nil {
		return err
	}

	cycleStart := *user.PlanCycleStart
	percents := s.catalog.LevelPercents()
	shares := 0
	for i, upline := range uplines {
		level := i + 1
		share := s.catalog.LevelShare(fee, level)
		if share.LessThanOrEqual(decimal.Zero) {
			continue
		}
		shareRef := fmt.Sprintf("maintenance:share:%d:%s:l%d", user.ID, key, level)
		if _, _, err := s.walletSvc.ChangeBalanceInTx(tx, WalletChangeInput{
			UserID:    upline.ID,
			Delta:     share,
			TxnType:   constants.WalletTxnTypeCommission,
			Reference: shareRef,
			Remark:    fmt.Sprintf("第 %d 级维护费分成", level),
		}); err != nil {
			return err
		}
		event := &models.CommissionEvent{
			UserID:       upline.ID,
			SourceUserID: user.ID,
			Level:        level,
			Kind:         constants.CommissionKindMaintenanceShare,
			BaseAmount:   models.NewMoneyFromDecimal(fee),
			RatePercent:  models.NewMoneyFromDecimal(percents[i]),
			Amount:       models.NewMoneyFromDecimal(share),
			CycleStart:   &cycleStart,
			Reference:    shareRef,
			CreatedAt:    time.Now(),
		}
		if err := s.commissionRepo.WithTx(tx).CreateEvent(event); err != nil {
			if !isUniqueViolation(err) {
				return ErrCommissionEventCreateFailed
			}
		}
		incomeMsg := fmt.Sprintf("收到下级维护费分成 %s（第 %d 级）。", share.StringFixed(2), level)
		if _, _, err := s.notificationSvc.NotifyInTx(tx, upline.ID, constants.NotificationKindIncome,
			incomeMsg, fmt.Sprintf("maintenance:income:%d:%d:%s", upline.ID, user.ID, key)); err != nil {
			return err
		}
		shares++
	}

	result.Outcome = constants.SettleOutcomeSettled
	result.Fee = models.NewMoneyFromDecimal(fee)
	result.Shares = shares
	return nil
}

// settleInsufficient 余额不足：照扣维护费（允许负余额）、降级 Bronze、清空周期，上级不产生分成
func (s *MaintenanceService) settleInsufficient(
	tx *gorm.DB,
	user *models.User,
	uplines []models.User,
	fee decimal.Decimal,
	settleRef, key string,
	result *MaintenanceResult,
) error {
	if _, _, err := s.walletSvc.ChangeBalanceInTx(tx, WalletChangeInput{
		UserID:        user.ID,
		Delta:         fee.Neg(),
		TxnType:       constants.WalletTxnTypeMaintenanceFee,
		Reference:     settleRef,
		Remark:        fmt.Sprintf("%s 套餐维护费（余额不足，降级）", user.CurrentPlan),
		AllowNegative: true,
	}); err != nil {
		return err
	}

	now := time.Now()
	previousPlan := user.CurrentPlan
	if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"current_plan":     constants.PlanBronze,
		"plan_cycle_start": nil,
		"updated_at":       now,
	}).Error; err != nil {
		return ErrUserUpdateFailed
	}

	downgradeMsg := fmt.Sprintf("钱包余额不足以支付 %s 套餐维护费 %s，已降级为 Bronze。", previousPlan, fee.StringFixed(2))
	if _, _, err := s.notificationSvc.NotifyInTx(tx, user.ID, constants.NotificationKindDowngrade,
		downgradeMsg, fmt.Sprintf("maintenance:downgrade:%d:%s", user.ID, key)); err != nil {
		return err
	}

	for i, upline := range uplines {
		level := i + 1
		noIncomeMsg := fmt.Sprintf("第 %d 级下级本周期维护费未缴纳，无分成收入。", level)
		if _, _, err := s.notificationSvc.NotifyInTx(tx, upline.ID, constants.NotificationKindInfo,
			noIncomeMsg, fmt.Sprintf("maintenance:noincome:%d:%d:%s", upline.ID, user.ID, key)); err != nil {
			return err
		}
	}

	result.Outcome = constants.SettleOutcomeDowngrade
	result.Fee = models.NewMoneyFromDecimal(fee)
	return nil
}

// cycleDays 周期内经过的整天数
func cycleDays(now, cycleStart time.Time) int {
	if now.Before(cycleStart) {
		return 0
	}
	return int(now.Sub(cycleStart).Hours() / 24)
}

// cycleKey 周期幂等键（UTC 日期，周期重置后自然变化）
func cycleKey(cycleStart time.Time) string {
	return cycleStart.UTC().Format("2006-01-02")
}
