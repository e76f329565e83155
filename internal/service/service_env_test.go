package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/refwallet-next/internal/config"
	"github.com/refwallet-next/internal/constants"
	"github.com/refwallet-next/internal/models"
	"github.com/refwallet-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// testEnv 服务层测试环境：内存 SQLite 上挂齐全套仓储和服务
type testEnv struct {
	db *gorm.DB

	userRepo         *repository.GormUserRepository
	walletRepo       *repository.GormWalletRepository
	commissionRepo   *repository.GormCommissionRepository
	notificationRepo *repository.GormNotificationRepository
	purchaseRepo     *repository.GormPlanPurchaseRepository

	catalog         *PlanCatalog
	referralSvc     *ReferralService
	walletSvc       *WalletService
	notificationSvc *NotificationService
	rewardSvc       *RewardService
	planSvc         *PlanService
	maintenanceSvc  *MaintenanceService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Admin{},
		&models.User{},
		&models.WalletTransaction{},
		&models.CommissionEvent{},
		&models.Notification{},
		&models.PlanPurchase{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	maintenanceCfg := config.MaintenanceConfig{
		FeePercent:   10,
		WarnStartDay: 25,
		WarnEndDay:   29,
		DueDay:       30,
	}
	commissionCfg := config.CommissionConfig{
		DirectBonusPercent: 10,
	}

	env := &testEnv{
		db:               db,
		userRepo:         repository.NewUserRepository(db),
		walletRepo:       repository.NewWalletRepository(db),
		commissionRepo:   repository.NewCommissionRepository(db),
		notificationRepo: repository.NewNotificationRepository(db),
		purchaseRepo:     repository.NewPlanPurchaseRepository(db),
	}
	env.catalog = NewPlanCatalog(maintenanceCfg, commissionCfg)
	env.referralSvc = NewReferralService(env.userRepo)
	env.walletSvc = NewWalletService(env.walletRepo, env.userRepo)
	env.notificationSvc = NewNotificationService(env.notificationRepo)
	env.rewardSvc = NewRewardService(env.userRepo, env.walletSvc, env.notificationSvc)
	env.planSvc = NewPlanService(
		env.userRepo, env.purchaseRepo, env.commissionRepo,
		env.catalog, env.referralSvc, env.walletSvc, env.notificationSvc, env.rewardSvc,
		maintenanceCfg,
	)
	env.maintenanceSvc = NewMaintenanceService(
		env.userRepo, env.walletRepo, env.commissionRepo,
		env.catalog, env.referralSvc, env.walletSvc, env.notificationSvc,
		maintenanceCfg,
	)
	return env
}

// createUser 建一个测试用户；plan 非 Bronze 时 cycleStart 必填
func (env *testEnv) createUser(t *testing.T, email, code string, parentCode *string, plan string, balance float64, cycleStart *time.Time) *models.User {
	t.Helper()
	now := time.Now()
	user := &models.User{
		Email:              email,
		PasswordHash:       "hash",
		DisplayName:        email,
		ReferralCode:       code,
		ParentReferralCode: parentCode,
		CurrentPlan:        plan,
		WalletBalance:      models.NewMoneyFromDecimal(decimal.NewFromFloat(balance)),
		Verified:           true,
		VerifiedAt:         &now,
		Status:             constants.UserStatusOK,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if plan != constants.PlanBronze {
		if cycleStart == nil {
			start := now
			cycleStart = &start
		}
		user.PlanCycleStart = cycleStart
	}
	if err := env.db.Create(user).Error; err != nil {
		t.Fatalf("create user %s failed: %v", email, err)
	}
	return user
}

func (env *testEnv) reloadUser(t *testing.T, id uint) *models.User {
	t.Helper()
	user, err := env.userRepo.GetByID(id)
	if err != nil {
		t.Fatalf("reload user %d failed: %v", id, err)
	}
	if user == nil {
		t.Fatalf("user %d not found", id)
	}
	return user
}

func (env *testEnv) balanceOf(t *testing.T, id uint) decimal.Decimal {
	t.Helper()
	return env.reloadUser(t, id).WalletBalance.Decimal
}

func (env *testEnv) countNotifications(t *testing.T, userID uint, kind string) int64 {
	t.Helper()
	var count int64
	query := env.db.Model(&models.Notification{}).Where("user_id = ?", userID)
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}
	if err := query.Count(&count).Error; err != nil {
		t.Fatalf("count notifications failed: %v", err)
	}
	return count
}

func (env *testEnv) countTransactions(t *testing.T, userID uint) int64 {
	t.Helper()
	var count int64
	if err := env.db.Model(&models.WalletTransaction{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		t.Fatalf("count transactions failed: %v", err)
	}
	return count
}

func daysAgo(n int) *time.Time {
	ts := time.Now().Add(-time.Duration(n) * 24 * time.Hour)
	return &ts
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %s failed: %v", s, err)
	}
	return d
}
