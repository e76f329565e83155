package main

import (
	"fmt"
	"time"

	"github.com/refwallet-next/internal/config"
	"github.com/refwallet-next/internal/constants"
	"github.com/refwallet-next/internal/logger"
	"github.com/refwallet-next/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

type seedUser struct {
	Email      string
	Name       string
	Code       string
	ParentCode string
	Plan       string
	Balance    float64
	CycleDays  int // 周期已过天数，0 表示今天刚开始
}

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 演示推荐链：root -> silver -> gold，外加一个未绑定推荐人的散户
	seeds := []seedUser{
		{Email: "root@example.com", Name: "Root", Code: "RWROOT01", Plan: constants.PlanPremium1, Balance: 2000, CycleDays: 5},
		{Email: "silver@example.com", Name: "Silver", Code: "RWSLV001", ParentCode: "RWROOT01", Plan: constants.PlanSilver, Balance: 120, CycleDays: 26},
		{Email: "gold@example.com", Name: "Gold", Code: "RWGLD001", ParentCode: "RWSLV001", Plan: constants.PlanGold1, Balance: 300, CycleDays: 31},
		{Email: "walkin@example.com", Name: "Walkin", Code: "RWWLK001", Plan: constants.PlanBronze, Balance: 50},
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte("Passw0rd!"), bcrypt.DefaultCost)
	if err != nil {
		stdLog.Fatalf("Failed to hash password: %v", err)
	}

	now := time.Now().UTC()
	for _, s := range seeds {
		var existing models.User
		if err := models.DB.Where("email = ?", s.Email).First(&existing).Error; err == nil {
			stdLog.Printf("User already exists: %s", s.Email)
			continue
		}
		user := models.User{
			Email:         s.Email,
			PasswordHash:  string(passwordHash),
			DisplayName:   s.Name,
			ReferralCode:  s.Code,
			CurrentPlan:   s.Plan,
			WalletBalance: models.NewMoneyFromDecimal(decimal.NewFromFloat(s.Balance)),
			Verified:      true,
			VerifiedAt:    &now,
			Status:        constants.UserStatusOK,
		}
		if s.ParentCode != "" {
			parent := s.ParentCode
			user.ParentReferralCode = &parent
		}
		if s.Plan != constants.PlanBronze {
			cycleStart := now.Add(-time.Duration(s.CycleDays) * 24 * time.Hour)
			user.PlanCycleStart = &cycleStart
		}
		if err := models.DB.Create(&user).Error; err != nil {
			stdLog.Printf("Failed to create user %s: %v", s.Email, err)
			continue
		}
		stdLog.Printf("Created user: %s (plan=%s)", s.Email, s.Plan)
	}

	// 回填直推人数
	for _, s := range seeds {
		var count int64
		if err := models.DB.Model(&models.User{}).Where("parent_referral_code = ?", s.Code).Count(&count).Error; err != nil {
			continue
		}
		models.DB.Model(&models.User{}).Where("referral_code = ?", s.Code).Update("direct_referral_count", count)
	}

	fmt.Println("Seed completed.")
}
