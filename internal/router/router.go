package router

import (
	"fmt"
	"strings"

	"github.com/refwallet-next/internal/cache"
	"github.com/refwallet-next/internal/config"
	adminhandlers "github.com/refwallet-next/internal/http/handlers/admin"
	publichandlers "github.com/refwallet-next/internal/http/handlers/public"
	"github.com/refwallet-next/internal/logger"
	"github.com/refwallet-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "rw"
	}
	redisClient := cache.Client()
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		Message:       "登录尝试过于频繁，请稍后重试",
	}
	adminLoginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:admin_login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		Message:       "登录尝试过于频繁，请稍后重试",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 公开接口
		public := apiV1.Group("/public")
		{
			public.GET("/plans", publicHandler.GetPlans)
		}

		// 用户认证接口
		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", publicHandler.UserRegister)
			auth.POST("/login", RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("email")), publicHandler.UserLogin)
		}

		// 用户接口（需鉴权）
		user := apiV1.Group("")
		user.Use(UserJWTAuthMiddleware(cfg.UserJWT.SecretKey, c.UserRepo))
		{
			user.GET("/me", publicHandler.GetCurrentUser)
			user.PUT("/me/profile", publicHandler.UpdateUserProfile)
			user.PUT("/me/password", publicHandler.ChangeUserPassword)
			user.POST("/me/pin", publicHandler.SetUserPin)
			user.POST("/me/pin/verify", publicHandler.VerifyUserPin)

			user.GET("/wallet", publicHandler.GetMyWallet)
			user.GET("/wallet/transactions", publicHandler.GetMyWalletTransactions)

			user.GET("/referral", publicHandler.GetMyReferralSummary)
			user.POST("/referral/apply", publicHandler.ApplyReferralCode)
			user.GET("/referral/referrer", publicHandler.GetMyReferrer)

			user.GET("/plan/status", publicHandler.GetMyPlanStatus)
			user.GET("/plan/eligibility", publicHandler.GetPlanEligibility)
			user.POST("/plan/upgrade", publicHandler.UpgradePlan)
			user.GET("/plan/purchases", publicHandler.GetMyPlanPurchases)
			user.GET("/commissions", publicHandler.GetMyCommissionEvents)

			user.GET("/notifications", publicHandler.GetMyNotifications)
			user.GET("/notifications/unread-count", publicHandler.GetMyUnreadNotificationCount)
			user.POST("/notifications/:id/read", publicHandler.MarkNotificationRead)
			user.POST("/notifications/read-all", publicHandler.MarkAllNotificationsRead)
			user.DELETE("/notifications/:id", publicHandler.DeleteNotification)
		}

		// 管理员接口
		admin := apiV1.Group("/admin")
		{
			// 登录接口（无需鉴权）
			admin.POST("/login", RateLimitMiddleware(redisClient, adminLoginRule, KeyByIP), adminHandler.AdminLogin)

			// 需要鉴权的接口
			authorized := admin.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.AdminRepo))
			{
				authorized.GET("/me", adminHandler.GetAdminProfile)
				authorized.PUT("/password", adminHandler.UpdateAdminPassword)

				// 用户管理
				authorized.GET("/users", adminHandler.GetAdminUsers)
				authorized.GET("/users/:id", adminHandler.GetAdminUser)
				authorized.PATCH("/users/:id/status", adminHandler.UpdateAdminUserStatus)

				// 钱包管理
				authorized.GET("/users/:id/wallet", adminHandler.GetAdminUserWallet)
				authorized.GET("/users/:id/wallet/transactions", adminHandler.GetAdminUserWalletTransactions)
				authorized.POST("/users/:id/wallet/adjust", adminHandler.AdjustAdminUserWallet)

				// 佣金与维护费
				authorized.GET("/commissions", adminHandler.GetAdminCommissionEvents)
				authorized.POST("/maintenance/run", adminHandler.RunMaintenanceScan)
				authorized.POST("/maintenance/users/:id/run", adminHandler.RunMaintenanceForUser)
			}
		}
	}

	// 健康检查
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
