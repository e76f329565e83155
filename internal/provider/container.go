package provider

import (
	"github.com/refwallet-next/internal/cache"
	"github.com/refwallet-next/internal/config"
	"github.com/refwallet-next/internal/logger"
	"github.com/refwallet-next/internal/models"
	"github.com/refwallet-next/internal/queue"
	"github.com/refwallet-next/internal/repository"
	"github.com/refwallet-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AdminRepo        repository.AdminRepository
	UserRepo         repository.UserRepository
	WalletRepo       repository.WalletRepository
	CommissionRepo   repository.CommissionRepository
	NotificationRepo repository.NotificationRepository
	PlanPurchaseRepo repository.PlanPurchaseRepository

	// Services
	AuthService         *service.AuthService
	UserAuthService     *service.UserAuthService
	PlanCatalog         *service.PlanCatalog
	ReferralService     *service.ReferralService
	WalletService       *service.WalletService
	NotificationService *service.NotificationService
	RewardService       *service.RewardService
	PlanService         *service.PlanService
	MaintenanceService  *service.MaintenanceService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.UserRepo = repository.NewUserRepository(db)
	c.WalletRepo = repository.NewWalletRepository(db)
	c.CommissionRepo = repository.NewCommissionRepository(db)
	c.NotificationRepo = repository.NewNotificationRepository(db)
	c.PlanPurchaseRepo = repository.NewPlanPurchaseRepository(db)
}

func (c *Container) initServices() {
	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.PlanCatalog = service.NewPlanCatalog(c.Config.Maintenance, c.Config.Commission)
	c.ReferralService = service.NewReferralService(c.UserRepo)
	c.WalletService = service.NewWalletService(c.WalletRepo, c.UserRepo)
	c.NotificationService = service.NewNotificationService(c.NotificationRepo)
	c.RewardService = service.NewRewardService(c.UserRepo, c.WalletService, c.NotificationService)
	c.UserAuthService = service.NewUserAuthService(c.Config, c.UserRepo, c.ReferralService, c.NotificationService, c.QueueClient)
	c.PlanService = service.NewPlanService(
		c.UserRepo,
		c.PlanPurchaseRepo,
		c.CommissionRepo,
		c.PlanCatalog,
		c.ReferralService,
		c.WalletService,
		c.NotificationService,
		c.RewardService,
		c.Config.Maintenance,
	)
	c.MaintenanceService = service.NewMaintenanceService(
		c.UserRepo,
		c.WalletRepo,
		c.CommissionRepo,
		c.PlanCatalog,
		c.ReferralService,
		c.WalletService,
		c.NotificationService,
		c.Config.Maintenance,
	)
}
