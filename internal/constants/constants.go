package constants

// 会员等级常量（名称与价格表、资格规则共用同一拼写）
const (
	PlanBronze   = "Bronze"
	PlanSilver   = "Silver"
	PlanGold1    = "Gold 1"
	PlanGold2    = "Gold 2"
	PlanPremium1 = "Premium 1"
	PlanPremium2 = "Premium 2"
	PlanPremium3 = "Premium 3"
	PlanPremium4 = "Premium 4"
	PlanPremium5 = "Premium 5"
	PlanRenew    = "Renew"
)

// 用户状态常量
const (
	UserStatusOK    = "ok"
	UserStatusPause = "pause"
	UserStatusBlock = "block"
)

// 钱包交易类型常量
const (
	WalletTxnTypePlanPurchase   = "plan_purchase"
	WalletTxnTypeMaintenanceFee = "maintenance_fee"
	WalletTxnTypeCommission     = "commission"
	WalletTxnTypeTeamReward     = "team_reward"
	WalletTxnTypeTaskEarn       = "task_earn"
	WalletTxnTypeAdminAdjust    = "admin_adjust"
)

// 钱包交易方向常量
const (
	WalletTxnDirectionIn  = "in"
	WalletTxnDirectionOut = "out"
)

// 佣金事件类型常量
const (
	CommissionKindDirectBonus      = "direct_bonus"
	CommissionKindLevelCommission  = "level_commission"
	CommissionKindMaintenanceShare = "maintenance_share"
)

// 通知类型常量
const (
	NotificationKindWarning   = "warning"
	NotificationKindDeduction = "deduction"
	NotificationKindDowngrade = "downgrade"
	NotificationKindIncome    = "income"
	NotificationKindReward    = "reward"
	NotificationKindInfo      = "info"
)

// 维护结算结果常量
const (
	SettleOutcomeNone      = "none"
	SettleOutcomeWarned    = "warned"
	SettleOutcomeSettled   = "settled"
	SettleOutcomeDowngrade = "downgraded"
)

// 推荐链遍历上限
const (
	MaxUplineLevels = 10
)

// 队列常量
const (
	QueueDefault            = "default"
	TaskMaintenanceScan     = "maintenance:cycle_scan"
	TaskMaintenanceSettle   = "maintenance:settle_user"
	TaskSecurityPinTimeout  = "security:pin_timeout"
	TaskNotificationCleanup = "notification:cleanup"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "rw"
)
