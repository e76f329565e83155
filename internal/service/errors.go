package service

import "errors"

// 业务语义错误，handler 层通过 errors.Is 映射为响应码
var (
	ErrUserNotFound       = errors.New("用户不存在")
	ErrUserDisabled       = errors.New("账号已被停用")
	ErrUserEmailExists    = errors.New("邮箱已被注册")
	ErrUserCreateFailed   = errors.New("用户创建失败")
	ErrUserUpdateFailed   = errors.New("用户更新失败")
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
	ErrInvalidEmail       = errors.New("邮箱格式无效")
	ErrPasswordTooWeak    = errors.New("密码强度不足")
	ErrPinAlreadySet      = errors.New("安全 PIN 已设置")
	ErrPinInvalid         = errors.New("安全 PIN 格式无效")

	ErrReferralCodeNotFound  = errors.New("推荐码不存在")
	ErrReferralSelfApply     = errors.New("不能使用自己的推荐码")
	ErrReferralAlreadyBound  = errors.New("已绑定过推荐人")
	ErrReferralCodeGenFailed = errors.New("推荐码生成失败")

	ErrPlanUnknown              = errors.New("未知的套餐等级")
	ErrPlanNotPurchasable       = errors.New("该等级不可购买")
	ErrPlanAlreadyOwned         = errors.New("已持有该等级，不能重复购买")
	ErrPlanNotEligible          = errors.New("未满足升级条件")
	ErrPlanRenewWithoutPlan     = errors.New("当前无付费套餐，无法续费")
	ErrPlanPurchaseCreateFailed = errors.New("购买记录创建失败")

	ErrWalletInvalidAmount           = errors.New("金额无效")
	ErrWalletInsufficientBalance     = errors.New("钱包余额不足")
	ErrWalletUpdateFailed            = errors.New("钱包余额更新失败")
	ErrWalletTransactionCreateFailed = errors.New("钱包流水创建失败")

	ErrCommissionEventCreateFailed = errors.New("佣金事件创建失败")

	ErrNotificationNotFound     = errors.New("通知不存在")
	ErrNotificationCreateFailed = errors.New("通知创建失败")

	ErrMaintenanceNotDue = errors.New("未到结算或提醒窗口")

	ErrAdminNotFound = errors.New("管理员不存在")
)
