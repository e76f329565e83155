package models

import (
	"time"

	"gorm.io/gorm"
)

// User 用户表（钱包余额直接挂在用户行上，结算时对该行加锁）
type User struct {
	ID                  uint           `gorm:"primarykey" json:"id"`                                     // 主键
	Email               string         `gorm:"uniqueIndex;not null" json:"email"`                        // 邮箱
	PasswordHash        string         `gorm:"not null" json:"-"`                                        // 密码哈希（不返回给前端）
	DisplayName         string         `gorm:"default:''" json:"display_name"`                           // 昵称
	ReferralCode        string         `gorm:"type:varchar(16);uniqueIndex;not null" json:"referral_code"` // 本人推荐码
	ParentReferralCode  *string        `gorm:"type:varchar(16);index" json:"parent_referral_code"`       // 上级推荐码（一次性绑定）
	CurrentPlan         string         `gorm:"type:varchar(20);not null;default:'Bronze'" json:"current_plan"` // 当前会员等级
	PlanCycleStart      *time.Time     `gorm:"index" json:"plan_cycle_start"`                            // 维护周期起点（Bronze 时为 NULL）
	WalletBalance       Money          `gorm:"type:decimal(20,2);not null;default:0" json:"wallet_balance"` // 钱包余额（降级结算允许为负）
	DirectReferralCount int            `gorm:"not null;default:0" json:"direct_referral_count"`          // 直推人数
	Gold1Count          int            `gorm:"not null;default:0" json:"gold1_count"`                    // 直推达到 Gold 1 的人数（团队奖励里程碑）
	RewardMilestone     int            `gorm:"not null;default:0" json:"-"`                              // 已发放的最高里程碑阈值
	Verified            bool           `gorm:"not null;default:false" json:"verified"`                   // 是否已验证（超时未设置安全 PIN 会被回退）
	VerifiedAt          *time.Time     `json:"verified_at"`                                              // 验证时间
	PinHash             string         `gorm:"default:''" json:"-"`                                      // 安全 PIN 哈希
	Status              string         `gorm:"type:varchar(10);not null;default:'ok';index" json:"status"` // 账号状态 ok/pause/block
	LastLoginAt         *time.Time     `json:"last_login_at"`                                            // 最后登录时间
	CreatedAt           time.Time      `gorm:"index" json:"created_at"`                                  // 创建时间
	UpdatedAt           time.Time      `gorm:"index" json:"updated_at"`                                  // 更新时间
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"-"`                                           // 软删除时间
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
