package models

import (
	"time"
)

// PlanPurchase 套餐购买记录
type PlanPurchase struct {
	ID        uint      `gorm:"primarykey" json:"id"`                                    // 主键
	UserID    uint      `gorm:"not null;index" json:"user_id"`                           // 用户ID
	Plan      string    `gorm:"type:varchar(20);not null;index" json:"plan"`             // 购买的等级
	Price     Money     `gorm:"type:decimal(20,2);not null;default:0" json:"price"`      // 套餐价格
	FeeAmount Money     `gorm:"type:decimal(20,2);not null;default:0" json:"fee_amount"` // 一次性维护费（价格的 10%）
	TotalPaid Money     `gorm:"type:decimal(20,2);not null;default:0" json:"total_paid"` // 实际扣款（价格 + 费用）
	Reference string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"reference"` // 业务引用（幂等键）
	CreatedAt time.Time `gorm:"index" json:"created_at"`                                 // 创建时间
}

// TableName 指定表名
func (PlanPurchase) TableName() string {
	return "plan_purchases"
}
