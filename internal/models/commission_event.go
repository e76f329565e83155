package models

import (
	"time"
)

// CommissionEvent 佣金事件（只增不改的审计记录，reference 唯一约束承担幂等）
type CommissionEvent struct {
	ID           uint       `gorm:"primarykey" json:"id"`                                    // 主键
	UserID       uint       `gorm:"not null;index" json:"user_id"`                           // 受益用户ID
	SourceUserID uint       `gorm:"not null;index" json:"source_user_id"`                    // 触发结算的下级用户ID
	Level        int        `gorm:"not null" json:"level"`                                   // 上级层级 1..10
	Kind         string     `gorm:"type:varchar(32);not null;index" json:"kind"`             // 事件类型
	BaseAmount   Money      `gorm:"type:decimal(20,2);not null;default:0" json:"base_amount"` // 分配基数（维护费或套餐价）
	RatePercent  Money      `gorm:"type:decimal(10,4);not null;default:0" json:"rate_percent"` // 分配比例（百分比）
	Amount       Money      `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`     // 佣金金额
	CycleStart   *time.Time `gorm:"index" json:"cycle_start,omitempty"`                      // 所属维护周期起点
	Reference    string     `gorm:"type:varchar(128);uniqueIndex;not null" json:"reference"` // 业务引用（幂等键）
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`                                 // 创建时间
}

// TableName 指定表名
func (CommissionEvent) TableName() string {
	return "commission_events"
}
