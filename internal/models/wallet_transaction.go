package models

import (
	"time"
)

// WalletTransaction 钱包流水（只增不改，reference 唯一约束承担幂等）
type WalletTransaction struct {
	ID            uint      `gorm:"primarykey" json:"id"`                                      // 主键
	UserID        uint      `gorm:"not null;index" json:"user_id"`                             // 用户ID
	Type          string    `gorm:"type:varchar(32);not null;index" json:"type"`               // 交易类型
	Direction     string    `gorm:"type:varchar(8);not null" json:"direction"`                 // 方向 in/out
	Amount        Money     `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`       // 交易金额（正数）
	BalanceBefore Money     `gorm:"type:decimal(20,2);not null;default:0" json:"balance_before"` // 变动前余额
	BalanceAfter  Money     `gorm:"type:decimal(20,2);not null;default:0" json:"balance_after"`  // 变动后余额
	Reference     string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"reference"`   // 业务引用（幂等键）
	Remark        string    `gorm:"type:varchar(255)" json:"remark"`                           // 备注
	CreatedAt     time.Time `gorm:"index" json:"created_at"`                                   // 创建时间
}

// TableName 指定表名
func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}
