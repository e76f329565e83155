package models

import (
	"time"
)

// Notification 站内通知（周期类通知用结构化 reference 去重，不比对消息文本）
type Notification struct {
	ID        uint      `gorm:"primarykey" json:"id"`                                    // 主键
	UserID    uint      `gorm:"not null;index" json:"user_id"`                           // 用户ID
	Kind      string    `gorm:"type:varchar(20);not null;index" json:"kind"`             // 通知类型
	Message   string    `gorm:"type:varchar(500);not null" json:"message"`               // 通知内容
	Reference string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"reference"` // 业务引用（幂等键）
	IsRead    bool      `gorm:"not null;default:false;index" json:"is_read"`             // 是否已读
	CreatedAt time.Time `gorm:"index" json:"created_at"`                                 // 创建时间
}

// TableName 指定表名
func (Notification) TableName() string {
	return "notifications"
}
