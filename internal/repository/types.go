package repository

import "time"

// UserListFilter 查询用户列表的过滤条件
type UserListFilter struct {
	Page          int
	PageSize      int
	Keyword       string
	Status        string
	Plan          string
	ReferralCode  string
	ParentCode    string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	LastLoginFrom *time.Time
	LastLoginTo   *time.Time
}

// WalletTransactionListFilter 查询钱包流水列表的过滤条件
type WalletTransactionListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	Type        string
	Direction   string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// CommissionEventListFilter 查询佣金事件列表的过滤条件
type CommissionEventListFilter struct {
	Page         int
	PageSize     int
	UserID       uint
	SourceUserID uint
	Kind         string
	Level        int
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
}

// NotificationListFilter 查询通知列表的过滤条件
type NotificationListFilter struct {
	Page       int
	PageSize   int
	UserID     uint
	Kind       string
	OnlyUnread bool
}

// PlanPurchaseListFilter 查询套餐购买记录的过滤条件
type PlanPurchaseListFilter struct {
	Page     int
	PageSize int
	UserID   uint
	Plan     string
}
