package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/refwallet-next/internal/models"

	"gorm.io/gorm"
)

// CommissionRepository 佣金事件数据访问接口
type CommissionRepository interface {
	CreateEvent(event *models.CommissionEvent) error
	GetEventByReference(reference string) (*models.CommissionEvent, error)
	ListEvents(filter CommissionEventListFilter) ([]models.CommissionEvent, int64, error)
	CountBySourceAndCycle(sourceUserID uint, cycleStart *time.Time) (int64, error)
	WithTx(tx *gorm.DB) *GormCommissionRepository
}

// GormCommissionRepository GORM 佣金仓储实现
type GormCommissionRepository struct {
	db *gorm.DB
}

// NewCommissionRepository 创建佣金仓储
func NewCommissionRepository(db *gorm.DB) *GormCommissionRepository {
	return &GormCommissionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCommissionRepository) WithTx(tx *gorm.DB) *GormCommissionRepository {
	if tx == nil {
		return r
	}
	return &GormCommissionRepository{db: tx}
}

// CreateEvent 创建佣金事件
func (r *GormCommissionRepository) CreateEvent(event *models.CommissionEvent) error {
	return r.db.Create(event).Error
}

// GetEventByReference 按参考号获取佣金事件
func (r *GormCommissionRepository) GetEventByReference(reference string) (*models.CommissionEvent, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, nil
	}
	var event models.CommissionEvent
	if err := r.db.Where("reference = ?", reference).First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

// ListEvents 分页查询佣金事件
func (r *GormCommissionRepository) ListEvents(filter CommissionEventListFilter) ([]models.CommissionEvent, int64, error) {
	query := r.db.Model(&models.CommissionEvent{})
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.SourceUserID != 0 {
		query = query.Where("source_user_id = ?", filter.SourceUserID)
	}
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if filter.Level != 0 {
		query = query.Where("level = ?", filter.Level)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var events []models.CommissionEvent
	if err := query.Order("id desc").Find(&events).Error; err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// CountBySourceAndCycle 统计某用户某周期产生的佣金事件数量
func (r *GormCommissionRepository) CountBySourceAndCycle(sourceUserID uint, cycleStart *time.Time) (int64, error) {
	if sourceUserID == 0 {
		return 0, nil
	}
	var count int64
	query := r.db.Model(&models.CommissionEvent{}).Where("source_user_id = ?", sourceUserID)
	if cycleStart != nil {
		query = query.Where("cycle_start = ?", *cycleStart)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
