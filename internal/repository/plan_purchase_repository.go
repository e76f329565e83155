package repository

import (
	"errors"
	"strings"

	"github.com/refwallet-next/internal/models"

	"gorm.io/gorm"
)

// PlanPurchaseRepository 套餐购买记录数据访问接口
type PlanPurchaseRepository interface {
	Create(purchase *models.PlanPurchase) error
	GetByReference(reference string) (*models.PlanPurchase, error)
	List(filter PlanPurchaseListFilter) ([]models.PlanPurchase, int64, error)
	WithTx(tx *gorm.DB) *GormPlanPurchaseRepository
}

// GormPlanPurchaseRepository GORM 套餐购买仓储实现
type GormPlanPurchaseRepository struct {
	db *gorm.DB
}

// NewPlanPurchaseRepository 创建套餐购买仓储
func NewPlanPurchaseRepository(db *gorm.DB) *GormPlanPurchaseRepository {
	return &GormPlanPurchaseRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPlanPurchaseRepository) WithTx(tx *gorm.DB) *GormPlanPurchaseRepository {
	if tx == nil {
		return r
	}
	return &GormPlanPurchaseRepository{db: tx}
}

// Create 创建购买记录
func (r *GormPlanPurchaseRepository) Create(purchase *models.PlanPurchase) error {
	return r.db.Create(purchase).Error
}

// GetByReference 按参考号获取购买记录
func (r *GormPlanPurchaseRepository) GetByReference(reference string) (*models.PlanPurchase, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, nil
	}
	var purchase models.PlanPurchase
	if err := r.db.Where("reference = ?", reference).First(&purchase).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &purchase, nil
}

// List 分页查询购买记录
func (r *GormPlanPurchaseRepository) List(filter PlanPurchaseListFilter) ([]models.PlanPurchase, int64, error) {
	query := r.db.Model(&models.PlanPurchase{})
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Plan != "" {
		query = query.Where("plan = ?", filter.Plan)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var purchases []models.PlanPurchase
	if err := query.Order("id desc").Find(&purchases).Error; err != nil {
		return nil, 0, err
	}
	return purchases, total, nil
}
