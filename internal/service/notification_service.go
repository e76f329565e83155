package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/refwallet-next/internal/models"
	"github.com/refwallet-next/internal/repository"

	"gorm.io/gorm"
)

// NotificationService 站内通知服务
type NotificationService struct {
	notificationRepo repository.NotificationRepository
}

// NewNotificationService 创建通知服务
func NewNotificationService(notificationRepo repository.NotificationRepository) *NotificationService {
	return &NotificationService{notificationRepo: notificationRepo}
}

// NotifyInTx 在事务内写入通知；参考号已存在时返回已有记录，created 为 false
func (s *NotificationService) NotifyInTx(tx *gorm.DB, userID uint, kind, message, reference string) (*models.Notification, bool, error) {
	if userID == 0 {
		return nil, false, ErrUserNotFound
	}
	reference = strings.TrimSpace(reference)
	if reference == "" {
		reference = buildNotificationReference(kind, userID)
	}
	repo := s.notificationRepo
	if tx != nil {
		repo = s.notificationRepo.WithTx(tx)
	}

	existing, err := repo.GetByReference(reference)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	notification := &models.Notification{
		UserID:    userID,
		Kind:      strings.TrimSpace(kind),
		Message:   strings.TrimSpace(message),
		Reference: reference,
		CreatedAt: time.Now(),
	}
	if err := repo.Create(notification); err != nil {
		// 并发情况下唯一约束兜底，重查一次
		if isUniqueViolation(err) {
			created, queryErr := repo.GetByReference(reference)
			if queryErr == nil && created != nil {
				return created, false, nil
			}
		}
		return nil, false, ErrNotificationCreateFailed
	}
	return notification, true, nil
}

// Notify 写入通知（自动生成唯一参考号）
func (s *NotificationService) Notify(userID uint, kind, message string) (*models.Notification, error) {
	notification, _, err := s.NotifyInTx(nil, userID, kind, message, "")
	return notification, err
}

// HasReference 判断参考号对应的通知是否已存在
func (s *NotificationService) HasReference(reference string) (bool, error) {
	existing, err := s.notificationRepo.GetByReference(reference)
	if err != nil {
		return false, err
	}
	return existing != nil, nil
}

// List 分页查询通知
func (s *NotificationService) List(filter repository.NotificationListFilter) ([]models.Notification, int64, error) {
	return s.notificationRepo.List(filter)
}

// CountUnread 统计未读数量
func (s *NotificationService) CountUnread(userID uint) (int64, error) {
	return s.notificationRepo.CountUnread(userID)
}

// MarkRead 标记已读
func (s *NotificationService) MarkRead(userID, id uint) error {
	notification, err := s.notificationRepo.GetByID(id)
	if err != nil {
		return err
	}
	if notification == nil || notification.UserID != userID {
		return ErrNotificationNotFound
	}
	return s.notificationRepo.MarkRead(userID, id)
}

// MarkAllRead 全部标记已读
func (s *NotificationService) MarkAllRead(userID uint) error {
	if userID == 0 {
		return ErrUserNotFound
	}
	return s.notificationRepo.MarkAllRead(userID)
}

// Delete 删除单条通知
func (s *NotificationService) Delete(userID, id uint) error {
	notification, err := s.notificationRepo.GetByID(id)
	if err != nil {
		return err
	}
	if notification == nil || notification.UserID != userID {
		return ErrNotificationNotFound
	}
	return s.notificationRepo.Delete(userID, id)
}

// CleanupRead 清理保留期之前的已读通知，返回清理条数
func (s *NotificationService) CleanupRead(keepDays int) (int64, error) {
	if keepDays <= 0 {
		keepDays = 90
	}
	before := time.Now().AddDate(0, 0, -keepDays)
	return s.notificationRepo.DeleteReadBefore(before)
}

func buildNotificationReference(kind string, userID uint) string {
	normalized := strings.TrimSpace(kind)
	if normalized == "" {
		normalized = "notify"
	}
	return fmt.Sprintf("%s:%d:%d", normalized, userID, time.Now().UnixNano())
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
