package public

import (
	"errors"
	"strconv"

	"github.com/refwallet-next/internal/http/response"
	"github.com/refwallet-next/internal/repository"
	"github.com/refwallet-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GetMyNotifications 查询站内通知列表
func (h *Handler) GetMyNotifications(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := queryPagination(c)
	filter := repository.NotificationListFilter{
		Page:       page,
		PageSize:   pageSize,
		UserID:     uid,
		Kind:       c.Query("kind"),
		OnlyUnread: c.Query("only_unread") == "true",
	}
	items, total, err := h.NotificationService.List(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "通知列表获取失败", err)
		return
	}
	response.SuccessWithPage(c, items, response.BuildPagination(page, pageSize, total))
}

// GetMyUnreadNotificationCount 查询未读通知数量
func (h *Handler) GetMyUnreadNotificationCount(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	count, err := h.NotificationService.CountUnread(uid)
	if err != nil {
		respondError(c, response.CodeInternal, "未读数量获取失败", err)
		return
	}
	response.Success(c, gin.H{"unread": count})
}

// MarkNotificationRead 标记单条通知已读
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := parseNotificationID(c)
	if !ok {
		return
	}
	if err := h.NotificationService.MarkRead(uid, id); err != nil {
		if errors.Is(err, service.ErrNotificationNotFound) {
			respondError(c, response.CodeNotFound, "通知不存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "通知标记失败", err)
		return
	}
	response.Success(c, nil)
}

// MarkAllNotificationsRead 标记全部通知已读
func (h *Handler) MarkAllNotificationsRead(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	if err := h.NotificationService.MarkAllRead(uid); err != nil {
		respondError(c, response.CodeInternal, "通知标记失败", err)
		return
	}
	response.Success(c, nil)
}

// DeleteNotification 删除单条通知
func (h *Handler) DeleteNotification(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := parseNotificationID(c)
	if !ok {
		return
	}
	if err := h.NotificationService.Delete(uid, id); err != nil {
		if errors.Is(err, service.ErrNotificationNotFound) {
			respondError(c, response.CodeNotFound, "通知不存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "通知删除失败", err)
		return
	}
	response.Success(c, nil)
}

func parseNotificationID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "无效的通知 ID", nil)
		return 0, false
	}
	return uint(id), true
}
