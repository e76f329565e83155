package admin

import (
	"errors"
	"time"

	"github.com/refwallet-next/internal/http/response"
	"github.com/refwallet-next/internal/queue"
	"github.com/refwallet-next/internal/service"

	"github.com/gin-gonic/gin"
)

// RunMaintenanceScan 管理端手动触发维护费扫描
// 队列可用时逐用户投递结算任务，否则在请求内同步处理。
func (h *Handler) RunMaintenanceScan(c *gin.Context) {
	if h.QueueClient != nil && h.QueueClient.Enabled() {
		count, err := h.MaintenanceService.ScanCycleUsers(func(userID uint) error {
			return h.QueueClient.EnqueueMaintenanceSettle(queue.MaintenanceSettlePayload{UserID: userID})
		})
		if err != nil {
			respondError(c, response.CodeInternal, "维护费扫描失败", err)
			return
		}
		requestLog(c).Infow("admin_maintenance_scan_enqueued", "count", count)
		response.Success(c, gin.H{"mode": "enqueued", "count": count})
		return
	}

	now := time.Now()
	processed := 0
	failed := 0
	count, err := h.MaintenanceService.ScanCycleUsers(func(userID uint) error {
		if _, perr := h.MaintenanceService.ProcessUser(c.Request.Context(), userID, now); perr != nil {
			failed++
			requestLog(c).Warnw("admin_maintenance_process_failed", "user_id", userID, "error", perr)
			return nil
		}
		processed++
		return nil
	})
	if err != nil {
		respondError(c, response.CodeInternal, "维护费扫描失败", err)
		return
	}
	requestLog(c).Infow("admin_maintenance_scan_done", "count", count, "processed", processed, "failed", failed)
	response.Success(c, gin.H{"mode": "inline", "count": count, "processed": processed, "failed": failed})
}

// RunMaintenanceForUser 管理端手动触发单用户维护费结算
func (h *Handler) RunMaintenanceForUser(c *gin.Context) {
	userID, ok := parsePathUint(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "无效的用户 ID", nil)
		return
	}
	result, err := h.MaintenanceService.ProcessUser(c.Request.Context(), userID, time.Now())
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			respondError(c, response.CodeNotFound, "用户不存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "维护费处理失败", err)
		return
	}
	response.Success(c, result)
}
