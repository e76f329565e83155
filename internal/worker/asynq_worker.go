package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/refwallet-next/internal/logger"
	"github.com/refwallet-next/internal/provider"
	"github.com/refwallet-next/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskMaintenanceScan, c.handleMaintenanceScan)
	mux.HandleFunc(queue.TaskMaintenanceSettle, c.handleMaintenanceSettle)
	mux.HandleFunc(queue.TaskSecurityPinTimeout, c.handleSecurityPinTimeout)
	mux.HandleFunc(queue.TaskNotificationCleanup, c.handleNotificationCleanup)
}

// handleMaintenanceScan 周期扫描：为每个在周期中的付费用户投递一条结算任务
func (c *Consumer) handleMaintenanceScan(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_maintenance_scan_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	if c.MaintenanceService == nil {
		logger.Warnw("worker_maintenance_scan_skip_service_nil")
		return nil
	}
	enqueued, err := c.MaintenanceService.ScanCycleUsers(func(userID uint) error {
		return c.QueueClient.EnqueueMaintenanceSettle(queue.MaintenanceSettlePayload{UserID: userID})
	})
	if err != nil {
		logger.Warnw("worker_maintenance_scan_failed", "enqueued", enqueued, "error", err)
		return err
	}
	logger.Infow("worker_maintenance_scan_done", "enqueued", enqueued)
	return nil
}

// handleMaintenanceSettle 单用户提醒/结算
//
// 单个用户失败只影响自己这条任务，asynq 按任务粒度重试。
func (c *Consumer) handleMaintenanceSettle(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_maintenance_settle_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.MaintenanceSettlePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_maintenance_settle_unmarshal_failed", "error", err)
		return err
	}
	if payload.UserID == 0 {
		logger.Debugw("worker_maintenance_settle_skip_invalid_payload", "user_id", payload.UserID)
		return nil
	}
	if c.MaintenanceService == nil {
		logger.Warnw("worker_maintenance_settle_skip_service_nil", "user_id", payload.UserID)
		return nil
	}
	result, err := c.MaintenanceService.ProcessUser(ctx, payload.UserID, time.Now())
	if err != nil {
		logger.Warnw("worker_maintenance_settle_failed", "user_id", payload.UserID, "error", err)
		return err
	}
	logger.Infow("worker_maintenance_settle_done",
		"user_id", payload.UserID,
		"outcome", result.Outcome,
		"days_passed", result.DaysPassed,
	)
	return nil
}

// handleSecurityPinTimeout 注册后未设置安全 PIN 的账户降为未验证
func (c *Consumer) handleSecurityPinTimeout(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_pin_timeout_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.SecurityPinTimeoutPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_pin_timeout_unmarshal_failed", "error", err)
		return err
	}
	if payload.UserID == 0 {
		logger.Debugw("worker_pin_timeout_skip_invalid_payload", "user_id", payload.UserID)
		return nil
	}
	if c.UserAuthService == nil {
		logger.Warnw("worker_pin_timeout_skip_service_nil", "user_id", payload.UserID)
		return nil
	}
	if err := c.UserAuthService.HandlePinTimeout(payload.UserID); err != nil {
		logger.Warnw("worker_pin_timeout_failed", "user_id", payload.UserID, "error", err)
		return err
	}
	return nil
}

// handleNotificationCleanup 清理超出保留期的已读通知
func (c *Consumer) handleNotificationCleanup(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_notification_cleanup_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	if c.NotificationService == nil {
		logger.Warnw("worker_notification_cleanup_skip_service_nil")
		return nil
	}
	removed, err := c.NotificationService.CleanupRead(c.Config.Maintenance.NotificationKeepDays)
	if err != nil {
		logger.Warnw("worker_notification_cleanup_failed", "error", err)
		return err
	}
	logger.Infow("worker_notification_cleanup_done", "removed", removed)
	return nil
}
