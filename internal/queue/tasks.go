package queue

import (
	"encoding/json"

	"github.com/refwallet-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskMaintenanceScan 周期扫描任务
	TaskMaintenanceScan = constants.TaskMaintenanceScan
	// TaskMaintenanceSettle 单用户结算任务
	TaskMaintenanceSettle = constants.TaskMaintenanceSettle
	// TaskSecurityPinTimeout 安全 PIN 超时任务
	TaskSecurityPinTimeout = constants.TaskSecurityPinTimeout
	// TaskNotificationCleanup 已读通知清理任务
	TaskNotificationCleanup = constants.TaskNotificationCleanup
)

// MaintenanceSettlePayload 单用户结算任务载荷
type MaintenanceSettlePayload struct {
	UserID uint `json:"user_id"`
}

// SecurityPinTimeoutPayload 安全 PIN 超时任务载荷
type SecurityPinTimeoutPayload struct {
	UserID uint `json:"user_id"`
}

// NewMaintenanceScanTask 创建周期扫描任务
func NewMaintenanceScanTask() *asynq.Task {
	return asynq.NewTask(TaskMaintenanceScan, nil)
}

// NewMaintenanceSettleTask 创建单用户结算任务
func NewMaintenanceSettleTask(payload MaintenanceSettlePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMaintenanceSettle, body), nil
}

// NewSecurityPinTimeoutTask 创建安全 PIN 超时任务
func NewSecurityPinTimeoutTask(payload SecurityPinTimeoutPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSecurityPinTimeout, body), nil
}

// NewNotificationCleanupTask 创建已读通知清理任务
func NewNotificationCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskNotificationCleanup, nil)
}
