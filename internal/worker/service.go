package worker

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/refwallet-next/internal/config"
	"github.com/refwallet-next/internal/logger"
	"github.com/refwallet-next/internal/queue"

	"github.com/hibiken/asynq"
)

const (
	defaultScanCron    = "59 23 * * *"
	defaultCleanupCron = "30 4 * * *"
)

// Service 异步队列服务
//
// 同一进程内承载消费者与周期调度：调度器按 UTC 投递扫描与清理任务，
// 消费者从同一 Redis 队列取任务执行。
type Service struct {
	name      string
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	consumer  *Consumer
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, maintenanceCfg config.MaintenanceConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)

	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{
		Location: time.UTC,
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err != nil {
				logger.Warnw("worker_schedule_enqueue_failed", "error", err)
			}
		},
	})
	scanCron := strings.TrimSpace(maintenanceCfg.ScanCron)
	if scanCron == "" {
		scanCron = defaultScanCron
	}
	if _, err := scheduler.Register(scanCron, queue.NewMaintenanceScanTask(), asynq.Queue(queue.DefaultQueue)); err != nil {
		return nil, err
	}
	if _, err := scheduler.Register(defaultCleanupCron, queue.NewNotificationCleanupTask(), asynq.Queue(queue.DefaultQueue)); err != nil {
		return nil, err
	}

	return &Service{
		name:      "worker",
		server:    server,
		scheduler: scheduler,
		mux:       mux,
		consumer:  consumer,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.scheduler != nil {
		if err := s.scheduler.Start(); err != nil {
			return err
		}
	}
	_ = ctx
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil {
		return nil
	}
	_ = ctx
	if s.scheduler != nil {
		s.scheduler.Shutdown()
	}
	if s.server != nil {
		s.server.Shutdown()
	}
	return nil
}
