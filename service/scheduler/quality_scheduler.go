/*
 * @module service/scheduler/quality_scheduler
 * @description 定时校验调度器：按cron表达式周期性触发数据质量校验
 * @architecture 分层架构 - 服务层
 * @documentReference ai_docs/validation_policy.md
 * @stateFlow 启动调度器 -> cron触发 -> 分布式锁防重 -> 执行校验
 * @rules 多实例部署时同一时刻只允许一个实例执行定时校验
 * @dependencies github.com/robfig/cron/v3, service/distributed_lock
 * @refs service/init.go, service/validation_service.go
 */

package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"dataquality-service/service/distributed_lock"
)

// 定时校验的分布式锁键和锁有效期
const (
	validationLockKey = "dataquality:scheduled_validation"
	validationLockTTL = 10 * time.Minute
)

// ValidateFunc 调度器触发的校验回调
type ValidateFunc func(ctx context.Context, triggeredBy string) error

// QualityScheduler 定时校验调度器
type QualityScheduler struct {
	cron            *cron.Cron
	cronExpr        string
	validate        ValidateFunc
	distributedLock distributed_lock.DistributedLock
	ctx             context.Context
	cancel          context.CancelFunc
	started         bool
}

// NewQualityScheduler 创建定时校验调度器
func NewQualityScheduler(cronExpr string, validate ValidateFunc) *QualityScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &QualityScheduler{
		cron:     cron.New(cron.WithSeconds()),
		cronExpr: cronExpr,
		validate: validate,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SetDistributedLock 设置分布式锁
func (qs *QualityScheduler) SetDistributedLock(lock distributed_lock.DistributedLock) {
	qs.distributedLock = lock
	if lock != nil {
		slog.Info("定时校验调度器已启用分布式锁")
	}
}

// StartScheduler 启动调度器
func (qs *QualityScheduler) StartScheduler() error {
	if qs.started {
		return fmt.Errorf("调度器已经启动")
	}

	if _, err := qs.cron.AddFunc(qs.cronExpr, qs.runScheduledValidation); err != nil {
		return fmt.Errorf("注册定时校验任务失败: %w", err)
	}

	qs.cron.Start()
	qs.started = true
	slog.Info("定时校验调度器启动完成", "cron", qs.cronExpr)
	return nil
}

// StopScheduler 停止调度器
func (qs *QualityScheduler) StopScheduler() {
	if !qs.started {
		return
	}

	qs.cancel()
	qs.cron.Stop()
	qs.started = false
	slog.Info("定时校验调度器已停止")
}

// runScheduledValidation 执行一次定时校验，必要时先抢占分布式锁
func (qs *QualityScheduler) runScheduledValidation() {
	ctx := qs.ctx
	if ctx.Err() != nil {
		return
	}

	if qs.distributedLock != nil {
		acquired, err := qs.distributedLock.TryLock(ctx, validationLockKey, validationLockTTL)
		if err != nil {
			slog.Error("获取定时校验锁失败", "error", err)
			return
		}
		if !acquired {
			slog.Info("定时校验已由其他实例执行，本次跳过")
			return
		}
		defer func() {
			if err := qs.distributedLock.Unlock(ctx, validationLockKey); err != nil {
				slog.Error("释放定时校验锁失败", "error", err)
			}
		}()
	}

	slog.Info("定时校验开始")
	if err := qs.validate(ctx, "scheduled"); err != nil {
		slog.Error("定时校验执行失败", "error", err)
		return
	}
	slog.Info("定时校验完成")
}
