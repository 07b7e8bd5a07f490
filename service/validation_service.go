/*
 * @module service/validation_service
 * @description 数据质量校验服务，编排规则目录、执行引擎、运行持久化和指标上报
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/validation_policy.md
 * @stateFlow 构建规则目录 -> 检查数据集表 -> 并发执行规则 -> 持久化运行记录 -> 指标上报
 * @rules 访问错误立即中止整次运行；持久化失败不影响报告结果，只记日志
 * @dependencies dataquality-service/service/quality, dataquality-service/service/dataset
 * @refs service/init.go, api/controllers/quality_controller.go
 */

package service

import (
	"context"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"dataquality-service/service/analytics"
	"dataquality-service/service/config"
	"dataquality-service/service/database"
	"dataquality-service/service/dataset"
	"dataquality-service/service/models"
	"dataquality-service/service/monitoring"
	"dataquality-service/service/quality"
	"dataquality-service/service/report"
)

// ValidationService 数据质量校验服务
type ValidationService struct {
	db       *gorm.DB
	policy   config.ValidationPolicy
	catalog  *quality.Catalog
	engine   *quality.Engine
	accessor dataset.Accessor
	store    *report.Store
	reporter *analytics.Reporter
}

// NewValidationService 创建数据质量校验服务实例
// 规则目录在此一次性构建，配置错误在启动阶段即暴露
func NewValidationService(db *gorm.DB, policy config.ValidationPolicy) (*ValidationService, error) {
	catalog, err := quality.BuildTripCatalog(policy)
	if err != nil {
		return nil, err
	}

	accessor, err := dataset.NewGormAccessor(db)
	if err != nil {
		return nil, err
	}

	return &ValidationService{
		db:       db,
		policy:   policy,
		catalog:  catalog,
		engine:   quality.NewEngine(policy),
		accessor: accessor,
		store:    report.NewStore(db),
		reporter: analytics.NewReporter(accessor),
	}, nil
}

// RunValidation 执行一次完整校验并持久化运行记录
// 返回的报告不含时间戳，相同数据上重复执行产出逐字节相同的报告
func (s *ValidationService) RunValidation(ctx context.Context, triggeredBy string) (*quality.Report, *models.ValidationRun, error) {
	startedAt := time.Now()

	if err := database.CheckDatasetSchema(s.db); err != nil {
		monitoring.ObserveAbortedRun(triggeredBy)
		return nil, nil, err
	}

	rep, err := s.engine.Run(ctx, s.catalog, s.accessor)
	if err != nil {
		monitoring.ObserveAbortedRun(triggeredBy)
		return nil, nil, err
	}
	finishedAt := time.Now()

	monitoring.ObserveRun(rep, finishedAt.Sub(startedAt), triggeredBy)

	run, err := s.store.SaveRun(rep, startedAt, finishedAt, triggeredBy)
	if err != nil {
		// 运行记录丢失不影响本次校验结论
		slog.Error("校验运行持久化失败", "error", err)
		return rep, nil, nil
	}

	slog.Info("校验运行完成",
		"run_id", run.ID,
		"passed", rep.Passed,
		"total_rules", rep.Summary.TotalRules,
		"failed_rules", rep.Summary.FailedRules,
		"total_violations", rep.Summary.TotalViolations,
		"duration_ms", finishedAt.Sub(startedAt).Milliseconds())

	return rep, run, nil
}

// Analytics 返回数据集统计报表器
func (s *ValidationService) Analytics() *analytics.Reporter {
	return s.reporter
}

// Store 返回校验运行存储
func (s *ValidationService) Store() *report.Store {
	return s.store
}

// Policy 返回当前生效的校验策略
func (s *ValidationService) Policy() config.ValidationPolicy {
	return s.policy
}

// Close 释放数据集访问资源
func (s *ValidationService) Close() error {
	return s.accessor.Close()
}
