/*
 * @module service/report/store
 * @description 校验运行持久化：把每次运行的报告和违规摘要写入服务自有表
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/quality_report_design.md
 * @stateFlow 校验完成 -> 运行记录与违规明细入库 -> 历史查询
 * @rules 持久化失败不改变报告内容；报告本体以JSON全文存档
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/models, service/quality
 */

package report

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"dataquality-service/service/models"
	"dataquality-service/service/quality"
)

// Store 校验运行存储
type Store struct {
	db *gorm.DB
}

// NewStore 创建校验运行存储
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// SaveRun 持久化一次校验运行及其违规明细
func (s *Store) SaveRun(rep *quality.Report, startedAt, finishedAt time.Time, triggeredBy string) (*models.ValidationRun, error) {
	reportJSON, err := json.Marshal(rep)
	if err != nil {
		return nil, fmt.Errorf("报告序列化失败: %w", err)
	}

	run := &models.ValidationRun{
		ID:              uuid.NewString(),
		StartedAt:       startedAt,
		FinishedAt:      finishedAt,
		Passed:          rep.Passed,
		TotalRules:      rep.Summary.TotalRules,
		FailedRules:     rep.Summary.FailedRules,
		TotalViolations: rep.Summary.TotalViolations,
		TriggeredBy:     triggeredBy,
		ReportJSON:      string(reportJSON),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(run).Error; err != nil {
			return err
		}

		records := make([]models.RuleViolationRecord, 0, len(rep.Results))
		for _, result := range rep.Results {
			samplesJSON := ""
			if len(result.Samples) > 0 {
				data, err := json.Marshal(result.Samples)
				if err != nil {
					return fmt.Errorf("违规采样序列化失败: %w", err)
				}
				samplesJSON = string(data)
			}
			records = append(records, models.RuleViolationRecord{
				RunID:          run.ID,
				RuleName:       result.RuleName,
				Category:       string(result.Category),
				Severity:       string(result.Severity),
				ViolationCount: result.ViolationCount,
				Passed:         result.Passed,
				SamplesJSON:    samplesJSON,
			})
		}
		if len(records) > 0 {
			if err := tx.Create(&records).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("保存校验运行失败: %w", err)
	}

	return run, nil
}

// LatestRun 查询最近一次校验运行
func (s *Store) LatestRun() (*models.ValidationRun, error) {
	var run models.ValidationRun
	err := s.db.Order("started_at DESC, id DESC").First(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// RunHistory 查询最近limit次校验运行，按开始时间倒序
func (s *Store) RunHistory(limit int) ([]models.ValidationRun, error) {
	var runs []models.ValidationRun
	err := s.db.Order("started_at DESC, id DESC").Limit(limit).Find(&runs).Error
	if err != nil {
		return nil, err
	}
	return runs, nil
}

// RunViolations 查询某次运行的违规明细
func (s *Store) RunViolations(runID string) ([]models.RuleViolationRecord, error) {
	var records []models.RuleViolationRecord
	err := s.db.Where("run_id = ?", runID).Order("id ASC").Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
