/*
 * @module service/models/quality
 * @description 数据质量校验运行记录模型，持久化每次校验的结果和违规明细
 * @architecture 分层架构 - 数据模型层
 * @documentReference ai_docs/quality_report_design.md
 * @stateFlow 校验运行 -> 结果持久化 -> 历史查询
 * @rules 本服务拥有这两张表，由database.AutoMigrate负责迁移
 * @dependencies gorm.io/gorm, time
 * @refs service/report, service/quality
 */

package models

import "time"

// ValidationRun 一次完整的校验运行
type ValidationRun struct {
	ID              string    `json:"id" gorm:"column:id;primaryKey;size:36"`
	StartedAt       time.Time `json:"started_at" gorm:"column:started_at"`
	FinishedAt      time.Time `json:"finished_at" gorm:"column:finished_at"`
	Passed          bool      `json:"passed" gorm:"column:passed"`
	TotalRules      int       `json:"total_rules" gorm:"column:total_rules"`
	FailedRules     int       `json:"failed_rules" gorm:"column:failed_rules"`
	TotalViolations int64     `json:"total_violations" gorm:"column:total_violations"`
	TriggeredBy     string    `json:"triggered_by" gorm:"column:triggered_by;size:32"` // cli, scheduled, api
	ReportJSON      string    `json:"report_json" gorm:"column:report_json;type:text"`
}

// TableName 指定表名
func (ValidationRun) TableName() string {
	return "validation_runs"
}

// RuleViolationRecord 单条规则在某次运行中的违规摘要
type RuleViolationRecord struct {
	ID             int64  `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	RunID          string `json:"run_id" gorm:"column:run_id;size:36;index"`
	RuleName       string `json:"rule_name" gorm:"column:rule_name;size:100"`
	Category       string `json:"category" gorm:"column:category;size:32"`
	Severity       string `json:"severity" gorm:"column:severity;size:16"`
	ViolationCount int64  `json:"violation_count" gorm:"column:violation_count"`
	Passed         bool   `json:"passed" gorm:"column:passed"`
	SamplesJSON    string `json:"samples_json" gorm:"column:samples_json;type:text"`
}

// TableName 指定表名
func (RuleViolationRecord) TableName() string {
	return "rule_violation_records"
}
