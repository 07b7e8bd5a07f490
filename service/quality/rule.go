/*
 * @module service/quality/rule
 * @description 数据质量规则模型定义：规则、严重级别、类别、评估结果与报告结构
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/quality_rule_model.md
 * @stateFlow 规则定义 -> 引擎评估 -> 结果聚合 -> 报告生成
 * @rules 违规是数据发现而非错误信号；只有blocking级别规则的失败影响整体结论
 * @dependencies dataquality-service/service/dataset, context
 * @refs catalog.go, engine.go
 */

package quality

import (
	"context"
	"errors"
	"fmt"

	"dataquality-service/service/dataset"
)

// Category 规则类别
type Category string

const (
	CategoryCompleteness Category = "completeness" // 完整性：必填列非空
	CategoryRange        Category = "range"        // 取值范围：数值字段落在策略区间内
	CategoryTemporal     Category = "temporal"     // 时间有效性：上车时间早于下车时间
	CategoryConsistency  Category = "consistency"  // 派生字段一致性：派生列与原始列重算结果一致
	CategoryReferential  Category = "referential"  // 引用完整性：外键在区域表中存在
	CategoryCustom       Category = "custom"       // 自定义脚本规则
)

// Severity 规则严重级别
type Severity string

const (
	SeverityBlocking      Severity = "blocking"      // 失败导致整体校验不通过
	SeverityInformational Severity = "informational" // 仅记录，不影响整体结论
)

// Evaluation 单条规则的评估产出
type Evaluation struct {
	ViolationCount int64         // 违规行数
	Samples        []dataset.Row // 违规行采样，上限由引擎裁剪
}

// EvaluateFunc 规则评估函数，对数据集访问器执行只读检查
type EvaluateFunc func(ctx context.Context, acc dataset.Accessor) (*Evaluation, error)

// Rule 一条命名的数据质量检查
type Rule struct {
	Name        string       // 规则名，目录内唯一
	Category    Category     // 规则类别
	Severity    Severity     // 严重级别
	Description string       // 人类可读描述
	Evaluate    EvaluateFunc // 评估函数
}

// RuleResult 单条规则在一次运行中的结果
type RuleResult struct {
	RuleName       string        `json:"rule_name"`
	Category       Category      `json:"category"`
	Severity       Severity      `json:"severity"`
	Description    string        `json:"description"`
	ViolationCount int64         `json:"violation_count"`
	Passed         bool          `json:"passed"`
	Samples        []dataset.Row `json:"samples,omitempty"`
}

// Summary 报告汇总计数
type Summary struct {
	TotalRules          int   `json:"total_rules"`
	PassedRules         int   `json:"passed_rules"`
	FailedRules         int   `json:"failed_rules"`
	FailedBlockingRules int   `json:"failed_blocking_rules"`
	TotalViolations     int64 `json:"total_violations"`
}

// Report 一次校验运行的完整结果
// 结构内不携带时间戳等运行期元数据：同一数据快照上重复运行必须产出字节级相同的报告
type Report struct {
	Results []RuleResult `json:"results"`
	Passed  bool         `json:"passed"`
	Summary Summary      `json:"summary"`
}

// ConfigurationError 规则配置错误，在目录构造期检出并使启动失败
type ConfigurationError struct {
	Rule   string // 出错的规则名，可为空
	Reason string // 错误原因
}

// Error 实现error接口
func (e *ConfigurationError) Error() string {
	if e.Rule == "" {
		return fmt.Sprintf("规则配置错误: %s", e.Reason)
	}
	return fmt.Sprintf("规则 %s 配置错误: %s", e.Rule, e.Reason)
}

// IsConfigurationError 判断错误链中是否包含ConfigurationError
func IsConfigurationError(err error) bool {
	var confErr *ConfigurationError
	return errors.As(err, &confErr)
}
