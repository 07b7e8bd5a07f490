/*
 * @module service/quality/catalog
 * @description 规则目录：有序的规则集合，以及出租车数据集的内置规则目录构建
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/quality_rule_model.md
 * @stateFlow 策略注入 -> 规则构造 -> 配置校验 -> 目录冻结
 * @rules 目录在构造后不可变；规则顺序即报告顺序；配置错误在构造期失败
 * @dependencies dataquality-service/service/config, dataquality-service/service/dataset
 * @refs rule.go, script_rule.go, engine.go
 */

package quality

import (
	"context"
	"fmt"

	"dataquality-service/service/config"
	"dataquality-service/service/dataset"
)

// Catalog 有序规则目录，构造完成后不可变
type Catalog struct {
	rules []Rule
	names map[string]struct{}
}

// NewCatalog 创建规则目录，逐条校验规则定义
func NewCatalog(rules ...Rule) (*Catalog, error) {
	c := &Catalog{names: make(map[string]struct{})}
	for _, rule := range rules {
		if err := c.add(rule); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// add 校验并追加一条规则
func (c *Catalog) add(rule Rule) error {
	if rule.Name == "" {
		return &ConfigurationError{Reason: "规则名不能为空"}
	}
	if rule.Evaluate == nil {
		return &ConfigurationError{Rule: rule.Name, Reason: "缺少评估函数"}
	}
	if rule.Severity != SeverityBlocking && rule.Severity != SeverityInformational {
		return &ConfigurationError{Rule: rule.Name, Reason: fmt.Sprintf("未知的严重级别: %s", rule.Severity)}
	}
	if _, exists := c.names[rule.Name]; exists {
		return &ConfigurationError{Rule: rule.Name, Reason: "规则名重复"}
	}
	c.names[rule.Name] = struct{}{}
	c.rules = append(c.rules, rule)
	return nil
}

// Rules 返回目录内规则的副本，保持插入顺序
func (c *Catalog) Rules() []Rule {
	rules := make([]Rule, len(c.rules))
	copy(rules, c.rules)
	return rules
}

// Len 返回规则数量
func (c *Catalog) Len() int {
	return len(c.rules)
}

// condFunc 基于方言构造违规行过滤条件
type condFunc func(d dataset.DialectExprs) (cond string, args []interface{})

// countRule 构造一条"统计违规行数+采样"形态的规则
// 违规条件的SQL在评估时由访问器方言生成，同一规则可同时运行在PostgreSQL和SQLite上
func countRule(name string, category Category, severity Severity, desc string, sampleLimit int, fn condFunc) Rule {
	return Rule{
		Name:        name,
		Category:    category,
		Severity:    severity,
		Description: desc,
		Evaluate: func(ctx context.Context, acc dataset.Accessor) (*Evaluation, error) {
			cond, args := fn(acc.Dialect())

			count, err := acc.Count(ctx, "trips", cond, args...)
			if err != nil {
				return nil, err
			}

			eval := &Evaluation{ViolationCount: count}
			if count > 0 && sampleLimit > 0 {
				samples, err := acc.Sample(ctx, dataset.SampleQuery{
					Table:   "trips",
					Where:   cond,
					Args:    args,
					OrderBy: "trip_id",
					Limit:   sampleLimit,
				})
				if err != nil {
					return nil, err
				}
				eval.Samples = samples
			}
			return eval, nil
		},
	}
}

// orphanRule 构造一条引用完整性规则：左反连接统计区域表中不存在的外键
func orphanRule(name, column, desc string, sampleLimit int) Rule {
	return Rule{
		Name:        name,
		Category:    CategoryReferential,
		Severity:    SeverityBlocking,
		Description: desc,
		Evaluate: func(ctx context.Context, acc dataset.Accessor) (*Evaluation, error) {
			count, err := acc.OrphanCount(ctx, "trips", column, "zones", "location_id")
			if err != nil {
				return nil, err
			}

			eval := &Evaluation{ViolationCount: count}
			if count > 0 && sampleLimit > 0 {
				samples, err := acc.Sample(ctx, dataset.SampleQuery{
					Table:   "trips",
					Where:   fmt.Sprintf("%s IS NOT NULL AND %s NOT IN (SELECT location_id FROM zones)", column, column),
					OrderBy: "trip_id",
					Limit:   sampleLimit,
				})
				if err != nil {
					return nil, err
				}
				eval.Samples = samples
			}
			return eval, nil
		},
	}
}

// BuildTripCatalog 构建出租车数据集的内置规则目录
// 规则口径来自数据侧既有的校验查询：完整性、取值范围、时间有效性、派生字段一致性、引用完整性
func BuildTripCatalog(policy config.ValidationPolicy) (*Catalog, error) {
	var rules []Rule

	// 完整性：关键列非空（blocking）
	criticalColumns := []string{
		"tpep_pickup_datetime",
		"tpep_dropoff_datetime",
		"fare_amount",
		"trip_distance",
		"pu_location_id",
		"do_location_id",
	}
	for _, col := range criticalColumns {
		column := col
		rules = append(rules, countRule(
			"completeness_"+column,
			CategoryCompleteness,
			SeverityBlocking,
			fmt.Sprintf("关键列 %s 不允许为空", column),
			policy.SampleLimit,
			func(dataset.DialectExprs) (string, []interface{}) {
				return column + " IS NULL", nil
			},
		))
	}

	// 完整性：辅助列与派生列非空（informational）
	auxiliaryColumns := []string{
		"vendor_id",
		"payment_type",
		"tip_amount",
		"trip_duration_minutes",
		"cost_per_mile",
		"pickup_hour",
		"pickup_date",
	}
	for _, col := range auxiliaryColumns {
		column := col
		rules = append(rules, countRule(
			"completeness_"+column,
			CategoryCompleteness,
			SeverityInformational,
			fmt.Sprintf("辅助列 %s 缺失值统计", column),
			policy.SampleLimit,
			func(dataset.DialectExprs) (string, []interface{}) {
				return column + " IS NULL", nil
			},
		))
	}

	// 取值范围：行程时长必须为正
	rules = append(rules, countRule(
		"range_trip_duration",
		CategoryRange,
		SeverityBlocking,
		"行程时长必须大于0分钟",
		policy.SampleLimit,
		func(dataset.DialectExprs) (string, []interface{}) {
			return "trip_duration_minutes <= 0", nil
		},
	))

	// 取值范围：票价落在(0, 上限]区间，上限为闭边界
	rules = append(rules, countRule(
		"range_fare_amount",
		CategoryRange,
		SeverityBlocking,
		fmt.Sprintf("票价必须落在(0, %g]区间", policy.MaxFareAmount),
		policy.SampleLimit,
		func(dataset.DialectExprs) (string, []interface{}) {
			return "fare_amount <= 0 OR fare_amount > ?", []interface{}{policy.MaxFareAmount}
		},
	))

	// 取值范围：里程落在(0, 上限]区间
	rules = append(rules, countRule(
		"range_trip_distance",
		CategoryRange,
		SeverityBlocking,
		fmt.Sprintf("里程必须落在(0, %g]区间", policy.MaxTripDistance),
		policy.SampleLimit,
		func(dataset.DialectExprs) (string, []interface{}) {
			return "trip_distance <= 0 OR trip_distance > ?", []interface{}{policy.MaxTripDistance}
		},
	))

	// 时间有效性：上车时间不得晚于下车时间（相等视为零长行程，合法）
	rules = append(rules, countRule(
		"temporal_pickup_before_dropoff",
		CategoryTemporal,
		SeverityBlocking,
		"上车时间必须早于或等于下车时间",
		policy.SampleLimit,
		func(dataset.DialectExprs) (string, []interface{}) {
			return "tpep_pickup_datetime IS NOT NULL AND tpep_dropoff_datetime IS NOT NULL" +
				" AND tpep_pickup_datetime > tpep_dropoff_datetime", nil
		},
	))

	// 一致性：行程时长等于时间戳差的截断分钟数（ETL按截断取整写入）
	rules = append(rules, countRule(
		"consistency_trip_duration",
		CategoryConsistency,
		SeverityBlocking,
		fmt.Sprintf("行程时长与时间戳重算结果的偏差不得超过%g分钟", policy.Tolerance),
		policy.SampleLimit,
		func(d dataset.DialectExprs) (string, []interface{}) {
			recomputed := d.Trunc(d.MinutesBetween("tpep_pickup_datetime", "tpep_dropoff_datetime"))
			cond := "trip_duration_minutes IS NOT NULL AND tpep_pickup_datetime IS NOT NULL" +
				" AND tpep_dropoff_datetime IS NOT NULL" +
				fmt.Sprintf(" AND ABS(trip_duration_minutes - %s) > ?", recomputed)
			return cond, []interface{}{policy.Tolerance}
		},
	))

	// 一致性：每英里成本等于票价/里程四舍五入两位；零里程行不参与检查
	rules = append(rules, countRule(
		"consistency_cost_per_mile",
		CategoryConsistency,
		SeverityBlocking,
		fmt.Sprintf("每英里成本与票价/里程重算结果的偏差不得超过%g", policy.Tolerance),
		policy.SampleLimit,
		func(d dataset.DialectExprs) (string, []interface{}) {
			recomputed := d.Round("fare_amount / trip_distance", 2)
			cond := "trip_distance > 0 AND cost_per_mile IS NOT NULL AND fare_amount IS NOT NULL" +
				fmt.Sprintf(" AND ABS(cost_per_mile - %s) > ?", recomputed)
			return cond, []interface{}{policy.Tolerance}
		},
	))

	// 一致性：上车小时等于上车时间戳的小时分量（零容差）
	rules = append(rules, countRule(
		"consistency_pickup_hour",
		CategoryConsistency,
		SeverityBlocking,
		"上车小时必须等于上车时间戳的小时分量",
		policy.SampleLimit,
		func(d dataset.DialectExprs) (string, []interface{}) {
			cond := "pickup_hour IS NOT NULL AND tpep_pickup_datetime IS NOT NULL" +
				fmt.Sprintf(" AND pickup_hour <> %s", d.HourOf("tpep_pickup_datetime"))
			return cond, nil
		},
	))

	// 一致性：上车日期等于上车时间戳的日期分量
	rules = append(rules, countRule(
		"consistency_pickup_date",
		CategoryConsistency,
		SeverityInformational,
		"上车日期必须等于上车时间戳的日期分量",
		policy.SampleLimit,
		func(d dataset.DialectExprs) (string, []interface{}) {
			cond := "pickup_date IS NOT NULL AND tpep_pickup_datetime IS NOT NULL" +
				fmt.Sprintf(" AND %s <> %s", d.DateOf("pickup_date"), d.DateOf("tpep_pickup_datetime"))
			return cond, nil
		},
	))

	// 引用完整性：上/下车区域ID必须在区域表中存在，缺失是数据缺陷而非致命错误
	rules = append(rules,
		orphanRule("referential_pickup_zone", "pu_location_id",
			"上车区域ID必须在zones表中存在", policy.SampleLimit),
		orphanRule("referential_dropoff_zone", "do_location_id",
			"下车区域ID必须在zones表中存在", policy.SampleLimit),
	)

	// 自定义脚本规则（可选）
	if policy.CustomRulesPath != "" {
		scriptRules, err := LoadScriptRules(policy.CustomRulesPath)
		if err != nil {
			return nil, err
		}
		rules = append(rules, scriptRules...)
	}

	return NewCatalog(rules...)
}
