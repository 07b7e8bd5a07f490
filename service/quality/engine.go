/*
 * @module service/quality/engine
 * @description 校验引擎：按规则目录并发执行规则评估，聚合为确定性的校验报告
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/quality_rule_model.md
 * @stateFlow 目录加载 -> worker池并发评估 -> 结果按目录顺序聚合 -> 报告产出
 * @rules 违规是数据发现不中断运行；AccessError中止整次运行并指明失败规则；报告顺序与目录顺序一致
 * @dependencies dataquality-service/service/dataset, dataquality-service/service/config, sync
 * @refs catalog.go, service/report
 */

package quality

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"dataquality-service/service/config"
	"dataquality-service/service/dataset"
	"dataquality-service/service/utils"
)

// Engine 校验引擎
type Engine struct {
	workers     int
	ruleTimeout time.Duration
	sampleLimit int
}

// NewEngine 按策略创建校验引擎
func NewEngine(policy config.ValidationPolicy) *Engine {
	return &Engine{
		workers:     policy.Workers,
		ruleTimeout: policy.RuleTimeout,
		sampleLimit: policy.SampleLimit,
	}
}

// Run 对数据集执行整个规则目录，返回确定性的校验报告
// 规则评估相互独立，由有界worker池并发执行；每条规则写入自己的结果槽位，
// 报告始终按目录顺序排列，与执行顺序无关
func (e *Engine) Run(ctx context.Context, catalog *Catalog, acc dataset.Accessor) (*Report, error) {
	rules := catalog.Rules()
	results := make([]RuleResult, len(rules))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg      sync.WaitGroup
		errOnce sync.Once
		runErr  error
	)
	sem := make(chan struct{}, e.workers)

	for i, rule := range rules {
		// 进程级中止信号在规则分发之间生效
		if runCtx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, r Rule) {
			defer wg.Done()
			defer func() { <-sem }()

			result, err := e.evaluateRule(runCtx, r, acc)
			if err != nil {
				errOnce.Do(func() {
					runErr = err
					cancel()
				})
				return
			}
			results[idx] = *result
		}(i, rule)
	}

	wg.Wait()

	if runErr != nil {
		return nil, runErr
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("校验运行被中止: %w", err)
	}

	return assembleReport(results), nil
}

// evaluateRule 执行单条规则，超时和访问失败统一转换为AccessError
func (e *Engine) evaluateRule(ctx context.Context, rule Rule, acc dataset.Accessor) (*RuleResult, error) {
	ruleCtx, cancel := context.WithTimeout(ctx, e.ruleTimeout)
	defer cancel()

	eval, err := rule.Evaluate(ruleCtx, acc)
	if err != nil {
		if !dataset.IsAccessError(err) {
			err = &dataset.AccessError{Op: "evaluate", Table: "trips", Err: err}
		}
		return nil, fmt.Errorf("规则 %s 评估失败: %w", rule.Name, err)
	}

	samples := eval.Samples
	if len(samples) > e.sampleLimit {
		samples = samples[:e.sampleLimit]
	}
	normalized := make([]dataset.Row, len(samples))
	for i, sample := range samples {
		normalized[i] = utils.NormalizeRow(sample)
	}
	if len(normalized) == 0 {
		normalized = nil
	}

	passed := eval.ViolationCount == 0
	if !passed {
		slog.Debug("规则发现违规数据",
			"rule", rule.Name,
			"severity", rule.Severity,
			"violations", eval.ViolationCount)
	}

	return &RuleResult{
		RuleName:       rule.Name,
		Category:       rule.Category,
		Severity:       rule.Severity,
		Description:    rule.Description,
		ViolationCount: eval.ViolationCount,
		Passed:         passed,
		Samples:        normalized,
	}, nil
}

// assembleReport 按目录顺序聚合规则结果
func assembleReport(results []RuleResult) *Report {
	report := &Report{
		Results: results,
		Passed:  true,
	}

	for _, result := range results {
		report.Summary.TotalRules++
		report.Summary.TotalViolations += result.ViolationCount
		if result.Passed {
			report.Summary.PassedRules++
			continue
		}
		report.Summary.FailedRules++
		if result.Severity == SeverityBlocking {
			report.Summary.FailedBlockingRules++
			report.Passed = false
		}
	}
	return report
}
