/*
 * @module service/monitoring/metrics
 * @description 校验运行指标：以Prometheus指标暴露运行结果、耗时和逐规则违规量
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/quality_report_design.md
 * @stateFlow 校验完成 -> 指标更新 -> /metrics拉取
 * @rules 指标注册在包加载时完成一次；违规量按规则名打标签
 * @dependencies github.com/prometheus/client_golang/prometheus
 * @refs main.go, service/validation_service.go
 */

package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"dataquality-service/service/quality"
)

var (
	validationRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataquality_validation_runs_total",
			Help: "校验运行次数，按结果和触发方式分类",
		},
		[]string{"result", "trigger"},
	)

	validationRunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dataquality_validation_run_duration_seconds",
			Help:    "校验运行耗时分布",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)

	ruleViolations = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dataquality_rule_violations",
			Help: "最近一次运行中每条规则的违规行数",
		},
		[]string{"rule", "category", "severity"},
	)

	ruleFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataquality_rule_failures_total",
			Help: "规则失败的累计次数",
		},
		[]string{"rule", "severity"},
	)
)

func init() {
	prometheus.MustRegister(
		validationRunsTotal,
		validationRunDuration,
		ruleViolations,
		ruleFailuresTotal,
	)
}

// ObserveRun 记录一次校验运行的指标
func ObserveRun(rep *quality.Report, duration time.Duration, trigger string) {
	result := "passed"
	if !rep.Passed {
		result = "failed"
	}
	validationRunsTotal.WithLabelValues(result, trigger).Inc()
	validationRunDuration.Observe(duration.Seconds())

	for _, r := range rep.Results {
		ruleViolations.WithLabelValues(r.RuleName, string(r.Category), string(r.Severity)).
			Set(float64(r.ViolationCount))
		if !r.Passed {
			ruleFailuresTotal.WithLabelValues(r.RuleName, string(r.Severity)).Inc()
		}
	}
}

// ObserveAbortedRun 记录一次因访问错误中止的运行
func ObserveAbortedRun(trigger string) {
	validationRunsTotal.WithLabelValues("aborted", trigger).Inc()
}
