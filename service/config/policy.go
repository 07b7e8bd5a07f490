/*
 * @module service/config/policy
 * @description 校验策略配置，从环境变量加载数值边界、容差、并发度等策略参数
 * @architecture 分层架构 - 配置层
 * @documentReference ai_docs/validation_policy.md
 * @stateFlow 进程启动 -> 环境变量解析 -> 策略校验 -> 注入规则目录
 * @rules 票价/里程上限和容差是业务策略而非常量，必须可配置；非法取值在启动期失败
 * @dependencies github.com/spf13/cast, os
 * @refs service/quality, service/init.go
 */

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cast"
)

// 默认策略取值，来源于数据侧既有的校验口径
const (
	DefaultMaxFareAmount   = 1000.0
	DefaultMaxTripDistance = 500.0
	DefaultTolerance       = 0.01
	DefaultSampleLimit     = 5
	DefaultWorkers         = 4
	DefaultRuleTimeout     = 30 * time.Second
)

// ValidationPolicy 校验策略参数
type ValidationPolicy struct {
	MaxFareAmount   float64       `json:"max_fare_amount"`   // 票价上限（闭区间）
	MaxTripDistance float64       `json:"max_trip_distance"` // 里程上限（闭区间）
	Tolerance       float64       `json:"tolerance"`         // 派生字段一致性容差
	SampleLimit     int           `json:"sample_limit"`      // 每条规则采样违规行上限
	Workers         int           `json:"workers"`           // 规则并发执行的worker数
	RuleTimeout     time.Duration `json:"rule_timeout"`      // 单条规则超时
	CustomRulesPath string        `json:"custom_rules_path"` // 自定义脚本规则文件路径，空表示不加载
}

// DefaultPolicy 返回默认策略
func DefaultPolicy() ValidationPolicy {
	return ValidationPolicy{
		MaxFareAmount:   DefaultMaxFareAmount,
		MaxTripDistance: DefaultMaxTripDistance,
		Tolerance:       DefaultTolerance,
		SampleLimit:     DefaultSampleLimit,
		Workers:         DefaultWorkers,
		RuleTimeout:     DefaultRuleTimeout,
	}
}

// LoadPolicy 从环境变量加载校验策略，未设置的项使用默认值
func LoadPolicy() (ValidationPolicy, error) {
	policy := DefaultPolicy()

	var err error
	if val := os.Getenv("MAX_FARE_AMOUNT"); val != "" {
		if policy.MaxFareAmount, err = cast.ToFloat64E(val); err != nil {
			return policy, fmt.Errorf("MAX_FARE_AMOUNT 解析失败: %w", err)
		}
	}
	if val := os.Getenv("MAX_TRIP_DISTANCE"); val != "" {
		if policy.MaxTripDistance, err = cast.ToFloat64E(val); err != nil {
			return policy, fmt.Errorf("MAX_TRIP_DISTANCE 解析失败: %w", err)
		}
	}
	if val := os.Getenv("CONSISTENCY_TOLERANCE"); val != "" {
		if policy.Tolerance, err = cast.ToFloat64E(val); err != nil {
			return policy, fmt.Errorf("CONSISTENCY_TOLERANCE 解析失败: %w", err)
		}
	}
	if val := os.Getenv("VIOLATION_SAMPLE_LIMIT"); val != "" {
		if policy.SampleLimit, err = cast.ToIntE(val); err != nil {
			return policy, fmt.Errorf("VIOLATION_SAMPLE_LIMIT 解析失败: %w", err)
		}
	}
	if val := os.Getenv("VALIDATION_WORKERS"); val != "" {
		if policy.Workers, err = cast.ToIntE(val); err != nil {
			return policy, fmt.Errorf("VALIDATION_WORKERS 解析失败: %w", err)
		}
	}
	if val := os.Getenv("RULE_TIMEOUT"); val != "" {
		if policy.RuleTimeout, err = time.ParseDuration(val); err != nil {
			return policy, fmt.Errorf("RULE_TIMEOUT 解析失败: %w", err)
		}
	}
	policy.CustomRulesPath = os.Getenv("CUSTOM_RULES_PATH")

	if err := policy.Validate(); err != nil {
		return policy, err
	}
	return policy, nil
}

// Validate 校验策略取值的合法性
func (p ValidationPolicy) Validate() error {
	if p.MaxFareAmount <= 0 {
		return fmt.Errorf("票价上限必须为正数: %v", p.MaxFareAmount)
	}
	if p.MaxTripDistance <= 0 {
		return fmt.Errorf("里程上限必须为正数: %v", p.MaxTripDistance)
	}
	if p.Tolerance < 0 {
		return fmt.Errorf("一致性容差不能为负: %v", p.Tolerance)
	}
	if p.SampleLimit < 0 {
		return fmt.Errorf("采样上限不能为负: %v", p.SampleLimit)
	}
	if p.Workers <= 0 {
		return fmt.Errorf("worker数必须为正数: %v", p.Workers)
	}
	if p.RuleTimeout <= 0 {
		return fmt.Errorf("规则超时必须为正数: %v", p.RuleTimeout)
	}
	return nil
}

// GetEnvWithDefault 获取环境变量，如果不存在则返回默认值
func GetEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
