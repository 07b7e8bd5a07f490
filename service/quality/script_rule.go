/*
 * @module service/quality/script_rule
 * @description 自定义脚本规则：用Yaegi解释执行Go片段，对采样行集做任意检查
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/custom_rule_script.md
 * @stateFlow 规则文件加载 -> 脚本语法校验 -> 编译缓存 -> 运行期对行集求值
 * @rules 脚本必须在目录构造期通过语法校验；脚本入参为采样行集，返回违规计数
 * @dependencies github.com/traefik/yaegi, github.com/spf13/cast, encoding/json
 * @refs catalog.go, engine.go
 */

package quality

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/cast"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"dataquality-service/service/dataset"
	"dataquality-service/service/utils"
)

// 脚本规则的采样行数上限默认值
const defaultScriptRowLimit = 1000

// ScriptRuleSpec 脚本规则定义，从JSON规则文件反序列化
type ScriptRuleSpec struct {
	Name        string `json:"name"`        // 规则名
	Description string `json:"description"` // 描述
	Severity    string `json:"severity"`    // blocking或informational，默认informational
	Table       string `json:"table"`       // 目标表，默认trips
	Where       string `json:"where"`       // 行集过滤条件，可为空
	OrderBy     string `json:"order_by"`    // 行集排序，默认trip_id
	RowLimit    int    `json:"row_limit"`   // 行集上限，默认1000
	Script      string `json:"script"`      // Go脚本片段，入参rows，返回违规计数
}

// ScriptExecutor Yaegi脚本执行器，按脚本哈希缓存编译结果
type ScriptExecutor struct {
	mu    sync.RWMutex
	cache map[string]*compiledScript
}

// compiledScript 编译后的脚本
type compiledScript struct {
	fn       func(map[string]interface{}) (interface{}, error)
	compiled time.Time
	hash     string
}

// NewScriptExecutor 创建脚本执行器
func NewScriptExecutor() *ScriptExecutor {
	return &ScriptExecutor{
		cache: make(map[string]*compiledScript),
	}
}

// wrapScript 包装脚本：脚本体成为Run函数的函数体，rows变量已就位
func wrapScript(script string) string {
	return fmt.Sprintf(`
package main

// Run 脚本入口，params["rows"]为采样行集
func Run(params map[string]interface{}) (interface{}, error) {
	rows, _ := params["rows"].([]map[string]interface{})
	_ = rows

	// 脚本内容
%s
}
`, script)
}

// Execute 执行脚本，编译结果按内容哈希缓存
// 脚本体本身运行期间不可中断，取消和超时只在进入脚本前生效
func (e *ScriptExecutor) Execute(ctx context.Context, script string, params map[string]interface{}) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hash := fmt.Sprintf("%x", sha1.Sum([]byte(script)))

	e.mu.RLock()
	compiled, ok := e.cache[hash]
	e.mu.RUnlock()

	if !ok {
		var err error
		compiled, err = e.compile(script, hash)
		if err != nil {
			return nil, fmt.Errorf("脚本编译失败: %w", err)
		}

		e.mu.Lock()
		e.cache[hash] = compiled
		e.mu.Unlock()
	}

	return compiled.fn(params)
}

// compile 编译脚本为可执行函数
func (e *ScriptExecutor) compile(script, hash string) (*compiledScript, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("加载标准库符号失败: %w", err)
	}

	if _, err := i.Eval(wrapScript(script)); err != nil {
		return nil, err
	}

	v, err := i.Eval("Run")
	if err != nil {
		return nil, fmt.Errorf("脚本缺少 Run 函数: %w", err)
	}

	runFunc, ok := v.Interface().(func(map[string]interface{}) (interface{}, error))
	if !ok {
		return nil, fmt.Errorf("Run 函数签名必须是 func(map[string]interface{}) (interface{}, error)")
	}

	return &compiledScript{
		fn:       runFunc,
		compiled: time.Now(),
		hash:     hash,
	}, nil
}

// Validate 语法校验脚本，用于目录构造期的快速失败
func (e *ScriptExecutor) Validate(script string) error {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return fmt.Errorf("加载标准库符号失败: %w", err)
	}
	if _, err := i.Eval(wrapScript(script)); err != nil {
		return err
	}
	return nil
}

// LoadScriptRules 从JSON文件加载自定义脚本规则
// 文件格式为ScriptRuleSpec数组；任何定义或语法错误都在此处转换为ConfigurationError
func LoadScriptRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("读取自定义规则文件失败: %v", err)}
	}

	var specs []ScriptRuleSpec
	if err := json.Unmarshal(data, &specs); err != nil {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("解析自定义规则文件失败: %v", err)}
	}

	executor := NewScriptExecutor()
	rules := make([]Rule, 0, len(specs))
	for _, spec := range specs {
		rule, err := NewScriptRule(spec, executor)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// NewScriptRule 由规则定义构造一条脚本规则，构造期完成语法校验
func NewScriptRule(spec ScriptRuleSpec, executor *ScriptExecutor) (Rule, error) {
	if spec.Name == "" {
		return Rule{}, &ConfigurationError{Reason: "脚本规则缺少规则名"}
	}
	if spec.Script == "" {
		return Rule{}, &ConfigurationError{Rule: spec.Name, Reason: "脚本规则缺少脚本内容"}
	}

	severity := SeverityInformational
	switch spec.Severity {
	case "", string(SeverityInformational):
	case string(SeverityBlocking):
		severity = SeverityBlocking
	default:
		return Rule{}, &ConfigurationError{Rule: spec.Name, Reason: fmt.Sprintf("未知的严重级别: %s", spec.Severity)}
	}

	if err := executor.Validate(spec.Script); err != nil {
		return Rule{}, &ConfigurationError{Rule: spec.Name, Reason: fmt.Sprintf("脚本语法错误: %v", err)}
	}

	table := spec.Table
	if table == "" {
		table = "trips"
	}
	orderBy := spec.OrderBy
	if orderBy == "" {
		orderBy = "trip_id"
	}
	rowLimit := spec.RowLimit
	if rowLimit <= 0 {
		rowLimit = defaultScriptRowLimit
	}

	return Rule{
		Name:        spec.Name,
		Category:    CategoryCustom,
		Severity:    severity,
		Description: spec.Description,
		Evaluate: func(ctx context.Context, acc dataset.Accessor) (*Evaluation, error) {
			rows, err := acc.Sample(ctx, dataset.SampleQuery{
				Table:   table,
				Where:   spec.Where,
				OrderBy: orderBy,
				Limit:   rowLimit,
			})
			if err != nil {
				return nil, err
			}

			// 归一化后再交给脚本，保证脚本看到的类型稳定
			normalized := make([]map[string]interface{}, len(rows))
			for i, row := range rows {
				normalized[i] = utils.NormalizeRow(row)
			}

			result, err := executor.Execute(ctx, spec.Script, map[string]interface{}{
				"rows": normalized,
			})
			if err != nil {
				return nil, fmt.Errorf("脚本执行失败: %w", err)
			}

			count, err := cast.ToInt64E(result)
			if err != nil {
				return nil, fmt.Errorf("脚本返回值无法转换为违规计数: %w", err)
			}
			if count < 0 {
				count = 0
			}

			return &Evaluation{ViolationCount: count}, nil
		},
	}, nil
}
