/*
 * @module service/quality/script_rule_test
 * @description 自定义脚本规则测试：脚本执行、编译缓存、规则文件加载和配置错误
 * @architecture 测试层
 * @stateFlow 脚本定义 -> 规则构造 -> 行集求值 -> 结果验证
 * @rules 脚本语法错误必须在目录构造期失败
 * @dependencies testing, github.com/stretchr/testify, dataquality-service/testutil
 * @refs script_rule.go
 */

package quality_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataquality-service/service/dataset"
	"dataquality-service/service/quality"
	"dataquality-service/testutil"
)

const passengerCountScript = `
	violations := 0
	for _, row := range rows {
		if pc, ok := row["passenger_count"].(int64); ok && pc > 6 {
			violations++
		}
	}
	return violations, nil
`

func TestScriptExecutor_Execute(t *testing.T) {
	executor := quality.NewScriptExecutor()

	result, err := executor.Execute(context.Background(), `
	count := 0
	for range rows {
		count++
	}
	return count, nil
`, map[string]interface{}{
		"rows": []map[string]interface{}{{"a": int64(1)}, {"a": int64(2)}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result)
}

func TestScriptExecutor_CanceledContext(t *testing.T) {
	executor := quality.NewScriptExecutor()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := executor.Execute(ctx, "return 0, nil", map[string]interface{}{
		"rows": []map[string]interface{}{},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScriptExecutor_CompileError(t *testing.T) {
	executor := quality.NewScriptExecutor()

	err := executor.Validate(`this is not go`)
	assert.Error(t, err)
}

func TestNewScriptRule_ConfigurationErrors(t *testing.T) {
	executor := quality.NewScriptExecutor()

	tests := []struct {
		name string
		spec quality.ScriptRuleSpec
	}{
		{"缺少规则名", quality.ScriptRuleSpec{Script: "return 0, nil"}},
		{"缺少脚本", quality.ScriptRuleSpec{Name: "no_script"}},
		{"未知严重级别", quality.ScriptRuleSpec{Name: "bad", Severity: "fatal", Script: "return 0, nil"}},
		{"脚本语法错误", quality.ScriptRuleSpec{Name: "syntax", Script: "return return"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := quality.NewScriptRule(tt.spec, executor)
			require.Error(t, err)
			assert.True(t, quality.IsConfigurationError(err))
		})
	}
}

func TestScriptRule_Evaluate(t *testing.T) {
	tdb := testutil.NewTestDB()
	t.Cleanup(tdb.Close)

	acc, err := dataset.NewGormAccessor(tdb.DB)
	require.NoError(t, err)

	factory := testutil.NewTestDataFactory(tdb.DB)
	factory.CreateTrip()
	crowded := factory.CreateTrip()
	factory.DB.Model(crowded).Update("passenger_count", 8)

	rule, err := quality.NewScriptRule(quality.ScriptRuleSpec{
		Name:        "custom_passenger_count",
		Description: "乘客数不应超过6人",
		Severity:    "blocking",
		Script:      passengerCountScript,
	}, quality.NewScriptExecutor())
	require.NoError(t, err)

	assert.Equal(t, quality.CategoryCustom, rule.Category)
	assert.Equal(t, quality.SeverityBlocking, rule.Severity)

	eval, err := rule.Evaluate(context.Background(), acc)
	require.NoError(t, err)
	assert.Equal(t, int64(1), eval.ViolationCount)
}

func TestScriptRule_DefaultSeverityInformational(t *testing.T) {
	rule, err := quality.NewScriptRule(quality.ScriptRuleSpec{
		Name:   "defaults",
		Script: "return 0, nil",
	}, quality.NewScriptExecutor())
	require.NoError(t, err)

	assert.Equal(t, quality.SeverityInformational, rule.Severity)
}

func TestLoadScriptRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.json")
	content := `[
  {
    "name": "custom_row_count",
    "description": "采样行集非空",
    "severity": "informational",
    "script": "if len(rows) == 0 { return 0, nil }\nreturn 0, nil"
  }
]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rules, err := quality.LoadScriptRules(path)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "custom_row_count", rules[0].Name)
}

func TestLoadScriptRules_BadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := quality.LoadScriptRules(path)
	require.Error(t, err)
	assert.True(t, quality.IsConfigurationError(err))
}
