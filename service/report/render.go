/*
 * @module service/report/render
 * @description 校验报告渲染：人类可读文本和机器可读JSON两种输出
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/quality_report_design.md
 * @stateFlow 报告结构 -> 序列化/排版 -> 输出字符串
 * @rules 渲染是纯函数；同一报告的渲染结果字节级一致
 * @dependencies encoding/json, fmt, strings
 * @refs service/quality, main.go
 */

package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"dataquality-service/service/quality"
)

// RenderJSON 渲染机器可读的JSON报告
func RenderJSON(rep *quality.Report) (string, error) {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", fmt.Errorf("报告序列化失败: %w", err)
	}
	return string(data), nil
}

// RenderText 渲染人类可读的文本报告
func RenderText(rep *quality.Report) string {
	var sb strings.Builder

	sb.WriteString(strings.Repeat("=", 72) + "\n")
	sb.WriteString("数据质量校验报告\n")
	sb.WriteString(strings.Repeat("=", 72) + "\n")

	for _, result := range rep.Results {
		status := "PASS"
		if !result.Passed {
			status = "FAIL"
		}
		fmt.Fprintf(&sb, "[%s] %-40s %-14s violations=%d\n",
			status, result.RuleName, result.Category, result.ViolationCount)
		if !result.Passed && result.Severity == quality.SeverityInformational {
			sb.WriteString("       (informational，不影响整体结论)\n")
		}
	}

	sb.WriteString(strings.Repeat("-", 72) + "\n")
	fmt.Fprintf(&sb, "规则总数: %d  通过: %d  失败: %d  blocking失败: %d  违规行合计: %d\n",
		rep.Summary.TotalRules,
		rep.Summary.PassedRules,
		rep.Summary.FailedRules,
		rep.Summary.FailedBlockingRules,
		rep.Summary.TotalViolations)

	overall := "PASSED"
	if !rep.Passed {
		overall = "FAILED"
	}
	fmt.Fprintf(&sb, "整体结论: %s\n", overall)
	sb.WriteString(strings.Repeat("=", 72) + "\n")

	return sb.String()
}
