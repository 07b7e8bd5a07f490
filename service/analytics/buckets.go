/*
 * @module service/analytics/buckets
 * @description 直方图分桶定义：共享的(上界,标签)边界表和通用CASE表达式构造
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/analytics_report.md
 * @stateFlow 边界表定义 -> CASE表达式生成 -> 分组聚合 -> 按边界顺序输出
 * @rules 时长/里程/小费的分桶阈值集中在边界表里，禁止在查询里重复阈值
 * @dependencies fmt, strings
 * @refs reporter.go
 */

package analytics

import (
	"fmt"
	"strings"
)

// Bucket 一个直方图分桶：闭上界和标签
type Bucket struct {
	UpperBound float64 // 闭上界，取值 <= UpperBound 落入本桶
	Label      string  // 桶标签
}

// 行程时长分桶（分钟）
var DurationBuckets = []Bucket{
	{UpperBound: 5, Label: "0-5 min"},
	{UpperBound: 15, Label: "5-15 min"},
	{UpperBound: 30, Label: "15-30 min"},
	{UpperBound: 60, Label: "30-60 min"},
}

// DurationOverflowLabel 超出最后一个时长分桶的标签
const DurationOverflowLabel = "60+ min"

// 行程里程分桶（英里）
var DistanceBuckets = []Bucket{
	{UpperBound: 1, Label: "0-1 mi"},
	{UpperBound: 3, Label: "1-3 mi"},
	{UpperBound: 5, Label: "3-5 mi"},
	{UpperBound: 10, Label: "5-10 mi"},
}

// DistanceOverflowLabel 超出最后一个里程分桶的标签
const DistanceOverflowLabel = "10+ mi"

// 小费分桶（美元），上界0即无小费
var TipBuckets = []Bucket{
	{UpperBound: 0, Label: "no tip"},
	{UpperBound: 2, Label: "0-2 usd"},
	{UpperBound: 5, Label: "2-5 usd"},
}

// TipOverflowLabel 超出最后一个小费分桶的标签
const TipOverflowLabel = "5+ usd"

// BucketCaseExpr 由边界表生成CASE分桶表达式
// 生成形如 CASE WHEN col <= b1 THEN 'l1' ... ELSE 'overflow' END 的SQL片段
func BucketCaseExpr(column string, buckets []Bucket, overflowLabel string) string {
	var sb strings.Builder
	sb.WriteString("CASE")
	for _, bucket := range buckets {
		fmt.Fprintf(&sb, " WHEN %s <= %g THEN '%s'", column, bucket.UpperBound, bucket.Label)
	}
	fmt.Fprintf(&sb, " ELSE '%s' END", overflowLabel)
	return sb.String()
}

// BucketLabels 返回边界表的标签序列（含溢出桶），用于结果排序
func BucketLabels(buckets []Bucket, overflowLabel string) []string {
	labels := make([]string, 0, len(buckets)+1)
	for _, bucket := range buckets {
		labels = append(labels, bucket.Label)
	}
	return append(labels, overflowLabel)
}
