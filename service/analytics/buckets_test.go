/*
 * @module service/analytics/buckets_test
 * @description 直方图分桶测试：CASE表达式生成和标签序列
 * @architecture 测试层
 * @stateFlow 边界表 -> 表达式生成 -> 文本验证
 * @rules 分桶边界为闭上界
 * @dependencies testing, github.com/stretchr/testify/assert
 * @refs buckets.go
 */

package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBucketCaseExpr(t *testing.T) {
	expr := BucketCaseExpr("tip_amount", TipBuckets, TipOverflowLabel)

	assert.Equal(t,
		"CASE WHEN tip_amount <= 0 THEN 'no tip'"+
			" WHEN tip_amount <= 2 THEN '0-2 usd'"+
			" WHEN tip_amount <= 5 THEN '2-5 usd'"+
			" ELSE '5+ usd' END",
		expr)
}

func TestBucketLabels(t *testing.T) {
	labels := BucketLabels(DurationBuckets, DurationOverflowLabel)

	assert.Equal(t, []string{"0-5 min", "5-15 min", "15-30 min", "30-60 min", "60+ min"}, labels)
}

func TestBucketTables(t *testing.T) {
	// 边界表升序排列，CASE短路语义依赖这一点
	for _, buckets := range [][]Bucket{DurationBuckets, DistanceBuckets, TipBuckets} {
		for i := 1; i < len(buckets); i++ {
			assert.Greater(t, buckets[i].UpperBound, buckets[i-1].UpperBound)
		}
	}
}
