/*
 * @module service/utils/value_converter
 * @description 值转换工具，将不同驱动返回的原始值归一化为稳定的可序列化类型
 * @architecture 工具函数模式，提供静态转换方法集合
 * @documentReference ai_docs/quality_report_design.md
 * @stateFlow 无状态转换：输入 -> 转换逻辑 -> 输出
 * @rules
 *   - SQLite驱动返回的[]byte统一转为string
 *   - 时间值统一格式化，保证报告序列化结果的确定性
 *   - 整数族统一为int64，浮点族统一为float64
 * @dependencies github.com/spf13/cast, time, math
 * @refs service/quality/engine.go, service/report
 */

package utils

import (
	"math"
	"time"

	"github.com/spf13/cast"
)

// timeLayout 报告中时间值的统一格式
const timeLayout = "2006-01-02 15:04:05"

// NormalizeValue 将单个原始值归一化为稳定的可序列化类型
func NormalizeValue(value interface{}) interface{} {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return string(v)
	case time.Time:
		return v.UTC().Format(timeLayout)
	case *time.Time:
		if v == nil {
			return nil
		}
		return v.UTC().Format(timeLayout)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return cast.ToInt64(v)
	case float32, float64:
		return cast.ToFloat64(v)
	default:
		return v
	}
}

// NormalizeRow 归一化一行数据的所有值
func NormalizeRow(row map[string]interface{}) map[string]interface{} {
	if row == nil {
		return nil
	}
	normalized := make(map[string]interface{}, len(row))
	for key, value := range row {
		normalized[key] = NormalizeValue(value)
	}
	return normalized
}

// RoundTo 四舍五入到指定小数位
func RoundTo(value float64, digits int) float64 {
	factor := math.Pow(10, float64(digits))
	return math.Round(value*factor) / factor
}
