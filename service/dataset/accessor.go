/*
 * @module service/dataset/accessor
 * @description 数据集访问器接口定义，校验引擎访问底层存储的唯一边界
 * @architecture 分层架构 - 数据访问层
 * @documentReference ai_docs/dataset_accessor_design.md
 * @stateFlow 构建访问器 -> 规则只读查询 -> 运行结束释放连接
 * @rules 所有操作只读，过滤/聚合下推到存储端执行，不在内存物化全表
 * @dependencies context, errors
 * @refs service/quality, service/analytics
 */

package dataset

import (
	"context"
	"errors"
	"fmt"
)

// AccessError 存储访问错误：连接不可达、表或列不存在等
// 对当次校验运行不可恢复，携带失败的操作和表名用于诊断
type AccessError struct {
	Op    string // 失败的访问器操作
	Table string // 目标表
	Err   error  // 底层错误
}

// Error 实现error接口
func (e *AccessError) Error() string {
	return fmt.Sprintf("数据集访问失败 [%s %s]: %v", e.Op, e.Table, e.Err)
}

// Unwrap 返回底层错误
func (e *AccessError) Unwrap() error {
	return e.Err
}

// IsAccessError 判断错误链中是否包含AccessError
func IsAccessError(err error) bool {
	var accessErr *AccessError
	return errors.As(err, &accessErr)
}

// SampleQuery 采样查询参数
type SampleQuery struct {
	Table   string        // 目标表
	Columns []string      // 返回列，空表示全部列
	Where   string        // 过滤条件SQL片段
	Args    []interface{} // 条件参数
	OrderBy string        // 排序表达式，保证采样结果确定性
	Limit   int           // 采样上限
}

// AggregateQuery 分组聚合查询参数
type AggregateQuery struct {
	Table   string        // 目标表（可带别名）
	Select  []string      // 选择表达式列表
	Joins   []string      // JOIN子句
	Where   string        // 过滤条件SQL片段
	Args    []interface{} // 条件参数
	GroupBy string        // 分组表达式
	OrderBy string        // 排序表达式
	Limit   int           // 返回行数上限，0表示不限制
}

// Row 一行查询结果，列名到取值的映射
type Row map[string]interface{}

// Accessor 数据集访问器，对底层关系存储的只读抽象
// 实现必须支持并发读取，所有方法在存储不可达或schema不匹配时返回*AccessError
type Accessor interface {
	// Count 统计满足条件的行数，cond为空统计全表
	Count(ctx context.Context, table, cond string, args ...interface{}) (int64, error)

	// DistinctCount 统计某列去重后的取值数量
	DistinctCount(ctx context.Context, table, column string) (int64, error)

	// Sample 按确定性顺序采样满足条件的行
	Sample(ctx context.Context, q SampleQuery) ([]Row, error)

	// Aggregate 执行分组聚合查询，返回顺序由OrderBy决定
	Aggregate(ctx context.Context, q AggregateQuery) ([]Row, error)

	// OrphanCount 左反连接统计孤儿行数：左表外键列的取值在右表键列中不存在
	OrphanCount(ctx context.Context, leftTable, leftColumn, rightTable, rightKey string) (int64, error)

	// Dialect 返回方言相关的SQL表达式构造器
	Dialect() DialectExprs

	// Close 释放底层连接资源，校验运行结束后必须调用
	Close() error
}

// DialectExprs 方言相关的SQL表达式构造器
// 同一套规则SQL需要同时运行在生产环境的PostgreSQL和测试环境的SQLite上，
// 时间/取整函数的方言差异集中在这里处理
type DialectExprs interface {
	// MinutesBetween 两个时间戳列之间的分钟差（浮点）
	MinutesBetween(start, end string) string
	// HourOf 时间戳列的小时分量（整数0-23）
	HourOf(column string) string
	// DateOf 时间戳列的日期分量（YYYY-MM-DD）
	DateOf(column string) string
	// Round 表达式四舍五入到指定小数位
	Round(expr string, digits int) string
	// Trunc 表达式截断取整（向零取整）
	Trunc(expr string) string
}
