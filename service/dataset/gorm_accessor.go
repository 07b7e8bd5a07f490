/*
 * @module service/dataset/gorm_accessor
 * @description 基于GORM的数据集访问器实现，支持PostgreSQL与SQLite两种方言
 * @architecture 分层架构 - 数据访问层
 * @documentReference ai_docs/dataset_accessor_design.md
 * @stateFlow 接收查询参数 -> 组装GORM查询 -> 下推到存储执行 -> 包装错误返回
 * @rules 生产环境使用PostgreSQL，测试环境使用SQLite，方言差异由DialectExprs屏蔽
 * @dependencies gorm.io/gorm
 * @refs service/quality, service/analytics, testutil
 */

package dataset

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// GormAccessor GORM实现的数据集访问器
type GormAccessor struct {
	db    *gorm.DB
	exprs DialectExprs
}

// NewGormAccessor 创建GORM数据集访问器，按连接方言选择表达式构造器
func NewGormAccessor(db *gorm.DB) (*GormAccessor, error) {
	var exprs DialectExprs
	switch db.Dialector.Name() {
	case "postgres":
		exprs = postgresExprs{}
	case "sqlite":
		exprs = sqliteExprs{}
	default:
		return nil, fmt.Errorf("不支持的数据库方言: %s", db.Dialector.Name())
	}
	return &GormAccessor{db: db, exprs: exprs}, nil
}

// Count 统计满足条件的行数
func (a *GormAccessor) Count(ctx context.Context, table, cond string, args ...interface{}) (int64, error) {
	query := a.db.WithContext(ctx).Table(table)
	if cond != "" {
		query = query.Where(cond, args...)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, &AccessError{Op: "count", Table: table, Err: err}
	}
	return count, nil
}

// DistinctCount 统计某列去重后的取值数量
func (a *GormAccessor) DistinctCount(ctx context.Context, table, column string) (int64, error) {
	var count int64
	err := a.db.WithContext(ctx).Table(table).Distinct(column).Count(&count).Error
	if err != nil {
		return 0, &AccessError{Op: "distinct_count", Table: table, Err: err}
	}
	return count, nil
}

// Sample 按确定性顺序采样满足条件的行
func (a *GormAccessor) Sample(ctx context.Context, q SampleQuery) ([]Row, error) {
	query := a.db.WithContext(ctx).Table(q.Table)
	if len(q.Columns) > 0 {
		query = query.Select(strings.Join(q.Columns, ", "))
	}
	if q.Where != "" {
		query = query.Where(q.Where, q.Args...)
	}
	if q.OrderBy != "" {
		query = query.Order(q.OrderBy)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	var rows []map[string]interface{}
	if err := query.Find(&rows).Error; err != nil {
		return nil, &AccessError{Op: "sample", Table: q.Table, Err: err}
	}

	result := make([]Row, len(rows))
	for i, row := range rows {
		result[i] = Row(row)
	}
	return result, nil
}

// Aggregate 执行分组聚合查询
func (a *GormAccessor) Aggregate(ctx context.Context, q AggregateQuery) ([]Row, error) {
	query := a.db.WithContext(ctx).Table(q.Table).Select(strings.Join(q.Select, ", "))
	for _, join := range q.Joins {
		query = query.Joins(join)
	}
	if q.Where != "" {
		query = query.Where(q.Where, q.Args...)
	}
	if q.GroupBy != "" {
		query = query.Group(q.GroupBy)
	}
	if q.OrderBy != "" {
		query = query.Order(q.OrderBy)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	var rows []map[string]interface{}
	if err := query.Find(&rows).Error; err != nil {
		return nil, &AccessError{Op: "aggregate", Table: q.Table, Err: err}
	}

	result := make([]Row, len(rows))
	for i, row := range rows {
		result[i] = Row(row)
	}
	return result, nil
}

// OrphanCount 左反连接统计孤儿行数
func (a *GormAccessor) OrphanCount(ctx context.Context, leftTable, leftColumn, rightTable, rightKey string) (int64, error) {
	var count int64
	err := a.db.WithContext(ctx).
		Table(leftTable+" AS l").
		Joins(fmt.Sprintf("LEFT JOIN %s AS r ON l.%s = r.%s", rightTable, leftColumn, rightKey)).
		Where(fmt.Sprintf("l.%s IS NOT NULL AND r.%s IS NULL", leftColumn, rightKey)).
		Count(&count).Error
	if err != nil {
		return 0, &AccessError{Op: "orphan_count", Table: leftTable, Err: err}
	}
	return count, nil
}

// Dialect 返回方言表达式构造器
func (a *GormAccessor) Dialect() DialectExprs {
	return a.exprs
}

// Close 释放底层连接池
func (a *GormAccessor) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// postgresExprs PostgreSQL方言表达式
type postgresExprs struct{}

func (postgresExprs) MinutesBetween(start, end string) string {
	return fmt.Sprintf("EXTRACT(EPOCH FROM (%s - %s)) / 60.0", end, start)
}

func (postgresExprs) HourOf(column string) string {
	return fmt.Sprintf("EXTRACT(HOUR FROM %s)::int", column)
}

func (postgresExprs) DateOf(column string) string {
	return fmt.Sprintf("%s::date", column)
}

func (postgresExprs) Round(expr string, digits int) string {
	return fmt.Sprintf("ROUND((%s)::numeric, %d)", expr, digits)
}

func (postgresExprs) Trunc(expr string) string {
	return fmt.Sprintf("TRUNC(%s)", expr)
}

// sqliteExprs SQLite方言表达式
type sqliteExprs struct{}

// julianday差值带有约1e-6分钟的浮点抖动，先修约再参与截断
func (sqliteExprs) MinutesBetween(start, end string) string {
	return fmt.Sprintf("ROUND((julianday(%s) - julianday(%s)) * 1440.0, 4)", end, start)
}

func (sqliteExprs) HourOf(column string) string {
	return fmt.Sprintf("CAST(strftime('%%H', %s) AS INTEGER)", column)
}

func (sqliteExprs) DateOf(column string) string {
	return fmt.Sprintf("date(%s)", column)
}

func (sqliteExprs) Round(expr string, digits int) string {
	return fmt.Sprintf("ROUND(%s, %d)", expr, digits)
}

func (sqliteExprs) Trunc(expr string) string {
	return fmt.Sprintf("CAST(%s AS INTEGER)", expr)
}
