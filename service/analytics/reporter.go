/*
 * @module service/analytics/reporter
 * @description 分析报表：在数据集访问器之上计算高峰时段、支付分布、区域流量等描述性聚合
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/analytics_report.md
 * @stateFlow 聚合查询下推 -> 结果取值归一化 -> 精度修约 -> 报表结构输出
 * @rules 货币/里程保留两位小数，时长保留一位；分布类报表的百分比之和必须为100±0.01
 * @dependencies dataquality-service/service/dataset, github.com/spf13/cast
 * @refs buckets.go, api/controllers
 */

package analytics

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"dataquality-service/service/dataset"
	"dataquality-service/service/utils"
)

// Reporter 分析报表生成器
type Reporter struct {
	acc dataset.Accessor
}

// NewReporter 创建分析报表生成器
func NewReporter(acc dataset.Accessor) *Reporter {
	return &Reporter{acc: acc}
}

// OverallStats 全量行程统计
type OverallStats struct {
	TotalTrips         int64   `json:"total_trips"`
	AvgFare            float64 `json:"avg_fare"`
	AvgDistance        float64 `json:"avg_distance"`
	AvgDurationMinutes float64 `json:"avg_duration_minutes"`
	AvgCostPerMile     float64 `json:"avg_cost_per_mile"`
}

// HourStat 单个小时的行程统计
type HourStat struct {
	PickupHour  int     `json:"pickup_hour"`
	TripCount   int64   `json:"trip_count"`
	AvgFare     float64 `json:"avg_fare"`
	AvgDistance float64 `json:"avg_distance"`
}

// PaymentStat 单个支付方式的分布统计
type PaymentStat struct {
	PaymentType int     `json:"payment_type"`
	TripCount   int64   `json:"trip_count"`
	Percentage  float64 `json:"percentage"`
}

// ZoneStat 单个区域的行程统计
type ZoneStat struct {
	ZoneName  string  `json:"zone_name"`
	Borough   string  `json:"borough"`
	TripCount int64   `json:"trip_count"`
	AvgFare   float64 `json:"avg_fare"`
}

// BoroughPairStat 行政区对的行程流量
type BoroughPairStat struct {
	PickupBorough  string `json:"pickup_borough"`
	DropoffBorough string `json:"dropoff_borough"`
	TripCount      int64  `json:"trip_count"`
}

// DailyStat 单日行程计数
type DailyStat struct {
	Date      string `json:"date"`
	TripCount int64  `json:"trip_count"`
}

// HistogramBin 直方图的单个分桶结果
type HistogramBin struct {
	Label      string  `json:"label"`
	TripCount  int64   `json:"trip_count"`
	Percentage float64 `json:"percentage"`
}

// OverallStats 计算全量行程统计，货币/里程两位小数，时长一位
func (r *Reporter) OverallStats(ctx context.Context) (*OverallStats, error) {
	rows, err := r.acc.Aggregate(ctx, dataset.AggregateQuery{
		Table: "trips",
		Select: []string{
			"COUNT(*) AS total_trips",
			"AVG(fare_amount) AS avg_fare",
			"AVG(trip_distance) AS avg_distance",
			"AVG(trip_duration_minutes) AS avg_duration",
			"AVG(cost_per_mile) AS avg_cost_per_mile",
		},
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &OverallStats{}, nil
	}

	row := rows[0]
	return &OverallStats{
		TotalTrips:         rowInt64(row, "total_trips"),
		AvgFare:            utils.RoundTo(rowFloat64(row, "avg_fare"), 2),
		AvgDistance:        utils.RoundTo(rowFloat64(row, "avg_distance"), 2),
		AvgDurationMinutes: utils.RoundTo(rowFloat64(row, "avg_duration"), 1),
		AvgCostPerMile:     utils.RoundTo(rowFloat64(row, "avg_cost_per_mile"), 2),
	}, nil
}

// PeakHours 计算最繁忙的limit个小时及其统计
func (r *Reporter) PeakHours(ctx context.Context, limit int) ([]HourStat, error) {
	rows, err := r.acc.Aggregate(ctx, dataset.AggregateQuery{
		Table: "trips",
		Select: []string{
			"pickup_hour",
			"COUNT(*) AS trip_count",
			"AVG(fare_amount) AS avg_fare",
			"AVG(trip_distance) AS avg_distance",
		},
		Where:   "pickup_hour IS NOT NULL",
		GroupBy: "pickup_hour",
		OrderBy: "trip_count DESC, pickup_hour ASC",
		Limit:   limit,
	})
	if err != nil {
		return nil, err
	}

	stats := make([]HourStat, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, HourStat{
			PickupHour:  int(rowInt64(row, "pickup_hour")),
			TripCount:   rowInt64(row, "trip_count"),
			AvgFare:     utils.RoundTo(rowFloat64(row, "avg_fare"), 2),
			AvgDistance: utils.RoundTo(rowFloat64(row, "avg_distance"), 2),
		})
	}
	return stats, nil
}

// PaymentDistribution 计算支付方式分布
// 百分比由分组计数在Go侧推算，修约残差并入最大分组，保证分布之和恒为100
func (r *Reporter) PaymentDistribution(ctx context.Context) ([]PaymentStat, error) {
	rows, err := r.acc.Aggregate(ctx, dataset.AggregateQuery{
		Table:   "trips",
		Select:  []string{"payment_type", "COUNT(*) AS trip_count"},
		Where:   "payment_type IS NOT NULL",
		GroupBy: "payment_type",
		OrderBy: "trip_count DESC, payment_type ASC",
	})
	if err != nil {
		return nil, err
	}

	stats := make([]PaymentStat, 0, len(rows))
	var total int64
	for _, row := range rows {
		count := rowInt64(row, "trip_count")
		total += count
		stats = append(stats, PaymentStat{
			PaymentType: int(rowInt64(row, "payment_type")),
			TripCount:   count,
		})
	}
	applyPercentages(total, len(stats),
		func(i int) int64 { return stats[i].TripCount },
		func(i int, pct float64) { stats[i].Percentage = pct })
	return stats, nil
}

// TopPickupZones 计算上车量最高的limit个区域
func (r *Reporter) TopPickupZones(ctx context.Context, limit int) ([]ZoneStat, error) {
	return r.topZones(ctx, "pu_location_id", limit)
}

// TopDropoffZones 计算下车量最高的limit个区域
func (r *Reporter) TopDropoffZones(ctx context.Context, limit int) ([]ZoneStat, error) {
	return r.topZones(ctx, "do_location_id", limit)
}

// topZones 连接区域表统计区域行程量
func (r *Reporter) topZones(ctx context.Context, column string, limit int) ([]ZoneStat, error) {
	rows, err := r.acc.Aggregate(ctx, dataset.AggregateQuery{
		Table: "trips AS t",
		Select: []string{
			"z.zone_name",
			"z.borough",
			"COUNT(*) AS trip_count",
			"AVG(t.fare_amount) AS avg_fare",
		},
		Joins:   []string{fmt.Sprintf("JOIN zones AS z ON t.%s = z.location_id", column)},
		GroupBy: "z.zone_name, z.borough",
		OrderBy: "trip_count DESC, z.zone_name ASC",
		Limit:   limit,
	})
	if err != nil {
		return nil, err
	}

	stats := make([]ZoneStat, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, ZoneStat{
			ZoneName:  rowString(row, "zone_name"),
			Borough:   rowString(row, "borough"),
			TripCount: rowInt64(row, "trip_count"),
			AvgFare:   utils.RoundTo(rowFloat64(row, "avg_fare"), 2),
		})
	}
	return stats, nil
}

// BoroughPairs 计算行政区对之间的行程流量
func (r *Reporter) BoroughPairs(ctx context.Context, limit int) ([]BoroughPairStat, error) {
	rows, err := r.acc.Aggregate(ctx, dataset.AggregateQuery{
		Table: "trips AS t",
		Select: []string{
			"pz.borough AS pickup_borough",
			"dz.borough AS dropoff_borough",
			"COUNT(*) AS trip_count",
		},
		Joins: []string{
			"JOIN zones AS pz ON t.pu_location_id = pz.location_id",
			"JOIN zones AS dz ON t.do_location_id = dz.location_id",
		},
		GroupBy: "pz.borough, dz.borough",
		OrderBy: "trip_count DESC, pickup_borough ASC, dropoff_borough ASC",
		Limit:   limit,
	})
	if err != nil {
		return nil, err
	}

	stats := make([]BoroughPairStat, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, BoroughPairStat{
			PickupBorough:  rowString(row, "pickup_borough"),
			DropoffBorough: rowString(row, "dropoff_borough"),
			TripCount:      rowInt64(row, "trip_count"),
		})
	}
	return stats, nil
}

// DailyTripCounts 计算逐日行程量
func (r *Reporter) DailyTripCounts(ctx context.Context) ([]DailyStat, error) {
	dateExpr := r.acc.Dialect().DateOf("pickup_date")
	rows, err := r.acc.Aggregate(ctx, dataset.AggregateQuery{
		Table:   "trips",
		Select:  []string{dateExpr + " AS pickup_day", "COUNT(*) AS trip_count"},
		Where:   "pickup_date IS NOT NULL",
		GroupBy: dateExpr,
		OrderBy: "pickup_day ASC",
	})
	if err != nil {
		return nil, err
	}

	stats := make([]DailyStat, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, DailyStat{
			Date:      trimDay(rowString(row, "pickup_day")),
			TripCount: rowInt64(row, "trip_count"),
		})
	}
	return stats, nil
}

// trimDay 统一日期字符串为YYYY-MM-DD
// SQLite的date()直接产出该格式，PostgreSQL的::date经归一化后带有零点时间分量
func trimDay(day string) string {
	if idx := strings.IndexByte(day, ' '); idx > 0 {
		return day[:idx]
	}
	return day
}

// DurationHistogram 行程时长直方图
func (r *Reporter) DurationHistogram(ctx context.Context) ([]HistogramBin, error) {
	return r.histogram(ctx, "trip_duration_minutes", DurationBuckets, DurationOverflowLabel)
}

// DistanceHistogram 行程里程直方图
func (r *Reporter) DistanceHistogram(ctx context.Context) ([]HistogramBin, error) {
	return r.histogram(ctx, "trip_distance", DistanceBuckets, DistanceOverflowLabel)
}

// TipHistogram 小费直方图
func (r *Reporter) TipHistogram(ctx context.Context) ([]HistogramBin, error) {
	return r.histogram(ctx, "tip_amount", TipBuckets, TipOverflowLabel)
}

// histogram 按共享边界表计算直方图，空桶补零，输出顺序与边界表一致
func (r *Reporter) histogram(ctx context.Context, column string, buckets []Bucket, overflowLabel string) ([]HistogramBin, error) {
	caseExpr := BucketCaseExpr(column, buckets, overflowLabel)
	rows, err := r.acc.Aggregate(ctx, dataset.AggregateQuery{
		Table:   "trips",
		Select:  []string{caseExpr + " AS bucket", "COUNT(*) AS trip_count"},
		Where:   column + " IS NOT NULL",
		GroupBy: caseExpr,
	})
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	var total int64
	for _, row := range rows {
		count := rowInt64(row, "trip_count")
		counts[rowString(row, "bucket")] = count
		total += count
	}

	labels := BucketLabels(buckets, overflowLabel)
	bins := make([]HistogramBin, 0, len(labels))
	for _, label := range labels {
		bins = append(bins, HistogramBin{Label: label, TripCount: counts[label]})
	}
	applyPercentages(total, len(bins),
		func(i int) int64 { return bins[i].TripCount },
		func(i int, pct float64) { bins[i].Percentage = pct })
	return bins, nil
}

// applyPercentages 按分组计数推算百分比，修约残差并入计数最大的分组
func applyPercentages(total int64, n int, countAt func(int) int64, setAt func(int, float64)) {
	if total <= 0 || n == 0 {
		return
	}

	var sum float64
	largest := 0
	for i := 0; i < n; i++ {
		pct := utils.RoundTo(float64(countAt(i))*100.0/float64(total), 2)
		setAt(i, pct)
		sum += pct
		if countAt(i) > countAt(largest) {
			largest = i
		}
	}

	if residual := utils.RoundTo(100.0-sum, 2); residual != 0 {
		largestCount := countAt(largest)
		pct := utils.RoundTo(float64(largestCount)*100.0/float64(total)+residual, 2)
		setAt(largest, pct)
	}
}

// rowInt64 从聚合结果行中取整数值
func rowInt64(row dataset.Row, key string) int64 {
	return cast.ToInt64(utils.NormalizeValue(row[key]))
}

// rowFloat64 从聚合结果行中取浮点值
func rowFloat64(row dataset.Row, key string) float64 {
	return cast.ToFloat64(utils.NormalizeValue(row[key]))
}

// rowString 从聚合结果行中取字符串值
func rowString(row dataset.Row, key string) string {
	return cast.ToString(utils.NormalizeValue(row[key]))
}
