/*
 * @module service/analytics/summary
 * @description 汇总报表：把各项分析聚合成一份完整的数据集概览
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/analytics_report.md
 * @stateFlow 逐项聚合 -> 汇总结构输出
 * @rules 任一子项查询失败则整份汇总失败，不输出残缺报表
 * @dependencies dataquality-service/service/dataset
 * @refs reporter.go, api/controllers/quality_controller.go
 */

package analytics

import "context"

// 榜单类报表的默认条目数
const (
	defaultPeakHourLimit    = 5
	defaultZoneLimit        = 10
	defaultBoroughPairLimit = 10
)

// Summary 数据集分析汇总
type Summary struct {
	Overall             *OverallStats     `json:"overall"`
	PeakHours           []HourStat        `json:"peak_hours"`
	PaymentDistribution []PaymentStat     `json:"payment_distribution"`
	TopPickupZones      []ZoneStat        `json:"top_pickup_zones"`
	TopDropoffZones     []ZoneStat        `json:"top_dropoff_zones"`
	BoroughPairs        []BoroughPairStat `json:"borough_pairs"`
	DailyTripCounts     []DailyStat       `json:"daily_trip_counts"`
	DurationHistogram   []HistogramBin    `json:"duration_histogram"`
	DistanceHistogram   []HistogramBin    `json:"distance_histogram"`
	TipHistogram        []HistogramBin    `json:"tip_histogram"`
}

// Summary 生成完整的数据集分析汇总
func (r *Reporter) Summary(ctx context.Context) (*Summary, error) {
	overall, err := r.OverallStats(ctx)
	if err != nil {
		return nil, err
	}

	peakHours, err := r.PeakHours(ctx, defaultPeakHourLimit)
	if err != nil {
		return nil, err
	}

	payments, err := r.PaymentDistribution(ctx)
	if err != nil {
		return nil, err
	}

	pickupZones, err := r.TopPickupZones(ctx, defaultZoneLimit)
	if err != nil {
		return nil, err
	}

	dropoffZones, err := r.TopDropoffZones(ctx, defaultZoneLimit)
	if err != nil {
		return nil, err
	}

	pairs, err := r.BoroughPairs(ctx, defaultBoroughPairLimit)
	if err != nil {
		return nil, err
	}

	daily, err := r.DailyTripCounts(ctx)
	if err != nil {
		return nil, err
	}

	durations, err := r.DurationHistogram(ctx)
	if err != nil {
		return nil, err
	}

	distances, err := r.DistanceHistogram(ctx)
	if err != nil {
		return nil, err
	}

	tips, err := r.TipHistogram(ctx)
	if err != nil {
		return nil, err
	}

	return &Summary{
		Overall:             overall,
		PeakHours:           peakHours,
		PaymentDistribution: payments,
		TopPickupZones:      pickupZones,
		TopDropoffZones:     dropoffZones,
		BoroughPairs:        pairs,
		DailyTripCounts:     daily,
		DurationHistogram:   durations,
		DistanceHistogram:   distances,
		TipHistogram:        tips,
	}, nil
}
