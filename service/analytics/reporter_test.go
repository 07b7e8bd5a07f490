/*
 * @module service/analytics/reporter_test
 * @description 分析报表测试：总体统计、高峰时段、支付分布、区域流量、直方图和百分比不变式
 * @architecture 测试层
 * @stateFlow 内存SQLite造数 -> 报表计算 -> 结果与不变式验证
 * @rules 分布类报表的百分比之和必须恒为100
 * @dependencies testing, github.com/stretchr/testify, dataquality-service/testutil
 * @refs reporter.go
 */

package analytics_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataquality-service/service/analytics"
	"dataquality-service/service/dataset"
	"dataquality-service/testutil"
)

func setupReporter(t *testing.T) (*analytics.Reporter, *testutil.TestDataFactory) {
	t.Helper()

	tdb := testutil.NewTestDB()
	t.Cleanup(tdb.Close)

	acc, err := dataset.NewGormAccessor(tdb.DB)
	require.NoError(t, err)

	return analytics.NewReporter(acc), testutil.NewTestDataFactory(tdb.DB)
}

func at(hour int) time.Time {
	return time.Date(2024, 1, 15, hour, 30, 0, 0, time.UTC)
}

func TestOverallStats(t *testing.T) {
	reporter, factory := setupReporter(t)

	factory.CreateTrip(testutil.WithFare(10), testutil.WithDistance(2))
	factory.CreateTrip(testutil.WithFare(20), testutil.WithDistance(4))

	stats, err := reporter.OverallStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(2), stats.TotalTrips)
	assert.Equal(t, 15.0, stats.AvgFare)
	assert.Equal(t, 3.0, stats.AvgDistance)
	assert.Equal(t, 25.0, stats.AvgDurationMinutes)
	assert.Equal(t, 5.0, stats.AvgCostPerMile)
}

func TestOverallStats_EmptyDataset(t *testing.T) {
	reporter, _ := setupReporter(t)

	stats, err := reporter.OverallStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalTrips)
}

func TestPeakHours(t *testing.T) {
	reporter, factory := setupReporter(t)

	for i := 0; i < 4; i++ {
		factory.CreateTrip(testutil.WithPickupDropoff(at(8), at(8).Add(20*time.Minute)))
	}
	for i := 0; i < 2; i++ {
		factory.CreateTrip(testutil.WithPickupDropoff(at(14), at(14).Add(20*time.Minute)))
	}
	factory.CreateTrip(testutil.WithPickupDropoff(at(20), at(20).Add(20*time.Minute)))

	stats, err := reporter.PeakHours(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, 8, stats[0].PickupHour)
	assert.Equal(t, int64(4), stats[0].TripCount)
	assert.Equal(t, 14, stats[1].PickupHour)
	assert.Equal(t, int64(2), stats[1].TripCount)
}

func TestPaymentDistribution_PercentageSum(t *testing.T) {
	reporter, factory := setupReporter(t)

	// 三等分产生0.01的修约残差，残差并入首个分组
	factory.CreateTrip(testutil.WithPaymentType(1))
	factory.CreateTrip(testutil.WithPaymentType(2))
	factory.CreateTrip(testutil.WithPaymentType(3))

	stats, err := reporter.PaymentDistribution(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 3)

	var sum float64
	for _, stat := range stats {
		sum += stat.Percentage
	}
	assert.InDelta(t, 100.0, sum, 0.01)
	assert.Equal(t, 33.34, stats[0].Percentage)
	assert.Equal(t, 33.33, stats[1].Percentage)
}

func TestPaymentDistribution_Majority(t *testing.T) {
	reporter, factory := setupReporter(t)

	for i := 0; i < 3; i++ {
		factory.CreateTrip(testutil.WithPaymentType(1))
	}
	factory.CreateTrip(testutil.WithPaymentType(2))

	stats, err := reporter.PaymentDistribution(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, 1, stats[0].PaymentType)
	assert.Equal(t, int64(3), stats[0].TripCount)
	assert.Equal(t, 75.0, stats[0].Percentage)
	assert.Equal(t, 25.0, stats[1].Percentage)
}

func TestTopPickupZones(t *testing.T) {
	reporter, factory := setupReporter(t)

	factory.CreateZone(100, testutil.WithZoneName("Midtown"), testutil.WithBorough("Manhattan"))
	factory.CreateZone(200, testutil.WithZoneName("JFK Airport"), testutil.WithBorough("Queens"))

	factory.CreateTrip(testutil.WithLocations(100, 200), testutil.WithFare(10))
	factory.CreateTrip(testutil.WithLocations(100, 200), testutil.WithFare(30))
	factory.CreateTrip(testutil.WithLocations(200, 100), testutil.WithFare(50))

	stats, err := reporter.TopPickupZones(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, "Midtown", stats[0].ZoneName)
	assert.Equal(t, "Manhattan", stats[0].Borough)
	assert.Equal(t, int64(2), stats[0].TripCount)
	assert.Equal(t, 20.0, stats[0].AvgFare)

	assert.Equal(t, "JFK Airport", stats[1].ZoneName)
	assert.Equal(t, int64(1), stats[1].TripCount)
}

func TestBoroughPairs(t *testing.T) {
	reporter, factory := setupReporter(t)

	factory.CreateZone(100, testutil.WithBorough("Manhattan"))
	factory.CreateZone(200, testutil.WithBorough("Queens"))
	factory.CreateZone(300, testutil.WithBorough("Manhattan"))

	factory.CreateTrip(testutil.WithLocations(100, 200))
	factory.CreateTrip(testutil.WithLocations(300, 200))
	factory.CreateTrip(testutil.WithLocations(200, 100))

	stats, err := reporter.BoroughPairs(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, "Manhattan", stats[0].PickupBorough)
	assert.Equal(t, "Queens", stats[0].DropoffBorough)
	assert.Equal(t, int64(2), stats[0].TripCount)
}

func TestDailyTripCounts(t *testing.T) {
	reporter, factory := setupReporter(t)

	day1 := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 1, 16, 9, 0, 0, 0, time.UTC)

	factory.CreateTrip(testutil.WithPickupDropoff(day2, day2.Add(10*time.Minute)))
	factory.CreateTrip(testutil.WithPickupDropoff(day1, day1.Add(10*time.Minute)))
	factory.CreateTrip(testutil.WithPickupDropoff(day1, day1.Add(15*time.Minute)))

	stats, err := reporter.DailyTripCounts(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 2)

	// 日期升序输出
	assert.Equal(t, "2024-01-15", stats[0].Date)
	assert.Equal(t, int64(2), stats[0].TripCount)
	assert.Equal(t, "2024-01-16", stats[1].Date)
	assert.Equal(t, int64(1), stats[1].TripCount)
}

func TestDurationHistogram_ZeroFilled(t *testing.T) {
	reporter, factory := setupReporter(t)

	// 默认行程时长25分钟，全部落入15-30分钟桶
	factory.CreateTrip()
	factory.CreateTrip()

	bins, err := reporter.DurationHistogram(context.Background())
	require.NoError(t, err)
	require.Len(t, bins, 5)

	assert.Equal(t, "0-5 min", bins[0].Label)
	assert.Equal(t, int64(0), bins[0].TripCount)
	assert.Equal(t, "15-30 min", bins[2].Label)
	assert.Equal(t, int64(2), bins[2].TripCount)
	assert.Equal(t, 100.0, bins[2].Percentage)
	assert.Equal(t, "60+ min", bins[4].Label)
	assert.Equal(t, int64(0), bins[4].TripCount)
}

func TestTipHistogram_BoundaryInclusive(t *testing.T) {
	reporter, factory := setupReporter(t)

	factory.CreateTrip(testutil.WithTip(0))   // no tip
	factory.CreateTrip(testutil.WithTip(2))   // 闭上界，落入0-2
	factory.CreateTrip(testutil.WithTip(2.5)) // 2-5
	factory.CreateTrip(testutil.WithTip(9))   // 溢出桶

	bins, err := reporter.TipHistogram(context.Background())
	require.NoError(t, err)
	require.Len(t, bins, 4)

	assert.Equal(t, int64(1), bins[0].TripCount) // no tip
	assert.Equal(t, int64(1), bins[1].TripCount) // 0-2 usd
	assert.Equal(t, int64(1), bins[2].TripCount) // 2-5 usd
	assert.Equal(t, int64(1), bins[3].TripCount) // 5+ usd
}

func TestSummary(t *testing.T) {
	reporter, factory := setupReporter(t)

	factory.CreateZone(100)
	factory.CreateZone(200)
	factory.CreateTrip()
	factory.CreateTrip(testutil.WithPaymentType(2))

	summary, err := reporter.Summary(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(2), summary.Overall.TotalTrips)
	assert.NotEmpty(t, summary.PeakHours)
	assert.NotEmpty(t, summary.PaymentDistribution)
	assert.NotEmpty(t, summary.TopPickupZones)
	assert.NotEmpty(t, summary.DailyTripCounts)
	assert.Len(t, summary.DurationHistogram, 5)
	assert.Len(t, summary.DistanceHistogram, 5)
	assert.Len(t, summary.TipHistogram, 4)
}
