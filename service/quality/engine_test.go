/*
 * @module service/quality/engine_test
 * @description 校验引擎测试：规则并发执行、违规统计、采样裁剪、报告确定性与访问错误中止
 * @architecture 测试层
 * @stateFlow 内存SQLite造数 -> 引擎执行目录 -> 报告断言
 * @rules 相同数据上重复运行必须产出字节级相同的报告
 * @dependencies testing, github.com/stretchr/testify, dataquality-service/testutil
 * @refs engine.go, catalog.go
 */

package quality_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataquality-service/service/config"
	"dataquality-service/service/dataset"
	"dataquality-service/service/quality"
	"dataquality-service/testutil"
)

func setupEngine(t *testing.T) (*quality.Engine, *quality.Catalog, dataset.Accessor, *testutil.TestDataFactory) {
	t.Helper()

	tdb := testutil.NewTestDB()
	t.Cleanup(tdb.Close)

	policy := config.DefaultPolicy()
	catalog, err := quality.BuildTripCatalog(policy)
	require.NoError(t, err)

	acc, err := dataset.NewGormAccessor(tdb.DB)
	require.NoError(t, err)

	factory := testutil.NewTestDataFactory(tdb.DB)
	// 默认行程使用的上下车区域
	factory.CreateZone(100, testutil.WithBorough("Manhattan"))
	factory.CreateZone(200, testutil.WithBorough("Queens"))

	return quality.NewEngine(policy), catalog, acc, factory
}

func resultByName(t *testing.T, rep *quality.Report, name string) quality.RuleResult {
	t.Helper()
	for _, result := range rep.Results {
		if result.RuleName == name {
			return result
		}
	}
	t.Fatalf("报告中找不到规则 %s", name)
	return quality.RuleResult{}
}

func TestEngineRun_CleanDataPasses(t *testing.T) {
	engine, catalog, acc, factory := setupEngine(t)

	factory.CreateTrip()
	factory.CreateTrip(testutil.WithFare(35), testutil.WithDistance(8.2))
	factory.CreateTrip(testutil.WithPaymentType(2), testutil.WithTip(0))

	rep, err := engine.Run(context.Background(), catalog, acc)
	require.NoError(t, err)

	assert.True(t, rep.Passed)
	assert.Equal(t, catalog.Len(), rep.Summary.TotalRules)
	assert.Equal(t, catalog.Len(), rep.Summary.PassedRules)
	assert.Zero(t, rep.Summary.FailedRules)
	assert.Zero(t, rep.Summary.TotalViolations)

	// 报告顺序与目录顺序一致
	rules := catalog.Rules()
	for i, result := range rep.Results {
		assert.Equal(t, rules[i].Name, result.RuleName)
	}
}

func TestEngineRun_NullCriticalColumn(t *testing.T) {
	engine, catalog, acc, factory := setupEngine(t)

	factory.CreateTrip()
	factory.CreateTrip(testutil.WithNullFare())

	rep, err := engine.Run(context.Background(), catalog, acc)
	require.NoError(t, err)

	assert.False(t, rep.Passed)

	result := resultByName(t, rep, "completeness_fare_amount")
	assert.False(t, result.Passed)
	assert.Equal(t, int64(1), result.ViolationCount)
	assert.NotEmpty(t, result.Samples)
}

func TestEngineRun_FareBoundaries(t *testing.T) {
	engine, catalog, acc, factory := setupEngine(t)

	factory.CreateTrip(testutil.WithFare(-5))      // 违规：非正
	factory.CreateTrip(testutil.WithFare(1000))    // 合法：上限为闭边界
	factory.CreateTrip(testutil.WithFare(1000.01)) // 违规：越过上限

	rep, err := engine.Run(context.Background(), catalog, acc)
	require.NoError(t, err)

	result := resultByName(t, rep, "range_fare_amount")
	assert.Equal(t, int64(2), result.ViolationCount)
	assert.False(t, result.Passed)
}

func TestEngineRun_TemporalViolation(t *testing.T) {
	engine, catalog, acc, factory := setupEngine(t)

	pickup := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	factory.CreateTrip() // 正常行程
	factory.CreateTrip(testutil.WithPickupDropoff(pickup, pickup)) // 零长行程合法
	factory.CreateTrip(testutil.WithPickupDropoff(pickup, pickup.Add(-10*time.Minute)))

	rep, err := engine.Run(context.Background(), catalog, acc)
	require.NoError(t, err)

	result := resultByName(t, rep, "temporal_pickup_before_dropoff")
	assert.Equal(t, int64(1), result.ViolationCount)

	// 零长行程和倒置行程都派生出非正时长，落入范围规则
	assert.Equal(t, int64(2), resultByName(t, rep, "range_trip_duration").ViolationCount)
}

func TestEngineRun_ThreeTripScenario(t *testing.T) {
	engine, catalog, acc, factory := setupEngine(t)

	pickup := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	// 正常行程、负时长行程、时间戳倒置行程各一条
	factory.CreateTrip(
		testutil.WithPickupDropoff(pickup, pickup.Add(10*time.Minute)),
		testutil.WithFare(20), testutil.WithDistance(5))
	factory.CreateTrip(
		testutil.WithPickupDropoff(pickup, pickup.Add(10*time.Minute)),
		testutil.WithFare(20), testutil.WithDistance(5),
		testutil.WithDurationMinutes(-1))
	factory.CreateTrip(
		testutil.WithPickupDropoff(pickup.Add(10*time.Minute), pickup),
		testutil.WithFare(20), testutil.WithDistance(5),
		testutil.WithDurationMinutes(10))

	rep, err := engine.Run(context.Background(), catalog, acc)
	require.NoError(t, err)

	assert.Equal(t, int64(1), resultByName(t, rep, "range_trip_duration").ViolationCount)
	assert.Equal(t, int64(1), resultByName(t, rep, "temporal_pickup_before_dropoff").ViolationCount)
	assert.False(t, rep.Passed)
}

func TestEngineRun_DurationMismatch(t *testing.T) {
	engine, catalog, acc, factory := setupEngine(t)

	factory.CreateTrip()
	factory.CreateTrip(testutil.WithDurationMinutes(999))

	rep, err := engine.Run(context.Background(), catalog, acc)
	require.NoError(t, err)

	result := resultByName(t, rep, "consistency_trip_duration")
	assert.Equal(t, int64(1), result.ViolationCount)
	assert.False(t, result.Passed)
}

func TestEngineRun_ZeroDistanceSkipsCostPerMile(t *testing.T) {
	engine, catalog, acc, factory := setupEngine(t)

	// 零里程行违反范围规则，但不参与每英里成本一致性检查
	factory.CreateTrip(testutil.WithDistance(0), testutil.WithCostPerMile(5))

	rep, err := engine.Run(context.Background(), catalog, acc)
	require.NoError(t, err)

	assert.Equal(t, int64(1), resultByName(t, rep, "range_trip_distance").ViolationCount)
	assert.Equal(t, int64(0), resultByName(t, rep, "consistency_cost_per_mile").ViolationCount)
}

func TestEngineRun_OrphanZone(t *testing.T) {
	engine, catalog, acc, factory := setupEngine(t)

	factory.CreateTrip()
	factory.CreateTrip(testutil.WithLocations(999999, 200))

	rep, err := engine.Run(context.Background(), catalog, acc)
	require.NoError(t, err)

	assert.Equal(t, int64(1), resultByName(t, rep, "referential_pickup_zone").ViolationCount)
	assert.Equal(t, int64(0), resultByName(t, rep, "referential_dropoff_zone").ViolationCount)
}

func TestEngineRun_InformationalDoesNotFailReport(t *testing.T) {
	engine, catalog, acc, factory := setupEngine(t)

	// tip_amount缺失是informational违规，整体结论不受影响
	factory.CreateTrip()
	factory.CreateTrip(testutil.WithNullTip())

	rep, err := engine.Run(context.Background(), catalog, acc)
	require.NoError(t, err)

	result := resultByName(t, rep, "completeness_tip_amount")
	assert.Equal(t, int64(1), result.ViolationCount)
	assert.False(t, result.Passed)
	assert.True(t, rep.Passed)
	assert.Equal(t, 1, rep.Summary.FailedRules)
	assert.Zero(t, rep.Summary.FailedBlockingRules)
}

func TestEngineRun_SampleLimit(t *testing.T) {
	tdb := testutil.NewTestDB()
	t.Cleanup(tdb.Close)

	policy := config.DefaultPolicy()
	policy.SampleLimit = 3

	catalog, err := quality.BuildTripCatalog(policy)
	require.NoError(t, err)

	acc, err := dataset.NewGormAccessor(tdb.DB)
	require.NoError(t, err)

	factory := testutil.NewTestDataFactory(tdb.DB)
	factory.CreateZone(100)
	factory.CreateZone(200)
	for i := 0; i < 10; i++ {
		factory.CreateTrip(testutil.WithNullFare())
	}

	rep, err := quality.NewEngine(policy).Run(context.Background(), catalog, acc)
	require.NoError(t, err)

	result := resultByName(t, rep, "completeness_fare_amount")
	assert.Equal(t, int64(10), result.ViolationCount)
	assert.Len(t, result.Samples, 3)
}

func TestEngineRun_Deterministic(t *testing.T) {
	engine, catalog, acc, factory := setupEngine(t)

	factory.CreateTrip()
	factory.CreateTrip(testutil.WithNullFare())
	factory.CreateTrip(testutil.WithFare(1200))
	factory.CreateTrip(testutil.WithLocations(999999, 200))

	first, err := engine.Run(context.Background(), catalog, acc)
	require.NoError(t, err)
	second, err := engine.Run(context.Background(), catalog, acc)
	require.NoError(t, err)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)

	assert.Equal(t, string(firstJSON), string(secondJSON))
}

func TestEngineRun_AccessErrorAborts(t *testing.T) {
	tdb := testutil.NewTestDB()
	t.Cleanup(tdb.Close)

	acc, err := dataset.NewGormAccessor(tdb.DB)
	require.NoError(t, err)

	boom := errors.New("connection reset")
	catalog, err := quality.NewCatalog(
		quality.Rule{
			Name:     "failing_rule",
			Category: quality.CategoryRange,
			Severity: quality.SeverityBlocking,
			Evaluate: func(ctx context.Context, acc dataset.Accessor) (*quality.Evaluation, error) {
				return nil, boom
			},
		},
	)
	require.NoError(t, err)

	rep, err := quality.NewEngine(config.DefaultPolicy()).Run(context.Background(), catalog, acc)
	require.Error(t, err)
	assert.Nil(t, rep)
	assert.True(t, dataset.IsAccessError(err))
	assert.Contains(t, err.Error(), "failing_rule")
}

func TestEngineRun_RuleTimeoutBecomesAccessError(t *testing.T) {
	tdb := testutil.NewTestDB()
	t.Cleanup(tdb.Close)

	acc, err := dataset.NewGormAccessor(tdb.DB)
	require.NoError(t, err)

	catalog, err := quality.NewCatalog(
		quality.Rule{
			Name:     "slow_rule",
			Category: quality.CategoryRange,
			Severity: quality.SeverityBlocking,
			Evaluate: func(ctx context.Context, acc dataset.Accessor) (*quality.Evaluation, error) {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(2 * time.Second):
					return &quality.Evaluation{}, nil
				}
			},
		},
	)
	require.NoError(t, err)

	policy := config.DefaultPolicy()
	policy.RuleTimeout = 50 * time.Millisecond

	rep, err := quality.NewEngine(policy).Run(context.Background(), catalog, acc)
	require.Error(t, err)
	assert.Nil(t, rep)
	assert.True(t, dataset.IsAccessError(err))
	assert.Contains(t, err.Error(), "slow_rule")
}

func TestEngineRun_ContextCanceled(t *testing.T) {
	engine, catalog, acc, factory := setupEngine(t)
	factory.CreateTrip()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Run(ctx, catalog, acc)
	assert.Error(t, err)
}
