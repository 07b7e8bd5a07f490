/*
 * @module service/report/store_test
 * @description 校验运行持久化测试：运行记录与违规明细的写入和查询
 * @architecture 测试层
 * @stateFlow 内存SQLite建表 -> 运行入库 -> 历史查询验证
 * @rules 一次运行的记录和违规明细在同一事务内写入
 * @dependencies testing, github.com/stretchr/testify, dataquality-service/testutil
 * @refs store.go
 */

package report_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataquality-service/service/dataset"
	"dataquality-service/service/quality"
	"dataquality-service/service/report"
	"dataquality-service/testutil"
)

func storeReport() *quality.Report {
	return &quality.Report{
		Results: []quality.RuleResult{
			{
				RuleName:       "range_fare_amount",
				Category:       quality.CategoryRange,
				Severity:       quality.SeverityBlocking,
				ViolationCount: 2,
				Passed:         false,
				Samples: []dataset.Row{
					{"trip_id": int64(7), "fare_amount": -5.0},
				},
			},
			{
				RuleName: "referential_pickup_zone",
				Category: quality.CategoryReferential,
				Severity: quality.SeverityBlocking,
				Passed:   true,
			},
		},
		Passed: false,
		Summary: quality.Summary{
			TotalRules:          2,
			PassedRules:         1,
			FailedRules:         1,
			FailedBlockingRules: 1,
			TotalViolations:     2,
		},
	}
}

func TestSaveRun(t *testing.T) {
	tdb := testutil.NewTestDB()
	t.Cleanup(tdb.Close)

	store := report.NewStore(tdb.DB)
	started := time.Now().Add(-time.Second)
	finished := time.Now()

	run, err := store.SaveRun(storeReport(), started, finished, "cli")
	require.NoError(t, err)

	assert.NotEmpty(t, run.ID)
	assert.False(t, run.Passed)
	assert.Equal(t, 2, run.TotalRules)
	assert.Equal(t, 1, run.FailedRules)
	assert.Equal(t, int64(2), run.TotalViolations)
	assert.Equal(t, "cli", run.TriggeredBy)
	assert.Contains(t, run.ReportJSON, "range_fare_amount")

	records, err := store.RunViolations(run.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "range_fare_amount", records[0].RuleName)
	assert.Contains(t, records[0].SamplesJSON, "trip_id")
	assert.Empty(t, records[1].SamplesJSON)
}

func TestLatestRunAndHistory(t *testing.T) {
	tdb := testutil.NewTestDB()
	t.Cleanup(tdb.Close)

	store := report.NewStore(tdb.DB)
	base := time.Now()

	for i := 0; i < 3; i++ {
		started := base.Add(time.Duration(i) * time.Minute)
		_, err := store.SaveRun(storeReport(), started, started.Add(time.Second), "scheduled")
		require.NoError(t, err)
	}

	latest, err := store.LatestRun()
	require.NoError(t, err)
	assert.WithinDuration(t, base.Add(2*time.Minute), latest.StartedAt, time.Second)

	history, err := store.RunHistory(2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].StartedAt.After(history[1].StartedAt) ||
		history[0].StartedAt.Equal(history[1].StartedAt))
}

func TestLatestRun_Empty(t *testing.T) {
	tdb := testutil.NewTestDB()
	t.Cleanup(tdb.Close)

	_, err := report.NewStore(tdb.DB).LatestRun()
	assert.Error(t, err)
}
