package migration

import (
	"testing"
	"time"

	"github.com/cuemby/corestate/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy() types.MigrationPolicy {
	return types.MigrationPolicy{
		HotToWarm: types.HotToWarmPolicy{MaxAgeMs: 1000, MinAccessCount: 5, MaxHotSizePercent: 80, AccessWindowMs: 60000},
		WarmToCold: types.WarmToColdPolicy{MaxAgeMs: 2000, MinPartitionSize: 10, RetentionPeriodMs: 2000},
		BatchSize: types.BatchSizePolicy{Min: 1, Max: 10, TargetBytes: 1000},
	}
}

func TestNewEvaluatorRejectsInvalidPolicy(t *testing.T) {
	p := testPolicy()
	p.HotToWarm.MaxAgeMs = 0
	_, err := NewEvaluator(p)
	require.Error(t, err)
	var verr *types.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestEvaluateHotToWarmPriorityOrder(t *testing.T) {
	eval, err := NewEvaluator(testPolicy())
	require.NoError(t, err)

	now := time.Now()
	old := types.MigrationItem{ItemID: "old", CreatedAt: now.Add(-time.Hour), SizeBytes: 10}

	t.Run("emergency overrides everything", func(t *testing.T) {
		d := eval.EvaluateHotToWarm(old, types.TierUsage{PercentFull: 99}, nil)
		assert.True(t, d.ShouldMigrate)
		assert.True(t, d.IsEmergency)
		assert.Equal(t, "emergency", d.Priority)
	})

	t.Run("frequently accessed items are kept hot", func(t *testing.T) {
		d := eval.EvaluateHotToWarm(old, types.TierUsage{PercentFull: 50}, &types.AccessStats{RecentAccesses: 10})
		assert.False(t, d.ShouldMigrate)
		assert.Equal(t, "access-frequency", d.Priority)
	})

	t.Run("TTL exceeded migrates", func(t *testing.T) {
		d := eval.EvaluateHotToWarm(old, types.TierUsage{PercentFull: 50}, nil)
		assert.True(t, d.ShouldMigrate)
		assert.Equal(t, "ttl", d.Priority)
	})

	t.Run("below TTL and under size threshold stays hot", func(t *testing.T) {
		fresh := types.MigrationItem{ItemID: "fresh", CreatedAt: now, SizeBytes: 10}
		d := eval.EvaluateHotToWarm(fresh, types.TierUsage{PercentFull: 50}, nil)
		assert.False(t, d.ShouldMigrate)
		assert.Equal(t, "none", d.Priority)
	})

	t.Run("size threshold migrates fresh items when hot tier is full", func(t *testing.T) {
		fresh := types.MigrationItem{ItemID: "fresh", CreatedAt: now, SizeBytes: 10}
		d := eval.EvaluateHotToWarm(fresh, types.TierUsage{PercentFull: 85}, nil)
		assert.True(t, d.ShouldMigrate)
		assert.Equal(t, "size-threshold", d.Priority)
	})
}

func TestEvaluateWarmToCold(t *testing.T) {
	eval, err := NewEvaluator(testPolicy())
	require.NoError(t, err)

	now := time.Now()
	old := types.MigrationItem{ItemID: "old", CreatedAt: now.Add(-time.Hour), SizeBytes: 10}
	d := eval.EvaluateWarmToCold(old)
	assert.True(t, d.ShouldMigrate)
	assert.Equal(t, "retention", d.Priority)

	fresh := types.MigrationItem{ItemID: "fresh", CreatedAt: now, SizeBytes: 10}
	d = eval.EvaluateWarmToCold(fresh)
	assert.False(t, d.ShouldMigrate)
}

func TestSelectHotToWarmBatchRespectsMinimum(t *testing.T) {
	p := testPolicy()
	p.BatchSize.Min = 2
	eval, err := NewEvaluator(p)
	require.NoError(t, err)

	now := time.Now()
	items := []types.MigrationItem{{ItemID: "only-one", CreatedAt: now.Add(-time.Hour), SizeBytes: 10}}
	result := eval.SelectHotToWarmBatch(items, types.TierUsage{PercentFull: 10}, func(string) *types.AccessStats { return nil })
	assert.False(t, result.ShouldProceed)
}

func TestSelectHotToWarmBatchOverShootBound(t *testing.T) {
	p := testPolicy()
	p.BatchSize = types.BatchSizePolicy{Min: 1, Max: 10, TargetBytes: 100}
	eval, err := NewEvaluator(p)
	require.NoError(t, err)

	now := time.Now()
	items := []types.MigrationItem{
		{ItemID: "a", CreatedAt: now.Add(-2 * time.Hour), SizeBytes: 90},
		{ItemID: "b", CreatedAt: now.Add(-time.Hour), SizeBytes: 90},
	}
	result := eval.SelectHotToWarmBatch(items, types.TierUsage{PercentFull: 10}, func(string) *types.AccessStats { return nil })
	require.True(t, result.ShouldProceed)
	require.Len(t, result.Items, 1, "a second 90-byte item would reach 180 bytes, 80% past the 100-byte target and over the 20% overshoot cap")
}

func TestSelectWarmToColdBatchRequiresMinPartitionSize(t *testing.T) {
	eval, err := NewEvaluator(testPolicy())
	require.NoError(t, err)

	now := time.Now()
	items := []types.MigrationItem{{ItemID: "a", CreatedAt: now.Add(-time.Hour), SizeBytes: 1}}
	result := eval.SelectWarmToColdBatch(items)
	assert.False(t, result.ShouldProceed)
}

func TestUpdatePolicyMergesPartialSections(t *testing.T) {
	eval, err := NewEvaluator(testPolicy())
	require.NoError(t, err)

	err = eval.UpdatePolicy(types.MigrationPolicy{HotToWarm: types.HotToWarmPolicy{MinAccessCount: 99}})
	require.NoError(t, err)

	got := eval.Policy()
	assert.Equal(t, 99, got.HotToWarm.MinAccessCount)
	assert.Equal(t, int64(1000), got.HotToWarm.MaxAgeMs, "fields absent from the partial must survive")
}

func TestStatsTracksEvaluationCounts(t *testing.T) {
	eval, err := NewEvaluator(testPolicy())
	require.NoError(t, err)

	now := time.Now()
	items := []types.MigrationItem{{ItemID: "a", CreatedAt: now.Add(-time.Hour), SizeBytes: 10}}
	eval.SelectHotToWarmBatch(items, types.TierUsage{PercentFull: 50}, func(string) *types.AccessStats { return nil })

	stats := eval.Stats()
	assert.GreaterOrEqual(t, stats.TotalMigrationsEvaluated, int64(1))
}
