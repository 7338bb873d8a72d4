package migration

import (
	"sort"
	"time"

	corelog "github.com/cuemby/corestate/pkg/log"
	"github.com/cuemby/corestate/pkg/metrics"
	"github.com/cuemby/corestate/pkg/types"
	"github.com/rs/zerolog"
)

// Evaluator evaluates migration candidates against a
// types.MigrationPolicy, deciding hot->warm->cold tiering.
type Evaluator struct {
	policy types.MigrationPolicy
	clock  types.Clock
	logger zerolog.Logger
	stats  types.MigrationStats

	evalTimeTotal time.Duration
	evalCount     int
}

// NewEvaluator validates policy and builds an Evaluator. Validation
// failures are *types.ValidationError.
func NewEvaluator(policy types.MigrationPolicy) (*Evaluator, error) {
	if err := Validate(policy); err != nil {
		return nil, err
	}
	return &Evaluator{policy: policy, clock: types.SystemClock, logger: corelog.WithComponent("migration")}, nil
}

// Validate rejects a policy with a non-positive maxAge or a
// maxHotSizePercent outside [0, 100].
func Validate(p types.MigrationPolicy) error {
	if p.HotToWarm.MaxAgeMs <= 0 {
		return &types.ValidationError{Subject: "hotToWarm.maxAge", Reason: "must be positive"}
	}
	if p.HotToWarm.MaxHotSizePercent < 0 || p.HotToWarm.MaxHotSizePercent > 100 {
		return &types.ValidationError{Subject: "hotToWarm.maxHotSizePercent", Reason: "must be in [0, 100]"}
	}
	if p.WarmToCold.MaxAgeMs <= 0 {
		return &types.ValidationError{Subject: "warmToCold.maxAge", Reason: "must be positive"}
	}
	return nil
}

// Policy returns the effective policy.
func (e *Evaluator) Policy() types.MigrationPolicy { return e.policy }

// UpdatePolicy merges partial into the effective policy: a zero-value
// field in partial leaves the corresponding field untouched, so
// callers can update just one section without repeating the rest.
func (e *Evaluator) UpdatePolicy(partial types.MigrationPolicy) error {
	merged := e.policy
	mergeHotToWarm(&merged.HotToWarm, partial.HotToWarm)
	mergeWarmToCold(&merged.WarmToCold, partial.WarmToCold)
	mergeBatchSize(&merged.BatchSize, partial.BatchSize)
	if err := Validate(merged); err != nil {
		return err
	}
	e.policy = merged
	return nil
}

func mergeHotToWarm(dst *types.HotToWarmPolicy, src types.HotToWarmPolicy) {
	if src.MaxAgeMs != 0 {
		dst.MaxAgeMs = src.MaxAgeMs
	}
	if src.MinAccessCount != 0 {
		dst.MinAccessCount = src.MinAccessCount
	}
	if src.MaxHotSizePercent != 0 {
		dst.MaxHotSizePercent = src.MaxHotSizePercent
	}
	if src.AccessWindowMs != 0 {
		dst.AccessWindowMs = src.AccessWindowMs
	}
}

func mergeWarmToCold(dst *types.WarmToColdPolicy, src types.WarmToColdPolicy) {
	if src.MaxAgeMs != 0 {
		dst.MaxAgeMs = src.MaxAgeMs
	}
	if src.MinPartitionSize != 0 {
		dst.MinPartitionSize = src.MinPartitionSize
	}
	if src.RetentionPeriodMs != 0 {
		dst.RetentionPeriodMs = src.RetentionPeriodMs
	}
}

func mergeBatchSize(dst *types.BatchSizePolicy, src types.BatchSizePolicy) {
	if src.Min != 0 {
		dst.Min = src.Min
	}
	if src.Max != 0 {
		dst.Max = src.Max
	}
	if src.TargetBytes != 0 {
		dst.TargetBytes = src.TargetBytes
	}
}

// EvaluateHotToWarm decides whether item should migrate hot->warm,
// applying a fixed priority order: emergency, then access-frequency,
// then TTL, then size-threshold.
func (e *Evaluator) EvaluateHotToWarm(item types.MigrationItem, usage types.TierUsage, access *types.AccessStats) types.MigrationDecision {
	metrics.MigrationEvaluationsTotal.Inc()
	e.stats.TotalMigrationsEvaluated++

	now := e.clock()
	base := types.MigrationDecision{ItemID: item.ItemID, SourceTier: types.TierHot, TargetTier: types.TierWarm}

	if usage.PercentFull >= 99 {
		base.ShouldMigrate = true
		base.IsEmergency = true
		base.Priority = "emergency"
		base.Reason = "emergency"
		return base
	}

	if access != nil && access.RecentAccesses >= e.policy.HotToWarm.MinAccessCount {
		base.ShouldMigrate = false
		base.Priority = "access-frequency"
		base.Reason = "frequently accessed"
		return base
	}

	if item.CreatedAt.Before(now) && now.Sub(item.CreatedAt).Milliseconds() >= e.policy.HotToWarm.MaxAgeMs {
		base.ShouldMigrate = true
		base.Priority = "ttl"
		base.Reason = "TTL exceeded"
		return base
	}

	if usage.PercentFull >= e.policy.HotToWarm.MaxHotSizePercent {
		base.ShouldMigrate = true
		base.Priority = "size-threshold"
		base.Reason = "size threshold"
		return base
	}

	base.ShouldMigrate = false
	base.Priority = "none"
	base.Reason = "below TTL"
	return base
}

// EvaluateWarmToCold decides whether item should migrate warm->cold:
// its age has reached the retention period.
func (e *Evaluator) EvaluateWarmToCold(item types.MigrationItem) types.MigrationDecision {
	metrics.MigrationEvaluationsTotal.Inc()
	e.stats.TotalMigrationsEvaluated++

	now := e.clock()
	decision := types.MigrationDecision{ItemID: item.ItemID, SourceTier: types.TierWarm, TargetTier: types.TierCold}
	if item.CreatedAt.Before(now) && now.Sub(item.CreatedAt).Milliseconds() >= e.policy.WarmToCold.MaxAgeMs {
		decision.ShouldMigrate = true
		decision.Priority = "retention"
		decision.Reason = "retention period exceeded"
		return decision
	}
	decision.Reason = "within retention period"
	return decision
}

// AccessStatsFor is a convenience lookup signature: callers typically
// have a map[itemID]*types.AccessStats rather than one struct.
type AccessStatsFor func(itemID string) *types.AccessStats

// SelectHotToWarmBatch filters items to those EvaluateHotToWarm says
// should migrate, then accumulates a batch bounded by BatchSize,
// allowing up to 20% overshoot past TargetBytes.
func (e *Evaluator) SelectHotToWarmBatch(items []types.MigrationItem, usage types.TierUsage, access AccessStatsFor) types.BatchResult {
	timer := metrics.NewTimer()
	defer func() {
		d := timer.Duration()
		timer.ObserveDuration(metrics.MigrationEvaluationDuration)
		e.evalTimeTotal += d
		e.evalCount++
	}()

	startedAt := e.clock()

	type candidate struct {
		item     types.MigrationItem
		decision types.MigrationDecision
	}
	var candidates []candidate
	for _, it := range items {
		var stats *types.AccessStats
		if access != nil {
			stats = access(it.ItemID)
		}
		d := e.EvaluateHotToWarm(it, usage, stats)
		if d.ShouldMigrate {
			candidates = append(candidates, candidate{item: it, decision: d})
		}
	}

	if len(candidates) < e.policy.BatchSize.Min && usage.PercentFull < e.policy.HotToWarm.MaxHotSizePercent {
		return types.BatchResult{ShouldProceed: false, Reason: "minimum batch", StartedAt: startedAt}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].item.CreatedAt.Before(candidates[j].item.CreatedAt)
	})

	target := e.policy.BatchSize.TargetBytes
	overshootCap := target + target/5 // allow up to 20% overshoot
	var batch []types.MigrationCandidate
	var totalBytes int64
	for _, c := range candidates {
		if len(batch) >= e.policy.BatchSize.Max {
			break
		}
		if target > 0 && totalBytes >= target && len(batch) > 0 {
			break
		}
		if target > 0 && totalBytes+c.item.SizeBytes > overshootCap && len(batch) > 0 {
			break
		}
		batch = append(batch, types.MigrationCandidate{
			ItemID: c.item.ItemID, SourceTier: types.TierHot, TargetTier: types.TierWarm,
			EstimatedBytes: c.item.SizeBytes, CreatedAt: c.item.CreatedAt, Priority: c.decision.Priority,
		})
		totalBytes += c.item.SizeBytes
	}

	completedAt := e.clock()
	metrics.MigrationBytesMigratedTotal.Add(float64(totalBytes))
	e.stats.TotalBytesMigrated += totalBytes
	e.stats.LastMigrationAt = completedAt
	e.logger.Info().Int("items", len(batch)).Int64("bytes", totalBytes).Msg("hot->warm batch selected")

	return types.BatchResult{
		Items: batch, TotalBytes: totalBytes, ShouldProceed: true, Reason: "batch selected",
		StartedAt: startedAt, CompletedAt: completedAt,
	}
}

// SelectWarmToColdBatch filters items to those EvaluateWarmToCold says
// should migrate, requiring the total to reach MinPartitionSize
// before proceeding.
func (e *Evaluator) SelectWarmToColdBatch(items []types.MigrationItem) types.BatchResult {
	timer := metrics.NewTimer()
	defer func() {
		d := timer.Duration()
		timer.ObserveDuration(metrics.MigrationEvaluationDuration)
		e.evalTimeTotal += d
		e.evalCount++
	}()

	startedAt := e.clock()

	var candidates []types.MigrationItem
	var totalBytes int64
	for _, it := range items {
		if e.EvaluateWarmToCold(it).ShouldMigrate {
			candidates = append(candidates, it)
			totalBytes += it.SizeBytes
		}
	}

	if totalBytes < e.policy.WarmToCold.MinPartitionSize {
		return types.BatchResult{ShouldProceed: false, Reason: "minimum partition size", StartedAt: startedAt}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].CreatedAt.Before(candidates[j].CreatedAt) })

	var batch []types.MigrationCandidate
	var batchBytes int64
	for _, it := range candidates {
		if len(batch) >= e.policy.BatchSize.Max {
			break
		}
		batch = append(batch, types.MigrationCandidate{
			ItemID: it.ItemID, SourceTier: types.TierWarm, TargetTier: types.TierCold,
			EstimatedBytes: it.SizeBytes, CreatedAt: it.CreatedAt, Priority: "retention",
		})
		batchBytes += it.SizeBytes
	}

	completedAt := e.clock()
	metrics.MigrationBytesMigratedTotal.Add(float64(batchBytes))
	e.stats.TotalBytesMigrated += batchBytes
	e.stats.LastMigrationAt = completedAt

	return types.BatchResult{
		Items: batch, TotalBytes: batchBytes, ShouldProceed: true, Reason: "partition ready",
		StartedAt: startedAt, CompletedAt: completedAt,
	}
}

// Stats returns a snapshot of aggregate engine activity.
func (e *Evaluator) Stats() types.MigrationStats {
	s := e.stats
	if e.evalCount > 0 {
		s.AverageMigrationTimeMs = float64(e.evalTimeTotal.Milliseconds()) / float64(e.evalCount)
	}
	return s
}
