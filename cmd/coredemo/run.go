package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cuemby/corestate/pkg/broadcast"
	"github.com/cuemby/corestate/pkg/cascade"
	"github.com/cuemby/corestate/pkg/errbound"
	"github.com/cuemby/corestate/pkg/events"
	"github.com/cuemby/corestate/pkg/fts"
	"github.com/cuemby/corestate/pkg/instance"
	"github.com/cuemby/corestate/pkg/kv"
	"github.com/cuemby/corestate/pkg/log"
	"github.com/cuemby/corestate/pkg/migration"
	"github.com/cuemby/corestate/pkg/projection"
	"github.com/cuemby/corestate/pkg/saga"
	"github.com/cuemby/corestate/pkg/schema"
	"github.com/cuemby/corestate/pkg/sqlstore"
	"github.com/cuemby/corestate/pkg/things"
	"github.com/cuemby/corestate/pkg/types"
	"github.com/cuemby/corestate/pkg/vector"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Exercise schema, events, projections, things, search, cascades, sagas, migration, and error boundaries once",
	RunE:  runDemo,
}

func runDemo(cmd *cobra.Command, args []string) error {
	dbPath, _ := cmd.Flags().GetString("db")
	kvDir, _ := cmd.Flags().GetString("kv-dir")
	schemaFile, _ := cmd.Flags().GetString("schema-file")
	relationshipsFile, _ := cmd.Flags().GetString("relationships-file")
	migrationPolicyFile, _ := cmd.Flags().GetString("migration-policy-file")
	logger := log.WithComponent("coredemo")

	store, err := openStore(kvDir)
	if err != nil {
		return fmt.Errorf("open kv store: %w", err)
	}

	db, err := sqlstore.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer db.Close()

	participants := map[string]instance.Participant{
		"billing":   echoParticipant{},
		"inventory": echoParticipant{},
	}
	ctx := instance.Local(instance.NewIDFromName("coredemo"), store, db, func(binding string, id instance.ID) (instance.Participant, bool) {
		p, ok := participants[binding]
		return p, ok
	})

	activeSchema := schema.DefaultSchema()
	if schemaFile != "" {
		extra, err := schema.LoadYAML(schemaFile)
		if err != nil {
			return fmt.Errorf("load schema file: %w", err)
		}
		activeSchema = schema.MergeWithDefault(extra)
		logger.Info().Str("file", schemaFile).Msg("loaded schema from YAML")
	}

	mgr := schema.New(ctx, activeSchema)
	if err := mgr.EnsureInitialized(); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	logger.Info().Msg("schema initialized")

	bus := broadcast.New()
	bus.OnAny(func(event string, payload any) {
		logger.Info().Str("event", event).Interface("payload", payload).Msg("broadcast")
	})

	runEventsAndProjection(ctx, logger)
	runThingsAndSearch(ctx, bus, logger)
	runVector(logger)
	runCascade(ctx, relationshipsFile, logger)
	if err := runSaga(ctx, logger); err != nil {
		logger.Warn().Err(err).Msg("saga run did not complete cleanly")
	}
	runMigration(migrationPolicyFile, logger)
	runErrorBoundary(logger)

	return nil
}

func openStore(kvDir string) (kv.Store, error) {
	if kvDir == "" {
		return kv.NewMemStore(), nil
	}
	return kv.NewBoltStore(kvDir)
}

type echoParticipant struct{}

func (echoParticipant) Call(_ context.Context, method string, params []byte) ([]byte, int, error) {
	return params, 200, nil
}

// runEventsAndProjection appends a couple of events to a stream and
// applies them to a projection counting them by type.
func runEventsAndProjection(ctx *instance.Context, logger zerolog.Logger) {
	log := events.NewLog(ctx)

	payload, _ := json.Marshal(map[string]any{"sku": "widget-1", "qty": 3})
	e1, err := log.AppendEvent(types.AppendEventInput{StreamID: "order-1", Type: "OrderPlaced", Data: payload})
	if err != nil {
		logger.Warn().Err(err).Msg("append event failed")
		return
	}

	payload2, _ := json.Marshal(map[string]any{"sku": "widget-1", "qty": 1})
	expected := e1.Version
	e2, err := log.AppendEvent(types.AppendEventInput{
		StreamID: "order-1", Type: "OrderPlaced", Data: payload2, ExpectedVersion: &expected,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("append event failed")
		return
	}

	counts := map[string]int{}
	proj := projection.New("order-type-counts", func() any { return counts }, ctx.KV)
	_ = proj.When("OrderPlaced", func(event types.StoredEvent, state any) any {
		m := state.(map[string]int)
		m[event.Type]++
		return m
	})
	proj.ApplyBatch([]types.StoredEvent{e1, e2})

	logger.Info().Interface("state", proj.GetReadOnlyState()).Msg("projection caught up")
}

// runThingsAndSearch creates a thing, indexes it for full text search,
// updates it, and runs a search round trip.
func runThingsAndSearch(ctx *instance.Context, bus *broadcast.Bus, logger zerolog.Logger) {
	repo := things.NewRepository(ctx, bus).WithIndex(fts.NewIndex(ctx))

	t, err := repo.CreateThing("default", "note", "note-1",
		map[string]any{"title": "corestate demo", "body": "lazy schema, sagas, cascades"},
		"", "",
	)
	if err != nil {
		logger.Warn().Err(err).Msg("create thing failed")
		return
	}

	_, err = repo.UpdateThing("default", "note", "note-1", things.UpdatePatch{
		Data: map[string]any{"body": "lazy schema, sagas, cascades, vector search"},
	})
	if err != nil {
		logger.Warn().Err(err).Msg("update thing failed")
		return
	}

	hits, err := fts.NewIndex(ctx).Search("vector", fts.SearchOptions{SourceTable: "things"})
	if err != nil {
		logger.Warn().Err(err).Msg("fts search failed")
		return
	}
	logger.Info().Str("thing", t.ID).Int("hits", len(hits)).Msg("things + fts round trip")
}

// runVector adds a few hot vectors and searches with a Phase 2
// provider serving cold (full-dimension) embeddings.
func runVector(logger zerolog.Logger) {
	ix := vector.NewIndex(64)

	full := map[string][]float64{
		"doc-1": make([]float64, 256),
		"doc-2": make([]float64, 256),
	}
	full["doc-1"][0] = 1
	full["doc-2"][1] = 1
	ix.SetProvider(func(ids []string) map[string][]float64 {
		out := map[string][]float64{}
		for _, id := range ids {
			if v, ok := full[id]; ok {
				out[id] = v
			}
		}
		return out
	})

	v1, _ := vector.TruncateAndNormalize(full["doc-1"], 64)
	v2, _ := vector.TruncateAndNormalize(full["doc-2"], 64)
	_ = ix.AddToHotIndex("doc-1", v1, map[string]any{"title": "widget spec"}, "default", "doc")
	_ = ix.AddToHotIndex("doc-2", v2, map[string]any{"title": "unrelated"}, "default", "doc")

	query, _ := vector.TruncateAndNormalize(full["doc-1"], 256)
	results, err := ix.Search(query, vector.SearchOptions{TopK: 1, CandidatePoolSize: 2})
	if err != nil {
		logger.Warn().Err(err).Msg("vector search failed")
		return
	}
	logger.Info().Interface("results", results).Msg("two-phase vector search")
}

// runCascade defines a hard relationship and triggers it against the
// echo participant registered under the "inventory" binding. When
// relationshipsFile is set, relationships are loaded from YAML instead
// and wired against the resolver registry below.
func runCascade(ctx *instance.Context, relationshipsFile string, logger zerolog.Logger) {
	engine := cascade.NewEngine(ctx)
	engine.OnEvent(func(event string, payload any) {
		logger.Info().Str("event", event).Msg("cascade lifecycle")
	})

	skuResolver := func(entity map[string]any) (string, error) {
		sku, _ := entity["sku"].(string)
		return sku, nil
	}

	var err error
	if relationshipsFile != "" {
		err = engine.DefineFromYAML(relationshipsFile, map[string]types.IDResolver{
			"order-reserves-inventory": skuResolver,
		})
		if err == nil {
			logger.Info().Str("file", relationshipsFile).Msg("loaded relationships from YAML")
		}
	} else {
		err = engine.DefineRelation("order-reserves-inventory", types.RelationshipDefinition{
			Name:          "order-reserves-inventory",
			Type:          types.RelationHardForward,
			TargetBinding: "inventory",
			IDResolver:    skuResolver,
			OnDelete:      types.PolicyCascade,
		})
	}
	if err != nil {
		logger.Warn().Err(err).Msg("define relation failed")
		return
	}

	result, err := engine.TriggerCascade("order-reserves-inventory", types.CascadeCreate, map[string]any{"sku": "widget-1"})
	if err != nil {
		logger.Warn().Err(err).Msg("trigger cascade failed")
		return
	}
	logger.Info().Interface("result", result).Msg("cascade triggered")
}

// runSaga executes a two-step saga (reserve inventory, then charge
// billing) against the echo participants.
func runSaga(ctx *instance.Context, logger zerolog.Logger) error {
	executor := saga.NewExecutor(ctx, func(participantID string) (instance.Participant, bool) {
		switch participantID {
		case "billing", "inventory":
			return echoParticipant{}, true
		default:
			return nil, false
		}
	})

	params, _ := json.Marshal(map[string]any{"sku": "widget-1", "qty": 1})
	def := types.SagaDefinition{
		ID:   "checkout-1",
		Name: "checkout",
		Steps: []types.Step{
			{ID: "reserve", ParticipantID: "inventory", Method: "reserve", Params: params, CompensationMethod: "release"},
			{ID: "charge", ParticipantID: "billing", Method: "charge", Params: params, DependsOn: []string{"reserve"}, CompensationMethod: "refund"},
		},
		CompensationStrategy: types.CompensationSequential,
	}

	tx, err := executor.Execute(def)
	if err != nil {
		return err
	}
	logger.Info().Str("saga", tx.ID).Str("state", string(tx.State)).Msg("saga executed")
	return nil
}

// runMigration evaluates a handful of synthetic items against a
// tiering policy and logs the selected batch. When policyFile is set,
// the policy is loaded from YAML instead of the built-in demo policy.
func runMigration(policyFile string, logger zerolog.Logger) {
	policy := types.MigrationPolicy{
		HotToWarm: types.HotToWarmPolicy{MaxAgeMs: int64(time.Hour / time.Millisecond), MinAccessCount: 10, MaxHotSizePercent: 80, AccessWindowMs: int64(time.Hour / time.Millisecond)},
		WarmToCold: types.WarmToColdPolicy{MaxAgeMs: int64(24 * time.Hour / time.Millisecond), MinPartitionSize: 1, RetentionPeriodMs: int64(24 * time.Hour / time.Millisecond)},
		BatchSize: types.BatchSizePolicy{Min: 1, Max: 100, TargetBytes: 1 << 20},
	}
	if policyFile != "" {
		loaded, err := migration.LoadPolicyYAML(policyFile)
		if err != nil {
			logger.Warn().Err(err).Msg("load migration policy file failed")
			return
		}
		policy = loaded
		logger.Info().Str("file", policyFile).Msg("loaded migration policy from YAML")
	}
	eval, err := migration.NewEvaluator(policy)
	if err != nil {
		logger.Warn().Err(err).Msg("invalid migration policy")
		return
	}

	now := time.Now()
	items := []types.MigrationItem{
		{ItemID: "blob-1", CreatedAt: now.Add(-2 * time.Hour), SizeBytes: 1 << 18, Tier: types.TierHot},
		{ItemID: "blob-2", CreatedAt: now, SizeBytes: 1 << 18, Tier: types.TierHot},
	}
	batch := eval.SelectHotToWarmBatch(items, types.TierUsage{PercentFull: 50}, func(string) *types.AccessStats { return nil })
	logger.Info().Interface("batch", batch).Msg("migration batch selected")
}

// runErrorBoundary wraps an operation that always fails, exercising
// the retry-then-fallback path.
func runErrorBoundary(logger zerolog.Logger) {
	boundary, err := errbound.New(errbound.Config[string]{
		Name:       "demo-lookup",
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		Fallback: func(err error, ctx errbound.EnrichedContext) string {
			return "fallback-value"
		},
	})
	if err != nil {
		logger.Warn().Err(err).Msg("invalid boundary config")
		return
	}

	result, _ := boundary.Wrap(func() (string, error) {
		return "", fmt.Errorf("upstream unavailable")
	}, errbound.CallContext{Operation: "lookup"})

	logger.Info().Str("result", result).Bool("error_state", boundary.InErrorState()).Msg("error boundary fell back")
}
