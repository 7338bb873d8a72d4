package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Schema metrics
	SchemaInitTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "corestate_schema_init_total",
			Help: "Total number of times ensureInitialized actually ran schema DDL",
		},
	)

	SchemaLastInitSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "corestate_schema_last_init_seconds",
			Help: "Duration of the most recent schema initialization, in seconds",
		},
	)

	// Event log metrics
	EventsAppendedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corestate_events_appended_total",
			Help: "Total number of events appended, by stream",
		},
		[]string{"stream_id"},
	)

	EventVersionConflictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corestate_event_version_conflicts_total",
			Help: "Total number of appendEvent calls rejected by optimistic concurrency",
		},
		[]string{"stream_id"},
	)

	EventDualWriteFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "corestate_event_dual_write_failures_total",
			Help: "Total number of failed best-effort emits to the external stream sink",
		},
	)

	EventAppendDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "corestate_event_append_duration_seconds",
			Help:    "Time taken to append one event, in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Saga metrics
	SagaTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corestate_saga_transitions_total",
			Help: "Total number of saga state transitions, by resulting state",
		},
		[]string{"state"},
	)

	SagaCompensationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "corestate_saga_compensations_total",
			Help: "Total number of compensation invocations across all sagas",
		},
	)

	SagaStepRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corestate_saga_step_retries_total",
			Help: "Total number of step retry attempts, by step id",
		},
		[]string{"step_id"},
	)

	LocksHeld = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "corestate_locks_held",
			Help: "Current number of unexpired distributed locks",
		},
	)

	// Cascade metrics
	CascadesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corestate_cascades_total",
			Help: "Total number of cascades triggered, by kind (hard/soft) and outcome",
		},
		[]string{"kind", "outcome"},
	)

	SoftCascadeQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "corestate_soft_cascade_queue_depth",
			Help: "Current number of queued soft cascades awaiting drain",
		},
	)

	// Things / FTS metrics
	ThingsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "corestate_things_total",
			Help: "Approximate number of things, by namespace",
		},
		[]string{"ns"},
	)

	FTSSearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "corestate_fts_search_duration_seconds",
			Help:    "Time taken for one FTS search, in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Vector search metrics
	VectorPhase1Duration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "corestate_vector_phase1_duration_seconds",
			Help:    "Time taken for phase 1 (hot index) of a vector search, in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	VectorPhase2Duration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "corestate_vector_phase2_duration_seconds",
			Help:    "Time taken for phase 2 (full-embedding rerank) of a vector search, in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Migration policy metrics
	MigrationEvaluationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "corestate_migration_evaluations_total",
			Help: "Total number of per-item migration decisions evaluated",
		},
	)

	MigrationBytesMigratedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "corestate_migration_bytes_migrated_total",
			Help: "Total bytes accepted into a migration batch",
		},
	)

	MigrationEvaluationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "corestate_migration_evaluation_duration_seconds",
			Help:    "Time taken to evaluate one migration batch, in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Error boundary metrics
	BoundaryErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corestate_boundary_errors_total",
			Help: "Total number of errors observed by an error boundary, by boundary name",
		},
		[]string{"boundary"},
	)

	BoundaryFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corestate_boundary_fallbacks_total",
			Help: "Total number of fallback invocations, by boundary name",
		},
		[]string{"boundary"},
	)

	BoundaryRecoveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corestate_boundary_recoveries_total",
			Help: "Total number of operations that succeeded on retry, by boundary name",
		},
		[]string{"boundary"},
	)

	// Broadcast metrics
	BroadcastEmitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corestate_broadcast_emits_total",
			Help: "Total number of events emitted on the broadcast bus, by event name",
		},
		[]string{"event"},
	)

	BroadcastWSSentTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "corestate_broadcast_ws_sent_total",
			Help: "Total number of WebSocket messages successfully fanned out",
		},
	)
)

func init() {
	prometheus.MustRegister(SchemaInitTotal)
	prometheus.MustRegister(SchemaLastInitSeconds)
	prometheus.MustRegister(EventsAppendedTotal)
	prometheus.MustRegister(EventVersionConflictsTotal)
	prometheus.MustRegister(EventDualWriteFailuresTotal)
	prometheus.MustRegister(EventAppendDuration)
	prometheus.MustRegister(SagaTransitionsTotal)
	prometheus.MustRegister(SagaCompensationsTotal)
	prometheus.MustRegister(SagaStepRetriesTotal)
	prometheus.MustRegister(LocksHeld)
	prometheus.MustRegister(CascadesTotal)
	prometheus.MustRegister(SoftCascadeQueueDepth)
	prometheus.MustRegister(ThingsTotal)
	prometheus.MustRegister(FTSSearchDuration)
	prometheus.MustRegister(VectorPhase1Duration)
	prometheus.MustRegister(VectorPhase2Duration)
	prometheus.MustRegister(MigrationEvaluationsTotal)
	prometheus.MustRegister(MigrationBytesMigratedTotal)
	prometheus.MustRegister(MigrationEvaluationDuration)
	prometheus.MustRegister(BoundaryErrorsTotal)
	prometheus.MustRegister(BoundaryFallbacksTotal)
	prometheus.MustRegister(BoundaryRecoveriesTotal)
	prometheus.MustRegister(BroadcastEmitsTotal)
	prometheus.MustRegister(BroadcastWSSentTotal)
}

// Handler returns the Prometheus HTTP handler for a host to mount.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the elapsed duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
