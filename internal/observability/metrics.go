package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the risk engine. Every
// metric is engine-shell instrumentation; nothing here is read by the
// risk path.
type Metrics struct {
	// --- Engine ---
	EventsApplied  *prometheus.CounterVec
	EventsRejected *prometheus.CounterVec
	EngineSequence prometheus.Gauge

	// --- Liquidation ---
	LiquidationFills *prometheus.CounterVec
	Bankruptcies     prometheus.Counter

	// --- Persistence ---
	PersistEventsWritten prometheus.Counter
	PersistBatchDur      prometheus.Histogram
	PersistBatchSize     prometheus.Histogram
	PersistErrors        *prometheus.CounterVec
	PersistLastSequence  prometheus.Gauge

	// --- Snapshot & replay ---
	SnapshotsTaken  prometheus.Counter
	ReplayMismatch  prometheus.Counter
	ReplayEventsRun prometheus.Counter

	// --- Query API ---
	QueryRequests *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all collectors on the default registry.
func NewMetrics() *Metrics {
	latencyBuckets := []float64{
		0.0001, 0.00025, 0.0005, 0.001, 0.002, 0.005, 0.01, 0.025, 0.05, 0.1,
	}

	return &Metrics{
		EventsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "risk_engine_events_applied_total",
			Help: "Events committed to the log and applied",
		}, []string{"kind"}),

		EventsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "risk_engine_events_rejected_total",
			Help: "Events rejected by validation",
		}, []string{"kind", "reason"}),

		EngineSequence: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "risk_engine_sequence",
			Help: "Next sequence the engine will assign",
		}),

		LiquidationFills: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "risk_engine_liquidation_fills_total",
			Help: "LiquidationFill events emitted",
		}, []string{"market"}),

		Bankruptcies: promauto.NewCounter(prometheus.CounterOpts{
			Name: "risk_engine_bankruptcies_total",
			Help: "Accounts liquidated into deficit",
		}),

		PersistEventsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "risk_persist_events_written_total",
			Help: "Envelopes written to the Postgres mirror",
		}),

		PersistBatchDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "risk_persist_batch_duration_seconds",
			Help:    "Time to flush one persistence batch",
			Buckets: latencyBuckets,
		}),

		PersistBatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "risk_persist_batch_size",
			Help:    "Envelopes per persistence batch",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250},
		}),

		PersistErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "risk_persist_errors_total",
			Help: "Persistence failures by stage",
		}, []string{"stage"}),

		PersistLastSequence: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "risk_persist_last_sequence",
			Help: "Highest sequence flushed to Postgres",
		}),

		SnapshotsTaken: promauto.NewCounter(prometheus.CounterOpts{
			Name: "risk_snapshots_taken_total",
			Help: "State snapshots persisted",
		}),

		ReplayMismatch: promauto.NewCounter(prometheus.CounterOpts{
			Name: "risk_replay_mismatch_total",
			Help: "Determinism check failures",
		}),

		ReplayEventsRun: promauto.NewCounter(prometheus.CounterOpts{
			Name: "risk_replay_events_total",
			Help: "Events replayed from the durable log",
		}),

		QueryRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "risk_query_requests_total",
			Help: "Read-side API requests",
		}, []string{"endpoint", "status"}),

		QueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "risk_query_duration_seconds",
			Help:    "Read-side API latency",
			Buckets: latencyBuckets,
		}, []string{"endpoint"}),
	}
}
