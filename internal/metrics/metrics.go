package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the operational counters exposed on /metrics
type Metrics struct {
	registry *prometheus.Registry

	// Ledger metrics
	SessionsRecorded  prometheus.Counter
	DuplicateSessions prometheus.Counter
	PointsEarned      prometheus.Counter
	PointsSpent       prometheus.Counter

	// Redemption metrics
	RedemptionsCompleted prometheus.Counter
	RedemptionsRejected  *prometheus.CounterVec
	RedemptionRollbacks  prometheus.Counter

	// Analytics metrics
	EventsIngested      prometheus.Counter
	AggregationRuns     *prometheus.CounterVec
	AggregationDuration prometheus.Histogram
	EventsPurged        prometheus.Counter
}

// New creates the metrics set on a fresh registry
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		SessionsRecorded: factory.NewCounter(prometheus.CounterOpts{
			Name: "screenpoints_sessions_recorded_total",
			Help: "Total screen-time sessions recorded",
		}),
		DuplicateSessions: factory.NewCounter(prometheus.CounterOpts{
			Name: "screenpoints_sessions_duplicate_total",
			Help: "Total replayed sessions skipped by deduplication",
		}),
		PointsEarned: factory.NewCounter(prometheus.CounterOpts{
			Name: "screenpoints_points_earned_total",
			Help: "Total points credited to children",
		}),
		PointsSpent: factory.NewCounter(prometheus.CounterOpts{
			Name: "screenpoints_points_spent_total",
			Help: "Total points debited from children",
		}),
		RedemptionsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "screenpoints_redemptions_completed_total",
			Help: "Total successful redemptions",
		}),
		RedemptionsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "screenpoints_redemptions_rejected_total",
			Help: "Total rejected redemptions by reason",
		}, []string{"reason"}),
		RedemptionRollbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "screenpoints_redemption_rollbacks_total",
			Help: "Total compensating credits issued after failed redemptions",
		}),
		EventsIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "screenpoints_events_ingested_total",
			Help: "Total analytics events anonymized and stored",
		}),
		AggregationRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "screenpoints_aggregation_runs_total",
			Help: "Total aggregation runs by window kind",
		}, []string{"window"}),
		AggregationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "screenpoints_aggregation_duration_seconds",
			Help:    "Duration of aggregation runs",
			Buckets: prometheus.DefBuckets,
		}),
		EventsPurged: factory.NewCounter(prometheus.CounterOpts{
			Name: "screenpoints_events_purged_total",
			Help: "Total aggregated events purged",
		}),
	}
}

// Handler returns the HTTP handler serving the registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
