package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	dashboardRefreshCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitness_tracker",
		Subsystem: "dashboard",
		Name:      "refreshes_total",
		Help:      "Number of dashboard activations, labeled by outcome.",
	}, []string{"outcome"})

	dashboardRefreshDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fitness_tracker",
		Subsystem: "dashboard",
		Name:      "refresh_duration_seconds",
		Help:      "Time spent fetching and aggregating one dashboard snapshot.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	})

	recordPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fitness_tracker",
		Subsystem: "persistence",
		Name:      "last_record_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent record persisted to Postgres.",
	})
)

func init() {
	prometheus.MustRegister(dashboardRefreshCounter, dashboardRefreshDuration, recordPersistGauge)
}

// ObserveDashboardRefresh records one completed or failed activation.
func ObserveDashboardRefresh(outcome string, elapsed time.Duration) {
	dashboardRefreshCounter.WithLabelValues(outcome).Inc()
	dashboardRefreshDuration.Observe(elapsed.Seconds())
}

// RecordPersisted updates the persistence watermark gauge.
func RecordPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	recordPersistGauge.Set(float64(ts.Unix()))
}
