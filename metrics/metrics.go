package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Ingestion metrics
	pageViewsTrackedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitelens_page_views_tracked_total",
			Help: "Total number of tracked entry/exit signals by resulting session state",
		},
		[]string{"type", "outcome"},
	)

	trackRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitelens_track_rejected_total",
			Help: "Total number of rejected tracking requests",
		},
		[]string{"reason"},
	)

	// Geolocation metrics
	geoLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitelens_geo_lookups_total",
			Help: "Total number of geolocation lookups by result",
		},
		[]string{"result"},
	)

	geoLookupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sitelens_geo_lookup_duration_seconds",
			Help:    "Geolocation lookup duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 3},
		},
	)

	// Dashboard metrics
	snapshotDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sitelens_snapshot_duration_seconds",
			Help:    "Time to fetch page views and compute an analytics snapshot",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
	)

	snapshotPageViews = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sitelens_snapshot_page_views",
			Help:    "Number of page views aggregated per snapshot",
			Buckets: prometheus.ExponentialBuckets(10, 4, 8),
		},
	)
)

// RecordTracked records an accepted entry or exit and the state it produced.
func RecordTracked(trackType, outcome string) {
	pageViewsTrackedTotal.WithLabelValues(trackType, outcome).Inc()
}

// RecordRejected records a tracking request that was not stored.
func RecordRejected(reason string) {
	trackRejectedTotal.WithLabelValues(reason).Inc()
}

// RecordGeoLookup records a geolocation lookup; result is ok, error, timeout or skipped.
func RecordGeoLookup(result string, duration time.Duration) {
	geoLookupsTotal.WithLabelValues(result).Inc()
	if result != "skipped" {
		geoLookupDuration.Observe(duration.Seconds())
	}
}

// RecordSnapshot records one computed analytics snapshot.
func RecordSnapshot(pageViews int, duration time.Duration) {
	snapshotDuration.Observe(duration.Seconds())
	snapshotPageViews.Observe(float64(pageViews))
}

// MetricsHandler returns the Prometheus metrics handler
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
