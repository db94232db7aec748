package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ticketMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_mutations_total",
			Help: "Ticket mutation operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	cacheEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collection_cache_events_total",
			Help: "Collection cache hits, misses and invalidations",
		},
		[]string{"event"},
	)

	cacheRefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "collection_cache_refresh_seconds",
			Help:    "Duration of collection refetches after invalidation",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		},
	)

	selectionUpdates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "selection_updates_total",
			Help: "Writes to the shared selection slot",
		},
	)
)

// TrackMutation records one mutation service call. outcome is either
// "success" or the error kind from internal/status.
func TrackMutation(operation, outcome string) {
	ticketMutations.WithLabelValues(operation, outcome).Inc()
}

func TrackCacheEvent(event string) {
	cacheEvents.WithLabelValues(event).Inc()
}

func TrackCacheRefresh(duration time.Duration) {
	cacheRefreshDuration.Observe(duration.Seconds())
}

func TrackSelectionUpdate() {
	selectionUpdates.Inc()
}
