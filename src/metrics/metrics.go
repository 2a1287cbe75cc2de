package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// The pipeline never returns errors to its callers, so these counters are the
// only way to tell rejection reasons apart from the outside.
var (
	ItemsStored = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "thicket_items_stored_total",
			Help: "Items durably stored by the ingestion pipeline.",
		},
	)

	ItemsDuplicate = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thicket_items_duplicate_total",
			Help: "Items short-circuited as already known, by matching rule.",
		},
		[]string{"rule"},
	)

	ItemsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thicket_items_rejected_total",
			Help: "Items dropped by policy or validity checks, by reason.",
		},
		[]string{"reason"},
	)

	ItemsSpooled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "thicket_items_spooled_total",
			Help: "Items written to the spool after a storage failure.",
		},
	)

	SpoolReplayed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "thicket_spool_replayed_total",
			Help: "Spooled items successfully replayed through the pipeline.",
		},
	)

	RenderCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "thicket_render_cache_hits_total",
			Help: "Bodies whose stored rendering was reused.",
		},
	)

	RenderCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "thicket_render_cache_misses_total",
			Help: "Bodies that had to be re-rendered.",
		},
	)

	FanoutCopies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thicket_fanout_copies_total",
			Help: "Derived copies created by the distribution engine, by kind.",
		},
		[]string{"kind"}, // shadow, subscriber, tag
	)

	NotificationsClassified = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "thicket_notifications_classified_total",
			Help: "Per-recipient notification masks computed and stored.",
		},
	)
)

func init() {
	prometheus.MustRegister(ItemsStored)
	prometheus.MustRegister(ItemsDuplicate)
	prometheus.MustRegister(ItemsRejected)
	prometheus.MustRegister(ItemsSpooled)
	prometheus.MustRegister(SpoolReplayed)
	prometheus.MustRegister(RenderCacheHits)
	prometheus.MustRegister(RenderCacheMisses)
	prometheus.MustRegister(FanoutCopies)
	prometheus.MustRegister(NotificationsClassified)
}
