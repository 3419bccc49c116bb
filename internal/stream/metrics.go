package stream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricStreamsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "phrasecue",
		Subsystem: "stream",
		Name:      "registrations",
		Help:      "Streams currently held by the registry, any status.",
	})

	metricStreamsEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "phrasecue",
		Subsystem: "stream",
		Name:      "evicted_total",
		Help:      "Terminal idle streams evicted to free capacity.",
	})

	metricSubscribers = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "phrasecue",
		Subsystem: "stream",
		Name:      "subscribers_total",
		Help:      "Subscriber attachments across all streams.",
	})

	metricChunksPublished = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "phrasecue",
		Subsystem: "stream",
		Name:      "chunks_published_total",
		Help:      "Chunks appended to stream logs.",
	})

	metricCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "phrasecue",
		Subsystem: "stream",
		Name:      "cache_hits_total",
		Help:      "Analyses served from the persisted cache.",
	})
)
