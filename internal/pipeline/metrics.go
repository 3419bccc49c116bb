package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "phrasecue",
		Subsystem: "pipeline",
		Name:      "jobs_completed_total",
		Help:      "Search jobs that reached the completed state.",
	})

	jobsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "phrasecue",
		Subsystem: "pipeline",
		Name:      "jobs_failed_total",
		Help:      "Search jobs that reached the failed state.",
	})

	candidatesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "phrasecue",
		Subsystem: "pipeline",
		Name:      "candidates_skipped_total",
		Help:      "Candidate videos skipped, by reason.",
	}, []string{"reason"})

	jobsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "phrasecue",
		Subsystem: "pipeline",
		Name:      "jobs_in_flight",
		Help:      "Jobs currently being processed by the worker pool.",
	})
)
