package quota

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricThrottled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "phrasecue",
		Subsystem: "quota",
		Name:      "throttled_total",
		Help:      "Requests rejected by the generic throttle, by route.",
	}, []string{"route"})

	metricPaywalled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "phrasecue",
		Subsystem: "quota",
		Name:      "paywalled_total",
		Help:      "Analysis requests rejected by the AI quota.",
	})
)
