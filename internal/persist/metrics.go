package persist

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	writesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "duet",
		Subsystem: "persist",
		Name:      "writes_total",
		Help:      "Successful state writes per key.",
	}, []string{"key"})

	writeFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "duet",
		Subsystem: "persist",
		Name:      "write_failures_total",
		Help:      "State writes dropped after exhausting retries, per key.",
	}, []string{"key"})

	rehydrateTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "duet",
		Subsystem: "persist",
		Name:      "rehydrate_total",
		Help:      "Rehydration outcomes per key (restored, empty, fallback).",
	}, []string{"key", "result"})
)
