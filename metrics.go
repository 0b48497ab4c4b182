package duet

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	openSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "duet_app",
			Name:      "open_seconds",
			Help:      "Time New spent opening the engine and rehydrating stores.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		},
	)

	persistedStores = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "duet_app",
			Name:      "persisted_stores",
			Help:      "Stores mirrored to the engine by the most recent App.",
		},
	)

	signOutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "duet_app",
			Name:      "sign_outs_total",
			Help:      "Sign-outs that cleared user data.",
		},
	)
)
