package shardqueue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "duet",
			Subsystem: "write_queue",
			Name:      "submissions_total",
			Help:      "Jobs accepted into a shard.",
		},
		[]string{"shard"},
	)

	queueFullTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "duet",
			Subsystem: "write_queue",
			Name:      "queue_full_total",
			Help:      "Submissions rejected because the shard stayed full.",
		},
		[]string{"shard"},
	)

	retriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "duet",
			Subsystem: "write_queue",
			Name:      "retries_total",
			Help:      "Job attempts that failed recoverably and were retried.",
		},
		[]string{"shard"},
	)

	runDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "duet",
			Subsystem: "write_queue",
			Name:      "run_seconds",
			Help:      "Wall time of a single job attempt.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		},
		[]string{"shard"},
	)

	queueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "duet",
			Subsystem: "write_queue",
			Name:      "depth",
			Help:      "Jobs waiting in a shard after the last run.",
		},
		[]string{"shard"},
	)
)
